package config

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/freqaug/internal/augment"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// Config represents the complete configuration for freqaug. It covers the
// augment, bench and serve commands and is loaded from configuration files,
// environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Augment AugmentConfig `mapstructure:"augment" yaml:"augment" json:"augment"`
	Overlay OverlayConfig `mapstructure:"overlay" yaml:"overlay" json:"overlay"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
}

// AugmentConfig selects and parameterizes the augmentation.
type AugmentConfig struct {
	Variant   string  `mapstructure:"variant" yaml:"variant" json:"variant"`
	FreqAlpha float64 `mapstructure:"freq_alpha" yaml:"freq_alpha" json:"freq_alpha"`
	Device    string  `mapstructure:"device" yaml:"device" json:"device"`
	// Seed 0 draws a random seed per run.
	Seed      uint64 `mapstructure:"seed" yaml:"seed" json:"seed"`
	ImageSize int    `mapstructure:"image_size" yaml:"image_size" json:"image_size"`

	// MaxImageSize caps image_size and the size a request may ask for.
	MaxImageSize int `mapstructure:"max_image_size" yaml:"max_image_size" json:"max_image_size"`
}

// OverlayConfig points at the natural-image folder used by "overlay".
type OverlayConfig struct {
	Dir        string   `mapstructure:"dir" yaml:"dir" json:"dir"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions" json:"extensions"`
}

// OutputConfig controls where augmented images are written.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	RateLimitEnabled  bool  `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	eng := augment.DefaultConfig()
	return Config{
		LogLevel: "info",
		Augment: AugmentConfig{
			Variant:      augment.MaskSquare.String(),
			FreqAlpha:    eng.FreqAlpha,
			Device:       eng.Device.String(),
			ImageSize:    84,
			MaxImageSize: 1024,
		},
		Overlay: OverlayConfig{
			Extensions: []string{".jpg", ".jpeg", ".png"},
		},
		Output: OutputConfig{
			Dir:    "augmented",
			Format: "png",
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxUploadMB:       50,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			RateLimitEnabled:  false,
			RequestsPerMinute: 120,
			RequestsPerHour:   3000,
			MaxRequestsPerDay: 20000,
			MaxDataPerDay:     2 << 30,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := augment.ParseVariant(c.Augment.Variant); err != nil {
		return fmt.Errorf("invalid augment.variant: %w", err)
	}
	if err := validateUnit(c.Augment.FreqAlpha, "augment.freq_alpha"); err != nil {
		return err
	}
	if _, err := tensor.ParseDevice(c.Augment.Device); err != nil {
		return fmt.Errorf("invalid augment.device: %w", err)
	}
	if c.Augment.MaxImageSize <= 0 {
		return fmt.Errorf("invalid augment.max_image_size: %d (must be positive)", c.Augment.MaxImageSize)
	}
	if c.Augment.ImageSize <= 0 || c.Augment.ImageSize > c.Augment.MaxImageSize {
		return fmt.Errorf("invalid augment.image_size: %d (must be between 1 and %d)", c.Augment.ImageSize, c.Augment.MaxImageSize)
	}

	validFormats := []string{"png", "jpg", "bmp"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RequestsPerMinute < 0 || c.Server.RequestsPerHour < 0 ||
		c.Server.MaxRequestsPerDay < 0 || c.Server.MaxDataPerDay < 0 {
		return fmt.Errorf("invalid rate limits: values must not be negative")
	}

	return nil
}

// EngineConfig converts the augment section to the engine's configuration.
func (c *Config) EngineConfig() (augment.Config, error) {
	dev, err := tensor.ParseDevice(c.Augment.Device)
	if err != nil {
		return augment.Config{}, err
	}
	cfg := augment.Config{FreqAlpha: c.Augment.FreqAlpha, Device: dev}
	return cfg, cfg.Validate()
}

// Variant resolves the configured variant name.
func (c *Config) Variant() (augment.Variant, error) {
	return augment.ParseVariant(c.Augment.Variant)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func validateUnit(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
