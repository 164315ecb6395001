package server

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/freqaug/internal/augment"
	"github.com/MeKo-Tech/freqaug/internal/dataset"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	addr           string
	engineCfg      augment.Config
	defaultVariant augment.Variant
	imageSize      int
	maxImageSize   int
	overlay        dataset.Source
	corsOrigin     string
	maxUploadMB    int64
	timeout        time.Duration
	rateLimiter    *RateLimiter
	observer       augment.Observer
	logger         *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	Engine         augment.Config
	DefaultVariant augment.Variant
	// ImageSize is the square side images are resized to on /augment/image
	// when the request does not name one.
	ImageSize int
	// MaxImageSize caps the size a request may ask for on /augment/image.
	// Zero means DefaultMaxImageSize.
	MaxImageSize int
	// Overlay feeds the overlay variant. Requests for it fail with 503 when nil.
	Overlay   dataset.Source
	RateLimit RateLimitConfig
	Logger    *slog.Logger
}

// RateLimitConfig holds per-client limits. Zero values disable a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// BatchPayload is the JSON form of a tensor batch.
type BatchPayload struct {
	Shape  []int     `json:"shape"`
	Data   []float32 `json:"data"`
	Device string    `json:"device,omitempty"`
}

// AugmentRequest is the body of POST /augment and of every WebSocket message.
type AugmentRequest struct {
	ID        string        `json:"id,omitempty"`
	Variant   string        `json:"variant"`
	Batch     *BatchPayload `json:"batch"`
	Reference *BatchPayload `json:"reference,omitempty"`
	Seed      *uint64       `json:"seed,omitempty"`
	FreqAlpha *float64      `json:"freq_alpha,omitempty"`
}

// AugmentResponse reports the outcome of one augmentation.
type AugmentResponse struct {
	Success   bool            `json:"success"`
	Variant   string          `json:"variant,omitempty"`
	Applied   bool            `json:"applied"`
	Params    *augment.Params `json:"params,omitempty"`
	Batch     *BatchPayload   `json:"batch,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorType string          `json:"error_type,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// Response types for the informational endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type VariantInfo struct {
	Name        string `json:"name"`
	Family      string `json:"family"`
	Description string `json:"description"`
}

type VariantsResponse struct {
	Variants []VariantInfo `json:"variants"`
	Count    int           `json:"count"`
	Default  string        `json:"default"`
}

// DefaultMaxImageSize bounds /augment/image resizes when Config leaves it unset.
const DefaultMaxImageSize = 1024

// NewServer creates a new augmentation server instance.
func NewServer(config Config) (*Server, error) {
	if err := config.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	maxSize := config.MaxImageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	if config.ImageSize <= 0 || config.ImageSize > maxSize {
		return nil, fmt.Errorf("invalid image size: %d (must be between 1 and %d)", config.ImageSize, maxSize)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:           net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		engineCfg:      config.Engine,
		defaultVariant: config.DefaultVariant,
		imageSize:      config.ImageSize,
		maxImageSize:   maxSize,
		overlay:        config.Overlay,
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    config.MaxUploadMB,
		timeout:        time.Duration(config.TimeoutSec) * time.Second,
		observer:       metricsObserver{},
		logger:         logger,
	}
	if config.RateLimit.Enabled {
		rl := config.RateLimit
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string { return s.addr }

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	route := func(path string, h http.HandlerFunc) {
		mux.HandleFunc(path, s.corsMiddleware(s.observeMiddleware(path, h)))
	}
	route("/health", s.healthHandler)
	route("/variants", s.variantsHandler)
	route("/augment", s.rateLimitMiddleware(s.augmentHandler))
	route("/augment/image", s.rateLimitMiddleware(s.augmentImageHandler))
	// The upgrade needs the raw ResponseWriter, so no metrics wrapper here.
	mux.HandleFunc("/ws/augment", s.rateLimitMiddleware(s.augmentWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// HTTPServer returns an http.Server serving all routes with the configured
// timeouts.
func (s *Server) HTTPServer() *http.Server {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.timeout,
		WriteTimeout:      s.timeout,
	}
}

// newEngine builds the engine for one request. Engines are cheap and not
// safe for concurrent use, so every request gets its own.
func (s *Server) newEngine(seed *uint64, freqAlpha *float64) (*augment.Engine, error) {
	cfg := s.engineCfg
	if freqAlpha != nil {
		cfg.FreqAlpha = *freqAlpha
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	opts := []augment.Option{augment.WithObserver(s.observer), augment.WithLogger(s.logger)}
	if seed != nil {
		opts = append(opts, augment.WithSeed(*seed))
	} else {
		opts = append(opts, augment.WithSeed(rand.Uint64()))
	}
	if s.overlay != nil {
		opts = append(opts, augment.WithOverlaySource(s.overlay))
	}
	return augment.NewEngine(cfg, opts...), nil
}

func (p *BatchPayload) toBatch() (*tensor.Batch, error) {
	b, err := tensor.FromSlice(p.Data, p.Shape)
	if err != nil {
		return nil, err
	}
	if p.Device != "" {
		d, err := tensor.ParseDevice(p.Device)
		if err != nil {
			return nil, err
		}
		b.Device = d
	}
	return b, nil
}

func newBatchPayload(b *tensor.Batch) *BatchPayload {
	return &BatchPayload{Shape: b.Shape, Data: b.Data, Device: b.Device.String()}
}
