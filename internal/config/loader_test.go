package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_NoConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Augment, cfg.Augment)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestLoad_YAMLFileOnSearchPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := `
log_level: debug
augment:
  variant: mix-band-2
  freq_alpha: 0.4
  seed: 17
overlay:
  dir: /data/places
  extensions: [".jpg"]
server:
  port: 9090
  rate_limit_enabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "freqaug.yaml"), []byte(yaml), 0o600))

	loader := NewLoaderWithViper(viper.New())
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "mix-band-2", cfg.Augment.Variant)
	assert.InDelta(t, 0.4, cfg.Augment.FreqAlpha, 1e-9)
	assert.Equal(t, uint64(17), cfg.Augment.Seed)
	assert.Equal(t, 84, cfg.Augment.ImageSize, "unset keys keep defaults")
	assert.Equal(t, "/data/places", cfg.Overlay.Dir)
	assert.Equal(t, []string{".jpg"}, cfg.Overlay.Extensions)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.RateLimitEnabled)
	assert.Contains(t, loader.GetConfigFileUsed(), "freqaug.yaml")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FREQAUG_AUGMENT_FREQ_ALPHA", "0.25")
	t.Setenv("FREQAUG_SERVER_PORT", "7000")
	t.Setenv("FREQAUG_LOG_LEVEL", "warn")

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, cfg.Augment.FreqAlpha, 1e-9)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_ImageSizeCap(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FREQAUG_AUGMENT_IMAGE_SIZE", "2048")

	_, err := NewLoaderWithViper(viper.New()).Load()
	require.ErrorContains(t, err, "augment.image_size")

	t.Setenv("FREQAUG_AUGMENT_MAX_IMAGE_SIZE", "4096")
	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Augment.ImageSize)
	assert.Equal(t, 4096, cfg.Augment.MaxImageSize)
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("augment:\n  variant: mask-ring\n"), 0o600))

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mask-ring", cfg.Augment.Variant)

	_, err = NewLoaderWithViper(viper.New()).LoadWithFile(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "does not exist")
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("augment:\n  freq_alpha: 3\n"), 0o600))

	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.ErrorContains(t, err, "validation failed")

	cfg, err := NewLoaderWithViper(viper.New()).load(path, false)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, cfg.Augment.FreqAlpha, 0)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("augment: [unterminated"), 0o600))

	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.ErrorContains(t, err, "error reading config file")
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freqaug.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Augment, cfg.Augment)
	assert.Equal(t, DefaultConfig().Overlay.Extensions, cfg.Overlay.Extensions)
}

func TestGetConfigSearchPaths(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join(xdg, "freqaug"))
	assert.Equal(t, "/etc/freqaug", paths[len(paths)-1])
}
