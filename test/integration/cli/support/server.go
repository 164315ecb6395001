package support

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/MeKo-Tech/freqaug/internal/augment"
	"github.com/MeKo-Tech/freqaug/internal/dataset"
	"github.com/MeKo-Tech/freqaug/internal/server"
)

// HTTPTestServerWrapper wraps an httptest.Server serving the augmentation
// routes.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// ServerOptions selects the optional parts of the test server.
type ServerOptions struct {
	Overlay           bool
	RequestsPerMinute int
}

func (testCtx *TestContext) startTestHTTPServer(opts ServerOptions) error {
	testCtx.stopTestHTTPServer()

	cfg := server.Config{
		Host:           "127.0.0.1",
		Port:           0,
		CORSOrigin:     "*",
		MaxUploadMB:    5,
		TimeoutSec:     30,
		Engine:         augment.DefaultConfig(),
		DefaultVariant: augment.MaskSquare,
		ImageSize:      16,
		Logger:         slog.New(slog.DiscardHandler),
	}
	if opts.Overlay {
		cfg.Overlay = dataset.NewNoise(nil)
	}
	if opts.RequestsPerMinute > 0 {
		cfg.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: opts.RequestsPerMinute}
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(mux),
		TestServer: srv,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Server.Close()
		testCtx.HTTPTestServer = nil
	}
}

// GetServerURL returns the base URL of the running test server.
func (testCtx *TestContext) GetServerURL() string {
	if testCtx.HTTPTestServer == nil {
		return ""
	}
	return testCtx.HTTPTestServer.Server.URL
}
