package server

import (
	"bytes"
	"encoding/json"
	"image"
	_ "image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/freqaug/internal/augment"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
	"github.com/MeKo-Tech/freqaug/internal/testutil"
)

func testConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           0,
		CORSOrigin:     "*",
		MaxUploadMB:    1,
		TimeoutSec:     5,
		Engine:         augment.DefaultConfig(),
		DefaultVariant: augment.MaskRing,
		ImageSize:      16,
		Logger:         slog.New(slog.DiscardHandler),
	}
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *Server {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func payloadOf(b *tensor.Batch) *BatchPayload {
	return &BatchPayload{Shape: b.Shape, Data: b.Data, Device: b.Device.String()}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/augment", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeAugment(t *testing.T, w *httptest.ResponseRecorder) AugmentResponse {
	t.Helper()
	var resp AugmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// pngBytes encodes a gradient test image.
func pngBytes(t *testing.T, w, h int, phase float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := testutil.GradientImage(testutil.ImageSize{Width: w, Height: h}, phase)
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

// multipartRequest builds a POST with the given file fields.
func multipartRequest(t *testing.T, url string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}
