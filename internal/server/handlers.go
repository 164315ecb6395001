package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/freqaug/internal/augment"
	"github.com/MeKo-Tech/freqaug/internal/tensor"
	"github.com/MeKo-Tech/freqaug/internal/utils"
	"github.com/MeKo-Tech/freqaug/internal/version"
)

const defaultUploadMB = 50

// Error types reported in AugmentResponse.ErrorType.
const (
	errInvalidRequest     = "invalid_request"
	errInvalidBatch       = "invalid_batch"
	errShapeMismatch      = "shape_mismatch"
	errUnsupportedVariant = "unsupported_variant"
	errDeviceMismatch     = "device_mismatch"
	errOverlayUnavailable = "overlay_unavailable"
	errPayloadTooLarge    = "payload_too_large"
	errProcessing         = "processing_error"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Get().Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// variantsHandler lists the augmentation variants.
func (s *Server) variantsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vs := augment.Variants()
	list := make([]VariantInfo, len(vs))
	for i, v := range vs {
		list[i] = VariantInfo{Name: v.String(), Family: v.Family().String(), Description: v.Description()}
	}
	s.writeJSON(w, http.StatusOK, VariantsResponse{
		Variants: list,
		Count:    len(list),
		Default:  s.defaultVariant.String(),
	})
}

// augmentHandler augments a JSON-encoded batch.
func (s *Server) augmentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.ContentLength > 0 {
		uploadSizeBytes.Observe(float64(r.ContentLength))
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())

	var req AugmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, errPayloadTooLarge, "request body too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, errInvalidRequest, "failed to parse request: "+err.Error(), http.StatusBadRequest)
		}
		augmentRequestsTotal.WithLabelValues("json", "error").Inc()
		return
	}

	resp, status := s.runAugment(&req)
	augmentRequestsTotal.WithLabelValues("json", statusLabel(status)).Inc()
	s.writeJSON(w, status, resp)
}

// augmentImageHandler augments an uploaded image and returns it as PNG.
// The image is resized to size×size before augmentation.
func (s *Server) augmentImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, errType, err := s.processImageUpload(w, r)
	augmentRequestsTotal.WithLabelValues("image", statusLabel(status)).Inc()
	if err != nil {
		s.writeErrorResponse(w, errType, err.Error(), status)
	}
}

func (s *Server) processImageUpload(w http.ResponseWriter, r *http.Request) (int, string, error) {
	limit := s.uploadLimit()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, errPayloadTooLarge, errors.New("file too large")
		}
		return http.StatusBadRequest, errInvalidRequest, errors.New("failed to parse form data")
	}
	if r.ContentLength > 0 {
		uploadSizeBytes.Observe(float64(r.ContentLength))
	}

	variant := s.defaultVariant
	if name := formOrQuery(r, "variant"); name != "" {
		v, err := augment.ParseVariant(name)
		if err != nil {
			return http.StatusBadRequest, errUnsupportedVariant, err
		}
		variant = v
	}
	size := s.imageSize
	if raw := formOrQuery(r, "size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return http.StatusBadRequest, errInvalidRequest, errors.New("size must be a positive integer")
		}
		if n > s.maxImageSize {
			return http.StatusBadRequest, errInvalidRequest, fmt.Errorf("size %d exceeds the maximum of %d", n, s.maxImageSize)
		}
		size = n
	}
	var seed *uint64
	if raw := formOrQuery(r, "seed"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return http.StatusBadRequest, errInvalidRequest, errors.New("seed must be an unsigned integer")
		}
		seed = &n
	}

	x, err := uploadedBatch(r, "image", size)
	if err != nil {
		return http.StatusBadRequest, errInvalidRequest, err
	}
	var x2 *tensor.Batch
	if r.MultipartForm != nil && len(r.MultipartForm.File["reference"]) > 0 {
		x2, err = uploadedBatch(r, "reference", size)
		if err != nil {
			return http.StatusBadRequest, errInvalidRequest, err
		}
	}

	eng, err := s.newEngine(seed, nil)
	if err != nil {
		return http.StatusBadRequest, errInvalidRequest, err
	}
	res, err := eng.Transform(x, x2, variant)
	if err != nil {
		errType, status := classifyError(err)
		return status, errType, err
	}

	imgs, err := utils.BatchToImages(res.Batch, 0, utils.PixelScale)
	if err != nil {
		return http.StatusInternalServerError, errProcessing, err
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Augment-Variant", variant.String())
	w.Header().Set("X-Augment-Applied", strconv.FormatBool(res.Applied))
	if err := imaging.Encode(w, imgs[0], imaging.PNG); err != nil {
		s.logger.Error("failed to encode augmented image", "error", err)
	}
	return http.StatusOK, "", nil
}

// uploadedBatch decodes the multipart file field into a (1,3,size,size)
// batch in the 0..255 range.
func uploadedBatch(r *http.Request, field string, size int) (*tensor.Batch, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errors.New("no " + field + " file provided")
	}
	defer func() { _ = file.Close() }()

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		return nil, err
	}
	img, err = utils.ResizeImage(img, size, size)
	if err != nil {
		return nil, err
	}
	return utils.ImagesToBatch([]image.Image{img}, 1, utils.PixelScale)
}

// runAugment executes one request and returns the response with the HTTP
// status that describes it.
func (s *Server) runAugment(req *AugmentRequest) (*AugmentResponse, int) {
	resp := &AugmentResponse{RequestID: req.ID}

	variant := s.defaultVariant
	if req.Variant != "" {
		v, err := augment.ParseVariant(req.Variant)
		if err != nil {
			return resp.fail(errUnsupportedVariant, err), http.StatusBadRequest
		}
		variant = v
	}
	resp.Variant = variant.String()

	if req.Batch == nil {
		return resp.fail(errInvalidRequest, errors.New("missing batch")), http.StatusBadRequest
	}
	x, err := req.Batch.toBatch()
	if err != nil {
		return resp.fail(errInvalidBatch, err), http.StatusBadRequest
	}
	batchElements.Observe(float64(len(x.Data)))

	var x2 *tensor.Batch
	if req.Reference != nil {
		if x2, err = req.Reference.toBatch(); err != nil {
			return resp.fail(errInvalidBatch, err), http.StatusBadRequest
		}
	}

	eng, err := s.newEngine(req.Seed, req.FreqAlpha)
	if err != nil {
		return resp.fail(errInvalidRequest, err), http.StatusBadRequest
	}
	res, err := eng.Transform(x, x2, variant)
	if err != nil {
		errType, status := classifyError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("augmentation failed", "variant", variant.String(), "error", err)
		}
		return resp.fail(errType, err), status
	}

	resp.Success = true
	resp.Applied = res.Applied
	if res.Params.Ring != nil || res.Params.Band != nil || len(res.Params.Coefficients) > 0 {
		resp.Params = &res.Params
	}
	resp.Batch = newBatchPayload(res.Batch)
	return resp, http.StatusOK
}

func (r *AugmentResponse) fail(errType string, err error) *AugmentResponse {
	r.Success = false
	r.ErrorType = errType
	r.Error = err.Error()
	return r
}

// classifyError maps engine errors to an error type and HTTP status.
func classifyError(err error) (string, int) {
	switch {
	case errors.Is(err, augment.ErrShapeMismatch):
		return errShapeMismatch, http.StatusBadRequest
	case errors.Is(err, augment.ErrUnsupportedVariant):
		return errUnsupportedVariant, http.StatusBadRequest
	case errors.Is(err, augment.ErrDeviceMismatch):
		return errDeviceMismatch, http.StatusBadRequest
	case errors.Is(err, augment.ErrNoOverlaySource):
		return errOverlayUnavailable, http.StatusServiceUnavailable
	default:
		return errProcessing, http.StatusInternalServerError
	}
}

func statusLabel(status int) string {
	if status == http.StatusOK {
		return "success"
	}
	return "error"
}

func formOrQuery(r *http.Request, key string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}

func (s *Server) uploadLimit() int64 {
	mb := s.maxUploadMB
	if mb <= 0 {
		mb = defaultUploadMB
	}
	return mb << 20
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, errType, message string, status int) {
	s.writeJSON(w, status, AugmentResponse{Success: false, Error: message, ErrorType: errType})
}
