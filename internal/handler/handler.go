// Package handler contains HTTP handlers for the analyze API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/model"
	"github.com/gusuihan4-tech/kaluli/internal/vision"
)

// Handler wraps HTTP handlers with logger, validator, and vision provider.
type Handler struct {
	log      *zap.Logger
	validate *validator.Validate
	provider vision.Provider
	mock     bool
}

// New creates a new Handler instance. When mock is true, or a request
// carries ?mock=true, analysis returns a canned prediction list without
// contacting the provider.
func New(log *zap.Logger, v *validator.Validate, p vision.Provider, mock bool) *Handler {
	return &Handler{log: log, validate: v, provider: p, mock: mock}
}

// Healthz is a simple health check endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Analyze receives one encoded image and responds with food predictions.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode json", zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, model.AnalyzeResponse{Success: false, Error: "Invalid JSON"})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Warn("validation failed", zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, model.AnalyzeResponse{Success: false, Error: "No image provided"})
		return
	}

	provider := h.provider
	if h.mock || r.URL.Query().Get("mock") == "true" {
		provider = vision.MockProvider{}
	}

	preds, err := provider.Analyze(r.Context(), req.Image)
	if err != nil {
		h.log.Error("analysis failed", zap.Error(err))
		h.writeJSON(w, http.StatusBadGateway, model.AnalyzeResponse{Success: false, Error: "Analysis failed: " + err.Error()})
		return
	}

	if preds == nil {
		preds = []model.Prediction{}
	}
	h.writeJSON(w, http.StatusOK, model.AnalyzeResponse{Success: true, Predictions: preds})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v model.AnalyzeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("unable to write response stream", zap.Error(err))
	}
}
