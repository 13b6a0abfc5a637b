package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gusuihan4-tech/kaluli/internal/model"
)

// stubProvider returns fixed predictions or an error.
type stubProvider struct {
	preds []model.Prediction
	err   error
	calls int
}

func (s *stubProvider) Analyze(_ context.Context, _ string) ([]model.Prediction, error) {
	s.calls++
	return s.preds, s.err
}

func postAnalyze(t *testing.T, h *Handler, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) model.AnalyzeResponse {
	t.Helper()
	var resp model.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAnalyze_Success(t *testing.T) {
	cal := 350.0
	p := &stubProvider{preds: []model.Prediction{{Name: "Pasta", Calories: &cal}}}
	h := New(zaptest.NewLogger(t), validator.New(), p, false)

	rec := postAnalyze(t, h, "/api/analyze", `{"image":"data:image/jpeg;base64,abc"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, "Pasta", resp.Predictions[0].Name)
	assert.Equal(t, 1, p.calls)
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	p := &stubProvider{}
	h := New(zaptest.NewLogger(t), validator.New(), p, false)

	rec := postAnalyze(t, h, "/api/analyze", `{broken`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid JSON", resp.Error)
	assert.Zero(t, p.calls)
}

func TestAnalyze_MissingImage(t *testing.T) {
	p := &stubProvider{}
	h := New(zaptest.NewLogger(t), validator.New(), p, false)

	rec := postAnalyze(t, h, "/api/analyze", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Zero(t, p.calls)
}

func TestAnalyze_ProviderError(t *testing.T) {
	p := &stubProvider{err: errors.New("upstream exploded")}
	h := New(zaptest.NewLogger(t), validator.New(), p, false)

	rec := postAnalyze(t, h, "/api/analyze", `{"image":"abc"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Analysis failed")
}

func TestAnalyze_MockQueryParamBypassesProvider(t *testing.T) {
	p := &stubProvider{err: errors.New("should not be called")}
	h := New(zaptest.NewLogger(t), validator.New(), p, false)

	rec := postAnalyze(t, h, "/api/analyze?mock=true", `{"image":"abc"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	require.Len(t, resp.Predictions, 2)
	assert.Equal(t, "Mock Apple", resp.Predictions[0].Name)
	assert.Zero(t, p.calls)
}

func TestAnalyze_MockConfigBypassesProvider(t *testing.T) {
	p := &stubProvider{err: errors.New("should not be called")}
	h := New(zaptest.NewLogger(t), validator.New(), p, true)

	rec := postAnalyze(t, h, "/api/analyze", `{"image":"abc"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
	assert.Zero(t, p.calls)
}

func TestAnalyze_EmptyPredictionsIsStillSuccess(t *testing.T) {
	p := &stubProvider{preds: nil}
	h := New(zaptest.NewLogger(t), validator.New(), p, false)

	rec := postAnalyze(t, h, "/api/analyze", `{"image":"abc"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Predictions)
}

func TestHealthz(t *testing.T) {
	h := New(zaptest.NewLogger(t), validator.New(), &stubProvider{}, false)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
