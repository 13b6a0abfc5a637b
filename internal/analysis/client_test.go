package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gusuihan4-tech/kaluli/internal/apperror"
)

const testImage = "data:image/jpeg;base64,dGVzdA=="

func newClientFor(srv *httptest.Server) *Client {
	return NewClient(srv.URL, 2*time.Second, nil)
}

func TestAnalyze_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testImage, body["image"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"predictions":[
			{"name":"Apple","calories":95,"confidence":0.98,"portion_g":150},
			{"name":"Orange Juice","calories":110,"confidence":0.85,"portion_g":200}
		]}`))
	}))
	defer srv.Close()

	preds, err := newClientFor(srv).Analyze(context.Background(), testImage)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Apple", preds[0].Name)
	require.NotNil(t, preds[0].Calories)
	assert.Equal(t, 95.0, *preds[0].Calories)
}

func TestAnalyze_EmptyPredictionListIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"predictions":[]}`))
	}))
	defer srv.Close()

	preds, err := newClientFor(srv).Analyze(context.Background(), testImage)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestAnalyze_NonSuccessStatusIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"success":false,"error":"AI API Error: 502"}`))
	}))
	defer srv.Close()

	_, err := newClientFor(srv).Analyze(context.Background(), testImage)
	var httpErr *apperror.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
	assert.Contains(t, httpErr.Message, "AI API Error")
	assert.True(t, apperror.ShouldQueue(err))
}

func TestAnalyze_SuccessFalseEnvelopeIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"quota exceeded"}`))
	}))
	defer srv.Close()

	_, err := newClientFor(srv).Analyze(context.Background(), testImage)
	var httpErr *apperror.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.True(t, apperror.ShouldQueue(err))
}

func TestAnalyze_EmptyBodyIsEmptyResponseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newClientFor(srv).Analyze(context.Background(), testImage)
	assert.True(t, errors.Is(err, apperror.ErrEmptyResponse))
	assert.False(t, apperror.ShouldQueue(err))
}

func TestAnalyze_MalformedJSONIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy error</html>`))
	}))
	defer srv.Close()

	_, err := newClientFor(srv).Analyze(context.Background(), testImage)
	assert.True(t, errors.Is(err, apperror.ErrParse))
	assert.False(t, apperror.ShouldQueue(err))
}

func TestAnalyze_UnreachableEndpointIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // nothing listening anymore

	_, err := newClientFor(srv).Analyze(context.Background(), testImage)
	assert.True(t, errors.Is(err, apperror.ErrNetwork))
	assert.True(t, apperror.ShouldQueue(err))
}

func TestAnalyze_TimeoutIsNetworkError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	c := NewClient(srv.URL, 50*time.Millisecond, nil)
	_, err := c.Analyze(context.Background(), testImage)
	assert.True(t, errors.Is(err, apperror.ErrNetwork))
}

func TestAnalyze_AlternateListFieldNames(t *testing.T) {
	for _, field := range []string{"items", "predictions", "outputs", "results"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"` + field + `":[{"name":"Rice"}]}`))
		}))

		preds, err := newClientFor(srv).Analyze(context.Background(), testImage)
		srv.Close()
		require.NoError(t, err, "field %s", field)
		require.Len(t, preds, 1, "field %s", field)
		assert.Equal(t, "Rice", preds[0].Name)
	}
}
