// Package analysis talks to the analyze endpoint and normalizes its
// heterogeneous response shapes into a fixed prediction schema.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/apperror"
	"github.com/gusuihan4-tech/kaluli/internal/model"
)

// Client sends prepared images to the analysis endpoint.
type Client struct {
	endpoint string
	hc       *http.Client
	log      *zap.Logger
}

// NewClient builds a Client for the given endpoint URL. A non-positive
// timeout falls back to 30s.
func NewClient(endpoint string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: timeout},
		log:      log,
	}
}

// envelope is the endpoint's wire format. Predictions stays raw so the
// shape-tolerant normalizer can deal with whatever the upstream produced.
type envelope struct {
	Success     bool            `json:"success"`
	Predictions json.RawMessage `json:"predictions"`
	Items       json.RawMessage `json:"items"`
	Outputs     json.RawMessage `json:"outputs"`
	Results     json.RawMessage `json:"results"`
	Error       string          `json:"error"`
}

// Analyze sends one encoded image and returns the normalized predictions.
// Zero predictions is a valid result, not an error. Failures are classified
// per the apperror taxonomy; the caller decides whether to queue.
func (c *Client) Analyze(ctx context.Context, image string) ([]model.Prediction, error) {
	body, err := json.Marshal(model.AnalyzeRequest{Image: image})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperror.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperror.HTTPError{Status: resp.StatusCode, Message: endpointMessage(raw)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperror.ErrEmptyResponse
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrParse, err)
	}
	if !env.Success {
		// endpoint reported failure inside a 2xx envelope; same retry
		// class as a rejected status
		return nil, &apperror.HTTPError{Status: resp.StatusCode, Message: env.Error}
	}

	preds := Normalize(firstPresent(env.Predictions, env.Items, env.Outputs, env.Results))
	c.log.Debug("analysis complete",
		zap.Int("predictions", len(preds)),
		zap.Duration("duration", time.Since(start)))
	return preds, nil
}

func firstPresent(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if len(c) > 0 && string(c) != "null" {
			return c
		}
	}
	return nil
}

// endpointMessage pulls the error string out of a failure body, falling
// back to the raw text.
func endpointMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != "" {
		return env.Error
	}
	const max = 200
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
