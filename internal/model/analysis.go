package model

// Prediction is one normalized food-item estimate from an analysis call.
// Numeric fields are pointers: the client-side normalizer keeps missing
// values as nil rather than inventing zeros.
type Prediction struct {
	Name       string   `json:"name"`
	Calories   *float64 `json:"calories"`
	Confidence *float64 `json:"confidence"`
	PortionG   *float64 `json:"portion_g"`
}

// PendingAnalysis is a queued, not-yet-delivered analysis request.
// Image is a self-describing data URI bounded by the image preparer.
type PendingAnalysis struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Image string `json:"image" validate:"required"`
}

// AnalyzeResponse is the analyze endpoint's wire envelope.
type AnalyzeResponse struct {
	Success     bool         `json:"success"`
	Predictions []Prediction `json:"predictions,omitempty"`
	Error       string       `json:"error,omitempty"`
}
