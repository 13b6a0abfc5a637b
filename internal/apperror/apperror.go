// Package apperror defines the failure taxonomy shared by the analysis
// pipeline and the stores.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the pipeline distinguishes.
var (
	// ErrDecode means the input could not be decoded as an image.
	// Terminal: nothing is queued.
	ErrDecode = errors.New("image could not be decoded")

	// ErrNetwork means the endpoint was unreachable or the transport
	// failed (including timeout). Triggers enqueue for later retry.
	ErrNetwork = errors.New("network failure")

	// ErrEmptyResponse means the endpoint answered success with no
	// usable content. Terminal for the attempt.
	ErrEmptyResponse = errors.New("empty response from endpoint")

	// ErrParse means the endpoint returned undecodable content.
	// Terminal for the attempt.
	ErrParse = errors.New("unparseable response from endpoint")

	// ErrStorage means a persisted read or write failed.
	ErrStorage = errors.New("storage failure")
)

// HTTPError is an endpoint-reachable-but-rejected failure. Status is the
// HTTP status code; a 2xx status with a success=false envelope is also
// reported through this type so both cases follow the same retry path.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("endpoint error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("endpoint error %d", e.Status)
}

// ShouldQueue reports whether a failed analysis attempt should be diverted
// into the offline queue. Network and endpoint failures are retryable;
// decode and content errors are not.
func ShouldQueue(err error) bool {
	var httpErr *HTTPError
	return errors.Is(err, ErrNetwork) || errors.As(err, &httpErr)
}
