package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Common transport errors.
var (
	// ErrTimeout means the request exceeded the configured deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrNetwork covers transport-level faults: DNS failures,
	// connection resets, unreachable hosts.
	ErrNetwork = errors.New("network error")
)

// UpstreamError means the backend was reachable but reported failure,
// either as a non-success HTTP status or as an error payload. Status
// is zero for payload-level failures.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		if e.Message != "" {
			return fmt.Sprintf("upstream error: status %d: %s", e.Status, e.Message)
		}
		return fmt.Sprintf("upstream error: status %d", e.Status)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}
