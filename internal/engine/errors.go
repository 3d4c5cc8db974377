package engine

import "fmt"

// RequestError reports a non-success HTTP status from the engine.
// It is fatal to the test case that triggered it; the harness never retries.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("engine request %s %s failed: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("engine request %s %s failed: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
