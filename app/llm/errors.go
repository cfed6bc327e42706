package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrMissingAPIKey = errors.New("llm api key is not configured")

// HTTPError is a non-2xx answer from the chat completion endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chat completion error %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Retryable reports whether the provider may succeed on a later attempt.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
