package httpclient

import (
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// New returns a client with an overall request deadline. Outbound calls to
// the payment processor must never hang a handler.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
