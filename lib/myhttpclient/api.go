package myhttpclient

import (
	"context"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second
)

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte

	// NoRetry sends the request exactly once, for calls that are not idempotent.
	NoRetry bool
}

type HTTPSender interface {
	Send(c context.Context, req Request) (int, []byte, error)
}

// New returns a sender that bounds every call by timeout and retries at most once, and only
// on transport failures or 5xx responses.
func New(timeout time.Duration) *Client {
	return newRetryingClient(timeout)
}
