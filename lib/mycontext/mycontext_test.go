package mycontext

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextFromHTTPRequest(t *testing.T) {
	t.Run("Cloud trace header", func(t *testing.T) {
		t.Setenv("GOOGLE_CLOUD_PROJECT", "studio")
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Cloud-Trace-Context", "105445aa7843bc8bf206b12000100000/1;o=1")

		c := ContextFromHTTPRequest(r)
		assert.Equal(t, "projects/studio/traces/105445aa7843bc8bf206b12000100000", TraceFromContext(c))
	})

	t.Run("Request id fallback", func(t *testing.T) {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-Id", "req-1")

		assert.Equal(t, "req-1", TraceFromContext(ContextFromHTTPRequest(r)))
	})

	t.Run("Request cancellation propagates", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		r, _ := http.NewRequestWithContext(parent, http.MethodGet, "/", nil)
		c := ContextFromHTTPRequest(r)
		cancel()
		assert.Error(t, c.Err())
	})

	t.Run("No trace", func(t *testing.T) {
		assert.Equal(t, "", TraceFromContext(context.Background()))
	})
}
