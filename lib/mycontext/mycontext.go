package mycontext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// CtxTraceContext is a context key for the trace context this (used by mylog)
type CtxTraceContext struct{}

// ContextFromHTTPRequest derives the request context and annotates it with the trace of the
// incoming request. Cancellation of the request propagates.
func ContextFromHTTPRequest(r *http.Request) context.Context {
	return context.WithValue(r.Context(), CtxTraceContext{}, traceFromRequest(r))
}

func traceFromRequest(r *http.Request) string {
	traceContext := r.Header.Get("X-Cloud-Trace-Context")
	traceParts := strings.Split(traceContext, "/")

	if len(traceParts) > 0 && len(traceParts[0]) > 0 {
		projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
		return fmt.Sprintf("projects/%s/traces/%s", projectID, traceParts[0])
	}

	return r.Header.Get("X-Request-Id")
}

// TraceFromContext returns the trace stored by ContextFromHTTPRequest, or "".
func TraceFromContext(c context.Context) string {
	if c == nil {
		return ""
	}
	trace, _ := c.Value(CtxTraceContext{}).(string)
	return trace
}
