package oautherrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/poststudio/lib/myerrors"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "configuration", err: NewConfigurationError("twitter", "client id"), status: http.StatusInternalServerError},
		{name: "denied", err: NewProviderDenied("access_denied", "user said no"), status: http.StatusForbidden},
		{name: "malformed", err: NewMalformedCallback("code"), status: http.StatusBadRequest},
		{name: "csrf", err: NewCsrfValidationFailed(nil), status: http.StatusForbidden},
		{name: "missing verifier", err: NewMissingVerifier(), status: http.StatusBadRequest},
		{name: "exchange 400 propagated", err: NewExchangeFailed(400, `{"error":"invalid_grant"}`, nil), status: http.StatusBadRequest},
		{name: "exchange 500 is bad gateway", err: NewExchangeFailed(500, "", nil), status: http.StatusBadGateway},
		{name: "refresh", err: NewRefreshError(0, "", nil), status: http.StatusUnauthorized},
		{name: "network", err: NewNetworkError(fmt.Errorf("timeout")), status: http.StatusServiceUnavailable},
		{name: "wrapped", err: fmt.Errorf("step failed: %w", NewMalformedCallback("state")), status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, myerrors.GetHTTPStatus(tt.err))
		})
	}
}

func TestUserMessageHidesProviderBody(t *testing.T) {
	err := NewExchangeFailed(401, `{"error":"invalid_client","client_secret":"s3cr3t"}`, nil)
	assert.NotContains(t, err.UserMessage(), "s3cr3t")
	assert.Equal(t, `{"error":"invalid_client","client_secret":"s3cr3t"}`, err.ProviderBody)
}

func TestProviderDeniedVerbatim(t *testing.T) {
	assert.Equal(t, "access_denied: The user denied the request", NewProviderDenied("access_denied", "The user denied the request").UserMessage())
	assert.Equal(t, "access_denied", NewProviderDenied("access_denied", "").UserMessage())
}

func TestKind(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("refresh: %w", NewNetworkError(cause))

	assert.True(t, IsKind(err, KindNetworkError))
	assert.False(t, IsKind(err, KindRefreshError))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &Error{Kind: KindNetworkError})
	assert.NotErrorIs(t, err, &Error{Kind: KindRefreshError})

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}
