package oautherrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindConfiguration        Kind = "ConfigurationError"
	KindProviderDenied       Kind = "ProviderDenied"
	KindMalformedCallback    Kind = "MalformedCallback"
	KindCsrfValidationFailed Kind = "CsrfValidationFailed"
	KindMissingVerifier      Kind = "MissingVerifier"
	KindExchangeFailed       Kind = "ExchangeFailed"
	KindRefreshError         Kind = "RefreshError"
	KindNetworkError         Kind = "NetworkError"
)

// Error is the single error type of the authorization flows. Message is safe to show to users,
// ProviderBody is kept for server side diagnostics only.
type Error struct {
	Kind           Kind
	Message        string
	ProviderStatus int
	ProviderBody   string
	Cause          error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.ProviderStatus != 0 {
		msg += fmt.Sprintf(" (provider status %d)", e.ProviderStatus)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) UserMessage() string {
	return e.Message
}

func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindNetworkError}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

func (e *Error) GetHTTPErrorCode() int {
	switch e.Kind {
	case KindProviderDenied, KindCsrfValidationFailed:
		return http.StatusForbidden
	case KindMalformedCallback, KindMissingVerifier:
		return http.StatusBadRequest
	case KindExchangeFailed:
		if e.ProviderStatus >= 400 && e.ProviderStatus < 500 {
			return e.ProviderStatus
		}
		return http.StatusBadGateway
	case KindRefreshError:
		if e.ProviderStatus >= 400 && e.ProviderStatus < 500 {
			return e.ProviderStatus
		}
		return http.StatusUnauthorized
	case KindNetworkError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func NewConfigurationError(provider string, missing string) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Message: fmt.Sprintf("%s is not configured", provider),
		Cause:   fmt.Errorf("missing %s", missing),
	}
}

// NewProviderDenied keeps the provider's error and description verbatim.
func NewProviderDenied(errorCode string, description string) *Error {
	msg := errorCode
	if description != "" {
		msg = fmt.Sprintf("%s: %s", errorCode, description)
	}
	return &Error{
		Kind:    KindProviderDenied,
		Message: msg,
	}
}

func NewMalformedCallback(missing string) *Error {
	return &Error{
		Kind:    KindMalformedCallback,
		Message: fmt.Sprintf("invalid callback: missing %s", missing),
	}
}

func NewCsrfValidationFailed(cause error) *Error {
	return &Error{
		Kind:    KindCsrfValidationFailed,
		Message: "authorization state could not be verified, please try again",
		Cause:   cause,
	}
}

func NewMissingVerifier() *Error {
	return &Error{
		Kind:    KindMissingVerifier,
		Message: "authorization state is incomplete, please try again",
	}
}

func NewExchangeFailed(status int, body string, cause error) *Error {
	return &Error{
		Kind:           KindExchangeFailed,
		Message:        "could not complete authorization with the provider",
		ProviderStatus: status,
		ProviderBody:   body,
		Cause:          cause,
	}
}

func NewRefreshError(status int, body string, cause error) *Error {
	return &Error{
		Kind:           KindRefreshError,
		Message:        "credential is no longer valid, please reconnect",
		ProviderStatus: status,
		ProviderBody:   body,
		Cause:          cause,
	}
}

func NewNetworkError(cause error) *Error {
	return &Error{
		Kind:    KindNetworkError,
		Message: "provider could not be reached, please retry later",
		Cause:   cause,
	}
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) (Kind, bool) {
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
