package myerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type teapotError struct{}

func (teapotError) Error() string         { return "short and stout" }
func (teapotError) GetHTTPErrorCode() int { return http.StatusTeapot }

func TestGetHTTPStatus(t *testing.T) {
	cause := errors.New("ledger unreachable")

	testCases := []struct {
		name       string
		in         error
		httpStatus int
		errorText  string
	}{
		{
			name:       "plain error is internal",
			in:         cause,
			httpStatus: http.StatusInternalServerError,
			errorText:  "ledger unreachable",
		},
		{
			name:       "nil error",
			in:         nil,
			httpStatus: http.StatusInternalServerError,
		},
		{
			name:       "invalid input",
			in:         NewInvalidInputErrorf("missing field %q", "text"),
			httpStatus: http.StatusBadRequest,
			errorText:  `status: 400, err: missing field "text"`,
		},
		{
			name:       "not found",
			in:         NewNotFoundError(cause),
			httpStatus: http.StatusNotFound,
			errorText:  "status: 404, err: ledger unreachable",
		},
		{
			name:       "unavailable",
			in:         NewUnavailableError(cause),
			httpStatus: http.StatusServiceUnavailable,
			errorText:  "status: 503, err: ledger unreachable",
		},
		{
			name:       "wrapped keeps status",
			in:         fmt.Errorf("warmup: %w", NewUnavailableError(cause)),
			httpStatus: http.StatusServiceUnavailable,
			errorText:  "warmup: status: 503, err: ledger unreachable",
		},
		{
			name:       "foreign coder",
			in:         fmt.Errorf("brewing: %w", teapotError{}),
			httpStatus: http.StatusTeapot,
			errorText:  "brewing: short and stout",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.httpStatus, GetHTTPStatus(tc.in))
			if tc.in != nil {
				assert.Equal(t, tc.errorText, tc.in.Error())
			}
		})
	}

	t.Run("unwraps to cause", func(t *testing.T) {
		assert.ErrorIs(t, NewInternalError(cause), cause)
	})
}
