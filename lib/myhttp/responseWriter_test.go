package myhttp

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/poststudio/lib/myerrors"
	"github.com/MarcGrol/poststudio/lib/mylog"
)

type safeError struct{}

func (e safeError) Error() string       { return "internal detail: secret=xyz" }
func (e safeError) UserMessage() string { return "Something went wrong" }
func (e safeError) ErrorKind() string   { return "ExchangeFailed" }

func TestResponseWriter(t *testing.T) {
	writer := NewWriter(mylog.New("test"))

	t.Run("Error with status", func(t *testing.T) {
		w := httptest.NewRecorder()
		writer.WriteError(context.TODO(), w, 3, myerrors.NewNotFoundError(fmt.Errorf("not here")))

		assert.Equal(t, 404, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		resp := errorResponse{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.ErrorCode)
		assert.Equal(t, "status: 404, err: not here", resp.Message)
	})

	t.Run("Error with user message", func(t *testing.T) {
		w := httptest.NewRecorder()
		writer.WriteError(context.TODO(), w, 1, safeError{})

		assert.Equal(t, 500, w.Code)
		assert.NotContains(t, w.Body.String(), "secret")
		assert.Contains(t, w.Body.String(), "Something went wrong")
		assert.Contains(t, w.Body.String(), "ExchangeFailed")
	})

	t.Run("Success", func(t *testing.T) {
		w := httptest.NewRecorder()
		writer.Write(context.TODO(), w, 200, SuccessResponse{Message: "ok"})

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{"message":"ok"}`, w.Body.String())
	})
}

func TestHostnameWithScheme(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "localhost:8080"
	assert.Equal(t, "http://localhost:8080", HostnameWithScheme(r))

	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://localhost:8080", HostnameWithScheme(r))
}
