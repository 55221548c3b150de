package mylog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/poststudio/lib/mycontext"
)

func TestLogger(t *testing.T) {
	t.Cleanup(func() {
		Configure(os.Stderr, "INFO", "text")
	})

	t.Run("Json format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		Configure(buf, "DEBUG", "json")

		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-Id", "req-42")
		c := mycontext.ContextFromHTTPRequest(r)

		New("oauth").Log(c, "twitter", SeverityWarn, "exchange failed: %d", 502)

		entry := map[string]any{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "WARNING", entry["severity"])
		assert.Equal(t, "exchange failed: 502", entry["message"])
		assert.Equal(t, "oauth", entry["component"])
		assert.Equal(t, "twitter", entry["aggregate"])
		assert.Equal(t, "req-42", entry["logging.googleapis.com/trace"])
	})

	t.Run("Level filters", func(t *testing.T) {
		buf := &bytes.Buffer{}
		Configure(buf, "WARN", "text")

		New("oauth").Log(context.Background(), "", SeverityInfo, "hidden")
		assert.Empty(t, buf.String())

		New("oauth").Log(context.Background(), "", SeverityError, "shown")
		assert.Contains(t, buf.String(), "shown")
		assert.Contains(t, buf.String(), "component=oauth")
	})
}
