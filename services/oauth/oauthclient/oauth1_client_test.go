package oauthclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/poststudio/lib/myhttpclient"
	"github.com/MarcGrol/poststudio/lib/myrandom"
	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/lib/oauthsign"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
	"github.com/MarcGrol/poststudio/services/oauth/providers"
)

// parseAuthorizationHeader reverses oauthsign.AuthorizationHeader.
func parseAuthorizationHeader(t *testing.T, header string) url.Values {
	require.True(t, strings.HasPrefix(header, "OAuth "))
	params := url.Values{}
	for _, part := range strings.Split(strings.TrimPrefix(header, "OAuth "), ", ") {
		key, quoted, found := strings.Cut(part, "=")
		require.True(t, found)
		value, err := url.PathUnescape(strings.Trim(quoted, `"`))
		require.NoError(t, err)
		params.Set(key, value)
	}
	return params
}

// verifySignature checks the request the way the provider does.
func verifySignature(t *testing.T, r *http.Request, tokenSecret string) url.Values {
	params := parseAuthorizationHeader(t, r.Header.Get("Authorization"))
	signature := params.Get("oauth_signature")
	params.Del("oauth_signature")

	expected, err := oauthsign.Signature(r.Method, "http://"+r.Host+r.URL.Path, params, "consumer-secret", tokenSecret)
	require.NoError(t, err)
	assert.Equal(t, expected, signature)

	return params
}

func newOAuth1Client(t *testing.T, hostname string) *oauth1Client {
	ctrl := gomock.NewController(t)
	nonce := myrandom.NewMockRandomStringer(ctrl)
	nonce.EXPECT().Create(gomock.Any()).Return("abc", nil).AnyTimes()

	p := providers.NewProviders("")
	p.SetOAuth1(oauthmodel.ProviderTwitter, "consumer-key", "consumer-secret", "/api/auth/twitter/oauth1/callback")
	p.SetHostnames(oauthmodel.ProviderTwitter, hostname, hostname, hostname)

	return NewOAuth1Client(p, myhttpclient.New(5*time.Second), oauthsign.NewSigner(mytime.FixedNower{Instant: time.Unix(1700000000, 0)}, nonce))
}

func TestOAuth1Client(t *testing.T) {
	c := context.TODO()

	ts, cleanup := RunProviderServer(t, map[string]http.HandlerFunc{
		"/oauth/request_token": func(w http.ResponseWriter, r *http.Request) {
			params := verifySignature(t, r, "")
			assert.Equal(t, "http://localhost:8080/api/auth/twitter/oauth1/callback", params.Get("oauth_callback"))
			assert.Equal(t, "consumer-key", params.Get("oauth_consumer_key"))
			assert.Equal(t, "abc", params.Get("oauth_nonce"))
			assert.Equal(t, "1700000000", params.Get("oauth_timestamp"))
			assert.Empty(t, params.Get("oauth_token"))
			_, _ = w.Write([]byte("oauth_token=request-token&oauth_token_secret=request-secret&oauth_callback_confirmed=true"))
		},
		"/oauth/access_token": func(w http.ResponseWriter, r *http.Request) {
			params := verifySignature(t, r, "request-secret")
			assert.Equal(t, "request-token", params.Get("oauth_token"))
			assert.Equal(t, "the-verifier", params.Get("oauth_verifier"))
			_, _ = w.Write([]byte("oauth_token=access-token&oauth_token_secret=access-secret&user_id=42&screen_name=marcgrol"))
		},
		"/2/tweets": func(w http.ResponseWriter, r *http.Request) {
			params := verifySignature(t, r, "access-secret")
			if params.Get("oauth_token") != "access-token" {
				writeJSON(w, http.StatusUnauthorized, `{"title":"Unauthorized","status":401}`)
				return
			}
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"text":"hello world"}`, string(body))
			writeJSON(w, http.StatusCreated, `{"data":{"id":"1445880548472328192","text":"hello world"}}`)
		},
	})
	defer cleanup()

	client := newOAuth1Client(t, ts.URL)

	t.Run("request token", func(t *testing.T) {
		token, err := client.GetRequestToken(c, RequestTokenRequest{ProviderName: oauthmodel.ProviderTwitter, CurrentHostname: currentHostname})
		require.NoError(t, err)
		assert.Equal(t, RequestToken{Token: "request-token", Secret: "request-secret", CallbackConfirmed: true}, token)
	})

	t.Run("authorize url", func(t *testing.T) {
		authURL, err := client.ComposeAuthorizeURL(c, oauthmodel.ProviderTwitter, "request-token")
		require.NoError(t, err)
		assert.Equal(t, ts.URL+"/oauth/authorize?oauth_token=request-token", authURL)
	})

	t.Run("access token", func(t *testing.T) {
		token, err := client.GetAccessToken(c, OAuth1AccessTokenRequest{
			ProviderName:       oauthmodel.ProviderTwitter,
			RequestToken:       "request-token",
			RequestTokenSecret: "request-secret",
			Verifier:           "the-verifier",
		})
		require.NoError(t, err)
		assert.Equal(t, OAuth1AccessToken{Token: "access-token", Secret: "access-secret", UserID: "42", ScreenName: "marcgrol"}, token)
	})

	t.Run("post", func(t *testing.T) {
		created, err := client.Post(c, PostRequest{
			ProviderName: oauthmodel.ProviderTwitter,
			Text:         "hello world",
			AccessToken:  "access-token",
			AccessSecret: "access-secret",
		})
		require.NoError(t, err)
		resp := map[string]any{}
		require.NoError(t, json.Unmarshal(created, &resp))
		assert.Contains(t, resp, "data")
	})

	t.Run("post rejected", func(t *testing.T) {
		_, err := client.Post(c, PostRequest{
			ProviderName: oauthmodel.ProviderTwitter,
			Text:         "hello world",
			AccessToken:  "revoked-token",
			AccessSecret: "access-secret",
		})
		assert.True(t, oautherrors.IsKind(err, oautherrors.KindExchangeFailed))
		assert.Equal(t, http.StatusUnauthorized, err.(*oautherrors.Error).ProviderStatus)
	})

	t.Run("not configured", func(t *testing.T) {
		unconfigured := NewOAuth1Client(providers.NewProviders(""), myhttpclient.New(time.Second), oauthsign.NewSigner(mytime.RealNower{}, myrandom.NewRandomStringer()))
		_, err := unconfigured.GetRequestToken(c, RequestTokenRequest{ProviderName: oauthmodel.ProviderTwitter})
		assert.True(t, oautherrors.IsKind(err, oautherrors.KindConfiguration))
	})
}

func TestOAuth1PostNotReplayed(t *testing.T) {
	calls := int32(0)
	ts, cleanup := RunProviderServer(t, map[string]http.HandlerFunc{
		"/2/tweets": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			writeJSON(w, http.StatusServiceUnavailable, `{"title":"Service Unavailable","status":503}`)
		},
	})
	defer cleanup()

	_, err := newOAuth1Client(t, ts.URL).Post(context.TODO(), PostRequest{
		ProviderName: oauthmodel.ProviderTwitter,
		Text:         "hello world",
		AccessToken:  "access-token",
		AccessSecret: "access-secret",
	})
	assert.True(t, oautherrors.IsKind(err, oautherrors.KindExchangeFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
