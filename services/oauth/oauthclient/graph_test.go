package oauthclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

func TestExchangeLongLivedToken(t *testing.T) {
	c := context.TODO()

	t.Run("success", func(t *testing.T) {
		ts, cleanup := RunProviderServer(t, map[string]http.HandlerFunc{
			"/v19.0/oauth/access_token": func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				q := r.URL.Query()
				assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
				assert.Equal(t, "fb-app-id", q.Get("client_id"))
				assert.Equal(t, "fb-app-secret", q.Get("client_secret"))
				assert.Equal(t, "short-lived", q.Get("fb_exchange_token"))
				writeJSON(w, http.StatusOK, `{"access_token":"long-lived","token_type":"bearer","expires_in":5184000}`)
			},
		})
		defer cleanup()

		resp, err := newClient(ts.URL).ExchangeLongLivedToken(c, LongLivedTokenRequest{
			ProviderName: oauthmodel.ProviderFacebook,
			AccessToken:  "short-lived",
		})
		require.NoError(t, err)
		assert.Equal(t, "long-lived", resp.AccessToken)
		assert.Equal(t, 5184000, resp.ExpiresIn)
		assert.Equal(t, mytime.ExampleTime.Add(60*24*time.Hour), resp.ExpiresAt)
	})

	t.Run("provider error", func(t *testing.T) {
		ts, cleanup := RunProviderServer(t, map[string]http.HandlerFunc{
			"/v19.0/oauth/access_token": func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`)
			},
		})
		defer cleanup()

		_, err := newClient(ts.URL).ExchangeLongLivedToken(c, LongLivedTokenRequest{
			ProviderName: oauthmodel.ProviderFacebook,
			AccessToken:  "short-lived",
		})
		assert.True(t, oautherrors.IsKind(err, oautherrors.KindExchangeFailed))
		assert.NotContains(t, err.Error(), "fb-app-secret")
	})
}

func TestGetProfile(t *testing.T) {
	c := context.TODO()

	ts, cleanup := RunProviderServer(t, map[string]http.HandlerFunc{
		"/2/users/me": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer abc123" {
				writeJSON(w, http.StatusUnauthorized, `{"title":"Unauthorized","status":401}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"data":{"id":"2244994945","name":"Marc Grol","username":"marcgrol"}}`)
		},
		"/v19.0/me": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer long-lived", r.Header.Get("Authorization"))
			assert.Equal(t, "id,name", r.URL.Query().Get("fields"))
			writeJSON(w, http.StatusOK, `{"id":"10001","name":"Marc Grol"}`)
		},
	})
	defer cleanup()
	client := newClient(ts.URL)

	t.Run("twitter", func(t *testing.T) {
		profile, err := client.GetProfile(c, ProfileRequest{ProviderName: oauthmodel.ProviderTwitter, AccessToken: "abc123"})
		require.NoError(t, err)
		assert.Equal(t, oauthmodel.Profile{ID: "2244994945", DisplayName: "Marc Grol", Username: "marcgrol"}, profile)
	})

	t.Run("facebook", func(t *testing.T) {
		profile, err := client.GetProfile(c, ProfileRequest{ProviderName: oauthmodel.ProviderFacebook, AccessToken: "long-lived"})
		require.NoError(t, err)
		assert.Equal(t, oauthmodel.Profile{ID: "10001", DisplayName: "Marc Grol"}, profile)
	})

	t.Run("unauthorized", func(t *testing.T) {
		_, err := client.GetProfile(c, ProfileRequest{ProviderName: oauthmodel.ProviderTwitter, AccessToken: "wrong"})
		assert.True(t, oautherrors.IsKind(err, oautherrors.KindExchangeFailed))
		assert.Equal(t, http.StatusUnauthorized, err.(*oautherrors.Error).ProviderStatus)
	})
}

func TestGetManagedPages(t *testing.T) {
	c := context.TODO()

	var serverURL string
	ts, cleanup := RunProviderServer(t, map[string]http.HandlerFunc{
		"/v19.0/me/accounts": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer long-lived", r.Header.Get("Authorization"))
			if r.URL.Query().Get("after") == "" {
				writeJSON(w, http.StatusOK, `{"data":[{"id":"p1","name":"Bakery","access_token":"page-token-1","category":"Food"}],"paging":{"next":"`+serverURL+`/v19.0/me/accounts?after=p1"}}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"data":[{"id":"p2","name":"Garage","access_token":"page-token-2","category":"Automotive"}],"paging":{}}`)
		},
	})
	defer cleanup()
	serverURL = ts.URL

	t.Run("follows paging", func(t *testing.T) {
		pages, err := newClient(ts.URL).GetManagedPages(c, PagesRequest{ProviderName: oauthmodel.ProviderFacebook, AccessToken: "long-lived"})
		require.NoError(t, err)
		assert.Equal(t, []oauthmodel.PageToken{
			{PageID: "p1", AccessToken: "page-token-1", DisplayName: "Bakery", Category: "Food"},
			{PageID: "p2", AccessToken: "page-token-2", DisplayName: "Garage", Category: "Automotive"},
		}, pages)
	})

	t.Run("twitter has no pages", func(t *testing.T) {
		pages, err := newClient(ts.URL).GetManagedPages(c, PagesRequest{ProviderName: oauthmodel.ProviderTwitter, AccessToken: "abc123"})
		require.NoError(t, err)
		assert.Empty(t, pages)
	})
}

func TestGetManagedPagesStaysOnGraphHost(t *testing.T) {
	c := context.TODO()

	leaked := int32(0)
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&leaked, 1)
		writeJSON(w, http.StatusOK, `{"data":[],"paging":{}}`)
	}))
	defer other.Close()
	otherHost := strings.TrimPrefix(other.URL, "http://")

	tests := []struct {
		name string
		next func(graphURL string) string
	}{
		{name: "userinfo", next: func(graphURL string) string { return graphURL + "@" + otherHost + "/steal" }},
		{name: "host suffix", next: func(graphURL string) string { return graphURL + ".evil.example/steal" }},
		{name: "other host", next: func(graphURL string) string { return other.URL + "/v19.0/me/accounts?after=p1" }},
		{name: "relative", next: func(graphURL string) string { return "/v19.0/me/accounts?after=p1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var graphURL string
			ts, cleanup := RunProviderServer(t, map[string]http.HandlerFunc{
				"/v19.0/me/accounts": func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusOK, `{"data":[{"id":"p1","name":"Bakery","access_token":"page-token-1"}],"paging":{"next":"`+tt.next(graphURL)+`"}}`)
				},
			})
			defer cleanup()
			graphURL = ts.URL

			pages, err := newClient(ts.URL).GetManagedPages(c, PagesRequest{ProviderName: oauthmodel.ProviderFacebook, AccessToken: "user-token"})
			require.NoError(t, err)
			assert.Len(t, pages, 1)
			assert.Equal(t, int32(0), atomic.LoadInt32(&leaked))
		})
	}
}

func TestSameOrigin(t *testing.T) {
	assert.True(t, sameOrigin("https://graph.facebook.com/v19.0/me/accounts?after=x", "https://graph.facebook.com"))
	assert.True(t, sameOrigin("https://Graph.Facebook.com/v19.0/me/accounts", "https://graph.facebook.com"))
	assert.False(t, sameOrigin("https://graph.facebook.com@evil.example/steal", "https://graph.facebook.com"))
	assert.False(t, sameOrigin("https://graph.facebook.com.evil.example/steal", "https://graph.facebook.com"))
	assert.False(t, sameOrigin("http://graph.facebook.com/v19.0/me/accounts", "https://graph.facebook.com"))
	assert.False(t, sameOrigin("/v19.0/me/accounts", "https://graph.facebook.com"))
}

func TestExchangeLongLivedTokenWithoutExpiry(t *testing.T) {
	ts, cleanup := RunProviderServer(t, map[string]http.HandlerFunc{
		"/v19.0/oauth/access_token": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"access_token":"long-lived","token_type":"bearer"}`)
		},
	})
	defer cleanup()

	resp, err := newClient(ts.URL).ExchangeLongLivedToken(context.TODO(), LongLivedTokenRequest{
		ProviderName: oauthmodel.ProviderFacebook,
		AccessToken:  "short-lived",
	})
	require.NoError(t, err)
	assert.Equal(t, "long-lived", resp.AccessToken)
	assert.Equal(t, 60*24*60*60, resp.ExpiresIn)
	assert.Equal(t, mytime.ExampleTime.Add(60*24*time.Hour), resp.ExpiresAt)
}
