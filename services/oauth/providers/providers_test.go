package providers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/poststudio/lib/myerrors"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

func TestProviders(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProviders("").Get("myspace")
		assert.Error(t, err)
		assert.Equal(t, http.StatusNotFound, myerrors.GetHTTPStatus(err))
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		p := NewProviders("")
		p.Set(oauthmodel.ProviderTwitter, "client-id", "", "/api/auth/twitter/callback")
		twitter, err := p.Get(oauthmodel.ProviderTwitter)
		require.NoError(t, err)

		err = twitter.Validate()
		assert.True(t, oautherrors.IsKind(err, oautherrors.KindConfiguration))
		assert.Equal(t, "twitter is not configured", err.(*oautherrors.Error).UserMessage())
	})

	t.Run("configured provider", func(t *testing.T) {
		p := NewProviders("v20.0")
		p.Set(oauthmodel.ProviderFacebook, "app-id", "app-secret", "/api/auth/facebook/callback")
		p.SetHostnames(oauthmodel.ProviderFacebook, "http://auth.local", "http://token.local", "http://graph.local")

		facebook, err := p.Get(oauthmodel.ProviderFacebook)
		require.NoError(t, err)
		assert.NoError(t, facebook.Validate())
		assert.Equal(t, "http://localhost:8080/api/auth/facebook/callback", facebook.CompletionURL("http://localhost:8080"))

		cfg := facebook.OAuth2Config("http://localhost:8080")
		assert.Equal(t, "http://auth.local/v20.0/dialog/oauth", cfg.Endpoint.AuthURL)
		assert.Equal(t, "http://token.local/v20.0/oauth/access_token", cfg.Endpoint.TokenURL)
		assert.Equal(t, "http://graph.local/v20.0/me/accounts", facebook.PagesURL.GetFullURL())
		assert.Equal(t, []string{"pages_show_list", "pages_manage_posts", "pages_read_engagement"}, cfg.Scopes)
	})

	t.Run("absolute redirect uri is kept", func(t *testing.T) {
		p := NewProviders("")
		p.Set(oauthmodel.ProviderTwitter, "id", "secret", "https://studio.example.com/api/auth/twitter/callback")
		twitter, err := p.Get(oauthmodel.ProviderTwitter)
		require.NoError(t, err)
		assert.Equal(t, "https://studio.example.com/api/auth/twitter/callback", twitter.CompletionURL("http://localhost:8080"))
	})

	t.Run("oauth1", func(t *testing.T) {
		p := NewProviders("")
		oauth1, err := p.GetOAuth1(oauthmodel.ProviderTwitter)
		require.NoError(t, err)
		assert.True(t, oautherrors.IsKind(oauth1.Validate(), oautherrors.KindConfiguration))

		p.SetOAuth1(oauthmodel.ProviderTwitter, "ck", "cs", "/api/auth/twitter/oauth1/callback")
		p.SetHostnames(oauthmodel.ProviderTwitter, "", "", "http://api.local")
		oauth1, err = p.GetOAuth1(oauthmodel.ProviderTwitter)
		require.NoError(t, err)
		assert.NoError(t, oauth1.Validate())
		assert.Equal(t, "http://api.local/oauth/request_token", oauth1.RequestTokenEndpoint.GetFullURL())
		assert.Equal(t, "https://api.twitter.com/oauth/authorize", oauth1.AuthorizeEndpoint.GetFullURL())
		assert.Equal(t, "http://api.local/2/tweets", oauth1.PostEndpoint.GetFullURL())
	})
}
