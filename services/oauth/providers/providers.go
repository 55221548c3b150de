package providers

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/MarcGrol/poststudio/lib/myerrors"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

const (
	DefaultGraphVersion = "v19.0"
	DefaultRefreshSkew  = 5 * time.Minute
)

type EndPoint struct {
	Hostname string
	Path     string
}

func (ep EndPoint) GetFullURL() string {
	return ep.Hostname + ep.Path
}

type OauthParty struct {
	Name          oauthmodel.Provider
	ClientID      string
	Secret        string
	RedirectURI   string
	AuthEndpoint  EndPoint
	TokenEndpoint EndPoint
	ProfileURL    EndPoint
	PagesURL      EndPoint
	DefaultScopes []string
	AuthStyle     oauth2.AuthStyle
	UsesPKCE      bool

	// LongLivedExchange enables the fb_exchange_token upgrade after the code exchange.
	LongLivedExchange bool
	RefreshSkew       time.Duration

	// Lifetimes assumed when a token response carries no expires_in.
	DefaultTokenLifetime   time.Duration
	LongLivedTokenLifetime time.Duration
}

type OAuth1Party struct {
	Name                 oauthmodel.Provider
	ConsumerKey          string
	ConsumerSecret       string
	CallbackURI          string
	RequestTokenEndpoint EndPoint
	AuthorizeEndpoint    EndPoint
	AccessTokenEndpoint  EndPoint
	PostEndpoint         EndPoint
}

type OAuthProvider interface {
	All() map[oauthmodel.Provider]OauthParty
	Get(providerName oauthmodel.Provider) (OauthParty, error)
	GetOAuth1(providerName oauthmodel.Provider) (OAuth1Party, error)
}

type OAuthProviders struct {
	providers map[oauthmodel.Provider]OauthParty
	oauth1    map[oauthmodel.Provider]OAuth1Party
}

func NewProviders(graphVersion string) *OAuthProviders {
	if graphVersion == "" {
		graphVersion = DefaultGraphVersion
	}
	graphVersion = "/" + strings.TrimPrefix(graphVersion, "/")

	return &OAuthProviders{
		providers: map[oauthmodel.Provider]OauthParty{
			oauthmodel.ProviderTwitter: {
				Name: oauthmodel.ProviderTwitter,
				AuthEndpoint: EndPoint{
					Hostname: "https://twitter.com",
					Path:     "/i/oauth2/authorize",
				},
				TokenEndpoint: EndPoint{
					Hostname: "https://api.twitter.com",
					Path:     "/2/oauth2/token",
				},
				ProfileURL: EndPoint{
					Hostname: "https://api.twitter.com",
					Path:     "/2/users/me",
				},
				DefaultScopes: []string{"tweet.read", "tweet.write", "users.read", "offline.access"},

				// confidential client: credentials as basic auth
				AuthStyle:   oauth2.AuthStyleInHeader,
				UsesPKCE:             true,
				RefreshSkew:          DefaultRefreshSkew,
				DefaultTokenLifetime: 2 * time.Hour,
			},
			oauthmodel.ProviderFacebook: {
				Name: oauthmodel.ProviderFacebook,
				AuthEndpoint: EndPoint{
					Hostname: "https://www.facebook.com",
					Path:     graphVersion + "/dialog/oauth",
				},
				TokenEndpoint: EndPoint{
					Hostname: "https://graph.facebook.com",
					Path:     graphVersion + "/oauth/access_token",
				},
				ProfileURL: EndPoint{
					Hostname: "https://graph.facebook.com",
					Path:     graphVersion + "/me",
				},
				PagesURL: EndPoint{
					Hostname: "https://graph.facebook.com",
					Path:     graphVersion + "/me/accounts",
				},
				DefaultScopes:     []string{"pages_show_list", "pages_manage_posts", "pages_read_engagement"},
				AuthStyle:         oauth2.AuthStyleInParams,
				LongLivedExchange:      true,
				RefreshSkew:            10 * time.Minute,
				DefaultTokenLifetime:   time.Hour,
				LongLivedTokenLifetime: 60 * 24 * time.Hour,
			},
		},
		oauth1: map[oauthmodel.Provider]OAuth1Party{
			oauthmodel.ProviderTwitter: {
				Name: oauthmodel.ProviderTwitter,
				RequestTokenEndpoint: EndPoint{
					Hostname: "https://api.twitter.com",
					Path:     "/oauth/request_token",
				},
				AuthorizeEndpoint: EndPoint{
					Hostname: "https://api.twitter.com",
					Path:     "/oauth/authorize",
				},
				AccessTokenEndpoint: EndPoint{
					Hostname: "https://api.twitter.com",
					Path:     "/oauth/access_token",
				},
				PostEndpoint: EndPoint{
					Hostname: "https://api.twitter.com",
					Path:     "/2/tweets",
				},
			},
		},
	}
}

func (op *OAuthProviders) All() map[oauthmodel.Provider]OauthParty {
	return op.providers
}

// Set overrides the credentials of a provider. Empty values leave the current value untouched.
func (op *OAuthProviders) Set(providerName oauthmodel.Provider, clientID string, secret string, redirectURI string) {
	provider, found := op.providers[providerName]
	if !found {
		provider = OauthParty{Name: providerName}
	}

	if clientID != "" {
		provider.ClientID = clientID
	}

	if secret != "" {
		provider.Secret = secret
	}

	if redirectURI != "" {
		provider.RedirectURI = redirectURI
	}

	op.providers[providerName] = provider
}

// SetHostnames points a provider to other hosts, used for staging and tests.
func (op *OAuthProviders) SetHostnames(providerName oauthmodel.Provider, authHostname string, tokenHostname string, apiHostname string) {
	provider, found := op.providers[providerName]
	if found {
		if authHostname != "" {
			provider.AuthEndpoint.Hostname = authHostname
		}
		if tokenHostname != "" {
			provider.TokenEndpoint.Hostname = tokenHostname
		}
		if apiHostname != "" {
			provider.ProfileURL.Hostname = apiHostname
			if provider.PagesURL.Path != "" {
				provider.PagesURL.Hostname = apiHostname
			}
		}
		op.providers[providerName] = provider
	}

	oauth1, found := op.oauth1[providerName]
	if found && apiHostname != "" {
		oauth1.RequestTokenEndpoint.Hostname = apiHostname
		oauth1.AccessTokenEndpoint.Hostname = apiHostname
		oauth1.PostEndpoint.Hostname = apiHostname
		if authHostname != "" {
			oauth1.AuthorizeEndpoint.Hostname = authHostname
		}
		op.oauth1[providerName] = oauth1
	}
}

func (op *OAuthProviders) SetOAuth1(providerName oauthmodel.Provider, consumerKey string, consumerSecret string, callbackURI string) {
	party, found := op.oauth1[providerName]
	if !found {
		party = OAuth1Party{Name: providerName}
	}

	if consumerKey != "" {
		party.ConsumerKey = consumerKey
	}

	if consumerSecret != "" {
		party.ConsumerSecret = consumerSecret
	}

	if callbackURI != "" {
		party.CallbackURI = callbackURI
	}

	op.oauth1[providerName] = party
}

func (op *OAuthProviders) Get(providerName oauthmodel.Provider) (OauthParty, error) {
	provider, found := op.providers[providerName]
	if !found {
		return OauthParty{}, myerrors.NewNotFoundError(fmt.Errorf("oauth provider with name '%s' not found", providerName))
	}
	return provider, nil
}

func (op *OAuthProviders) GetOAuth1(providerName oauthmodel.Provider) (OAuth1Party, error) {
	party, found := op.oauth1[providerName]
	if !found {
		return OAuth1Party{}, myerrors.NewNotFoundError(fmt.Errorf("oauth1 provider with name '%s' not found", providerName))
	}
	return party, nil
}

// Validate fails with a ConfigurationError when credentials are missing.
func (p OauthParty) Validate() error {
	switch {
	case p.ClientID == "":
		return oautherrors.NewConfigurationError(p.Name.String(), "client id")
	case p.Secret == "":
		return oautherrors.NewConfigurationError(p.Name.String(), "client secret")
	case p.RedirectURI == "":
		return oautherrors.NewConfigurationError(p.Name.String(), "redirect uri")
	}
	return nil
}

// CompletionURL resolves a redirect uri that was configured as a path against the current host.
func (p OauthParty) CompletionURL(currentHostname string) string {
	return resolve(p.RedirectURI, currentHostname)
}

func (p OauthParty) OAuth2Config(currentHostname string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.Secret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthEndpoint.GetFullURL(),
			TokenURL:  p.TokenEndpoint.GetFullURL(),
			AuthStyle: p.AuthStyle,
		},
		RedirectURL: p.CompletionURL(currentHostname),
		Scopes:      p.DefaultScopes,
	}
}

func (p OAuth1Party) Validate() error {
	switch {
	case p.ConsumerKey == "":
		return oautherrors.NewConfigurationError(p.Name.String()+" oauth1", "consumer key")
	case p.ConsumerSecret == "":
		return oautherrors.NewConfigurationError(p.Name.String()+" oauth1", "consumer secret")
	case p.CallbackURI == "":
		return oautherrors.NewConfigurationError(p.Name.String()+" oauth1", "callback uri")
	}
	return nil
}

func (p OAuth1Party) CompletionURL(currentHostname string) string {
	return resolve(p.CallbackURI, currentHostname)
}

func resolve(uri string, currentHostname string) string {
	if strings.HasPrefix(uri, "/") {
		return strings.TrimSuffix(currentHostname, "/") + uri
	}
	return uri
}
