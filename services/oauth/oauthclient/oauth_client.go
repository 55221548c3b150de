package oauthclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/MarcGrol/poststudio/lib/codeverifier"
	"github.com/MarcGrol/poststudio/lib/myhttpclient"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
	"github.com/MarcGrol/poststudio/services/oauth/providers"
)

type ComposeAuthURLRequest struct {
	ProviderName    oauthmodel.Provider
	CurrentHostname string
	State           string
	CodeVerifier    string
}

type GetTokenRequest struct {
	ProviderName    oauthmodel.Provider
	CurrentHostname string
	Code            string
	CodeVerifier    string
}

type RefreshTokenRequest struct {
	ProviderName oauthmodel.Provider
	RefreshToken string
}

type LongLivedTokenRequest struct {
	ProviderName oauthmodel.Provider
	AccessToken  string
}

type ProfileRequest struct {
	ProviderName oauthmodel.Provider
	AccessToken  string
}

type PagesRequest struct {
	ProviderName oauthmodel.Provider
	AccessToken  string
}

type GetTokenResponse struct {
	TokenType    string
	ExpiresIn    int
	ExpiresAt    time.Time
	AccessToken  string
	Scope        string
	RefreshToken string
}

//go:generate mockgen -source=oauth_client.go -package oauthclient -destination oauth_client_mock.go OauthClient
type OauthClient interface {
	ComposeAuthURL(c context.Context, req ComposeAuthURLRequest) (string, error)
	GetAccessToken(c context.Context, req GetTokenRequest) (GetTokenResponse, error)
	RefreshAccessToken(c context.Context, req RefreshTokenRequest) (GetTokenResponse, error)
	ExchangeLongLivedToken(c context.Context, req LongLivedTokenRequest) (GetTokenResponse, error)
	GetProfile(c context.Context, req ProfileRequest) (oauthmodel.Profile, error)
	GetManagedPages(c context.Context, req PagesRequest) ([]oauthmodel.PageToken, error)
}

type oauthClient struct {
	providers  providers.OAuthProvider
	httpClient *myhttpclient.Client
	nower      mytime.Nower
	logger     mylog.Logger
}

func NewOAuthClient(providers providers.OAuthProvider, httpClient *myhttpclient.Client, nower mytime.Nower) *oauthClient {
	return &oauthClient{
		providers:  providers,
		httpClient: httpClient,
		nower:      nower,
		logger:     mylog.New("oauthclient"),
	}
}

func (oc *oauthClient) provider(providerName oauthmodel.Provider) (providers.OauthParty, error) {
	provider, err := oc.providers.Get(providerName)
	if err != nil {
		return providers.OauthParty{}, err
	}
	err = provider.Validate()
	if err != nil {
		return providers.OauthParty{}, err
	}
	return provider, nil
}

// withHTTPClient makes x/oauth2 use the bounded, retrying client.
func (oc *oauthClient) withHTTPClient(c context.Context) context.Context {
	return context.WithValue(c, oauth2.HTTPClient, oc.httpClient.HTTPClient())
}

func (oc *oauthClient) ComposeAuthURL(c context.Context, req ComposeAuthURLRequest) (string, error) {
	provider, err := oc.provider(req.ProviderName)
	if err != nil {
		return "", err
	}

	opts := []oauth2.AuthCodeOption{}
	if provider.UsesPKCE {
		if req.CodeVerifier == "" {
			return "", oautherrors.NewMissingVerifier()
		}
		method, challenge := codeverifier.NewVerifierFrom(req.CodeVerifier).CreateChallenge()
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", challenge),
			oauth2.SetAuthURLParam("code_challenge_method", method),
		)
	}

	/* Example:
	https://twitter.com/i/oauth2/authorize
		?client_id=M1M5R3BMVy13QmpScXkzTUt5OE46MTpjaQ
		&code_challenge=E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM
		&code_challenge_method=S256
		&redirect_uri=https%3A%2F%2Fstudio.example.com%2Fapi%2Fauth%2Ftwitter%2Fcallback
		&response_type=code
		&scope=tweet.read+tweet.write+users.read+offline.access
		&state=state
	*/

	return provider.OAuth2Config(req.CurrentHostname).AuthCodeURL(req.State, opts...), nil
}

func (oc *oauthClient) GetAccessToken(c context.Context, req GetTokenRequest) (GetTokenResponse, error) {
	provider, err := oc.provider(req.ProviderName)
	if err != nil {
		return GetTokenResponse{}, err
	}

	opts := []oauth2.AuthCodeOption{}
	if provider.UsesPKCE {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}

	token, err := provider.OAuth2Config(req.CurrentHostname).Exchange(oc.withHTTPClient(c), req.Code, opts...)
	if err != nil {
		return GetTokenResponse{}, oc.exchangeError(c, req.ProviderName, "exchange", err)
	}

	return oc.tokenResponse(token, provider.DefaultTokenLifetime), nil
}

func (oc *oauthClient) RefreshAccessToken(c context.Context, req RefreshTokenRequest) (GetTokenResponse, error) {
	provider, err := oc.provider(req.ProviderName)
	if err != nil {
		return GetTokenResponse{}, err
	}

	if req.RefreshToken == "" {
		return GetTokenResponse{}, oautherrors.NewRefreshError(0, "", errors.New("no refresh token"))
	}

	token, err := provider.OAuth2Config("").TokenSource(oc.withHTTPClient(c), &oauth2.Token{
		RefreshToken: req.RefreshToken,
	}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := statusOf(retrieveErr)
			oc.logger.Log(c, req.ProviderName.String(), mylog.SeverityWarn, "Refresh rejected by %s: %d %s", req.ProviderName, status, string(retrieveErr.Body))
			if status >= 500 {
				return GetTokenResponse{}, oautherrors.NewNetworkError(fmt.Errorf("refresh: provider status %d", status))
			}
			return GetTokenResponse{}, oautherrors.NewRefreshError(status, string(retrieveErr.Body), errors.New(retrieveErr.ErrorCode))
		}
		return GetTokenResponse{}, oautherrors.NewNetworkError(err)
	}

	resp := oc.tokenResponse(token, provider.DefaultTokenLifetime)
	if resp.RefreshToken == "" {
		resp.RefreshToken = req.RefreshToken
	}

	return resp, nil
}

func (oc *oauthClient) exchangeError(c context.Context, providerName oauthmodel.Provider, step string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := statusOf(retrieveErr)
		oc.logger.Log(c, providerName.String(), mylog.SeverityWarn, "Token %s with %s failed: %d %s", step, providerName, status, string(retrieveErr.Body))
		return oautherrors.NewExchangeFailed(status, string(retrieveErr.Body), fmt.Errorf("%s: provider status %d", step, status))
	}
	return oautherrors.NewNetworkError(fmt.Errorf("%s: %w", step, err))
}

func statusOf(retrieveErr *oauth2.RetrieveError) int {
	if retrieveErr.Response == nil {
		return 0
	}
	return retrieveErr.Response.StatusCode
}

func (oc *oauthClient) tokenResponse(token *oauth2.Token, defaultLifetime time.Duration) GetTokenResponse {
	expiresIn := int(token.ExpiresIn)
	if expiresIn == 0 {
		expiresIn = extraInt(token, "expires_in")
	}
	if expiresIn == 0 {
		expiresIn = int(defaultLifetime.Seconds())
	}

	resp := GetTokenResponse{
		TokenType:    token.Type(),
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	if expiresIn > 0 {
		resp.ExpiresAt = oc.nower.Now().Add(time.Duration(expiresIn) * time.Second)
	}

	return resp
}

func extraInt(token *oauth2.Token, key string) int {
	switch v := token.Extra(key).(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case string:
		var n int
		_, err := fmt.Sscanf(v, "%d", &n)
		if err == nil {
			return n
		}
	}
	return 0
}
