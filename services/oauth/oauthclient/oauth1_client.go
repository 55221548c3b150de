package oauthclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MarcGrol/poststudio/lib/myhttpclient"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/oauthsign"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
	"github.com/MarcGrol/poststudio/services/oauth/providers"
)

type RequestTokenRequest struct {
	ProviderName    oauthmodel.Provider
	CurrentHostname string
}

type RequestToken struct {
	Token             string
	Secret            string
	CallbackConfirmed bool
}

type OAuth1AccessTokenRequest struct {
	ProviderName       oauthmodel.Provider
	RequestToken       string
	RequestTokenSecret string
	Verifier           string
}

type OAuth1AccessToken struct {
	Token      string
	Secret     string
	UserID     string
	ScreenName string
}

type PostRequest struct {
	ProviderName oauthmodel.Provider
	Text         string
	AccessToken  string
	AccessSecret string
}

//go:generate mockgen -source=oauth1_client.go -package oauthclient -destination oauth1_client_mock.go OAuth1Client
type OAuth1Client interface {
	GetRequestToken(c context.Context, req RequestTokenRequest) (RequestToken, error)
	ComposeAuthorizeURL(c context.Context, providerName oauthmodel.Provider, requestToken string) (string, error)
	GetAccessToken(c context.Context, req OAuth1AccessTokenRequest) (OAuth1AccessToken, error)
	Post(c context.Context, req PostRequest) (json.RawMessage, error)
}

type oauth1Client struct {
	providers  providers.OAuthProvider
	httpClient myhttpclient.HTTPSender
	signer     *oauthsign.Signer
	logger     mylog.Logger
}

func NewOAuth1Client(providers providers.OAuthProvider, httpClient myhttpclient.HTTPSender, signer *oauthsign.Signer) *oauth1Client {
	return &oauth1Client{
		providers:  providers,
		httpClient: httpClient,
		signer:     signer,
		logger:     mylog.New("oauth1client"),
	}
}

func (oc *oauth1Client) party(providerName oauthmodel.Provider) (providers.OAuth1Party, error) {
	party, err := oc.providers.GetOAuth1(providerName)
	if err != nil {
		return providers.OAuth1Party{}, err
	}
	err = party.Validate()
	if err != nil {
		return providers.OAuth1Party{}, err
	}
	return party, nil
}

// GetRequestToken is the first leg: signed with the consumer secret and an empty token secret.
func (oc *oauth1Client) GetRequestToken(c context.Context, req RequestTokenRequest) (RequestToken, error) {
	party, err := oc.party(req.ProviderName)
	if err != nil {
		return RequestToken{}, err
	}

	values, err := oc.signedFormPost(c, party.RequestTokenEndpoint.GetFullURL(),
		map[string]string{"oauth_callback": party.CompletionURL(req.CurrentHostname)},
		oauthsign.Credentials{
			ConsumerKey:    party.ConsumerKey,
			ConsumerSecret: party.ConsumerSecret,
		})
	if err != nil {
		return RequestToken{}, err
	}

	token := RequestToken{
		Token:             values.Get("oauth_token"),
		Secret:            values.Get("oauth_token_secret"),
		CallbackConfirmed: values.Get("oauth_callback_confirmed") == "true",
	}
	if token.Token == "" || !token.CallbackConfirmed {
		return RequestToken{}, oautherrors.NewExchangeFailed(http.StatusOK, "", fmt.Errorf("request token not confirmed"))
	}

	return token, nil
}

func (oc *oauth1Client) ComposeAuthorizeURL(c context.Context, providerName oauthmodel.Provider, requestToken string) (string, error) {
	party, err := oc.party(providerName)
	if err != nil {
		return "", err
	}

	return party.AuthorizeEndpoint.GetFullURL() + "?" + url.Values{
		"oauth_token": {requestToken},
	}.Encode(), nil
}

// GetAccessToken is the last leg: trades the verifier for the long term token pair.
func (oc *oauth1Client) GetAccessToken(c context.Context, req OAuth1AccessTokenRequest) (OAuth1AccessToken, error) {
	party, err := oc.party(req.ProviderName)
	if err != nil {
		return OAuth1AccessToken{}, err
	}

	values, err := oc.signedFormPost(c, party.AccessTokenEndpoint.GetFullURL(),
		map[string]string{"oauth_verifier": req.Verifier},
		oauthsign.Credentials{
			ConsumerKey:    party.ConsumerKey,
			ConsumerSecret: party.ConsumerSecret,
			Token:          req.RequestToken,
			TokenSecret:    req.RequestTokenSecret,
		})
	if err != nil {
		return OAuth1AccessToken{}, err
	}

	token := OAuth1AccessToken{
		Token:      values.Get("oauth_token"),
		Secret:     values.Get("oauth_token_secret"),
		UserID:     values.Get("user_id"),
		ScreenName: values.Get("screen_name"),
	}
	if token.Token == "" || token.Secret == "" {
		return OAuth1AccessToken{}, oautherrors.NewExchangeFailed(http.StatusOK, "", fmt.Errorf("incomplete access token response"))
	}

	return token, nil
}

// Post publishes text on behalf of the user. The json body is not part of the signature.
func (oc *oauth1Client) Post(c context.Context, req PostRequest) (json.RawMessage, error) {
	party, err := oc.party(req.ProviderName)
	if err != nil {
		return nil, err
	}

	postURL := party.PostEndpoint.GetFullURL()
	header, err := oc.signer.AuthorizationHeader(http.MethodPost, postURL, nil, nil, oauthsign.Credentials{
		ConsumerKey:    party.ConsumerKey,
		ConsumerSecret: party.ConsumerSecret,
		Token:          req.AccessToken,
		TokenSecret:    req.AccessSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("error signing request: %w", err)
	}

	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: req.Text})
	if err != nil {
		return nil, fmt.Errorf("error marshalling post: %w", err)
	}

	status, respBody, err := oc.httpClient.Send(c, myhttpclient.Request{
		Method: http.MethodPost,
		URL:    postURL,
		Headers: http.Header{
			"Authorization": {header},
			"Content-Type":  {"application/json"},
		},
		Body: body,

		// a replay could post twice and reuses the signed nonce
		NoRetry: true,
	})
	if err != nil {
		return nil, oautherrors.NewNetworkError(err)
	}
	if status < 200 || status >= 300 {
		oc.logger.Log(c, req.ProviderName.String(), mylog.SeverityWarn, "Post to %s failed: %d %s", req.ProviderName, status, string(respBody))
		return nil, oautherrors.NewExchangeFailed(status, string(respBody), fmt.Errorf("post: provider status %d", status))
	}

	return json.RawMessage(respBody), nil
}

func (oc *oauth1Client) signedFormPost(c context.Context, endpoint string, protocolParams map[string]string, creds oauthsign.Credentials) (url.Values, error) {
	header, err := oc.signer.AuthorizationHeader(http.MethodPost, endpoint, nil, protocolParams, creds)
	if err != nil {
		return nil, fmt.Errorf("error signing request: %w", err)
	}

	status, body, err := oc.httpClient.Send(c, myhttpclient.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Headers: http.Header{
			"Authorization": {header},
			"Accept":        {"application/x-www-form-urlencoded"},
		},
	})
	if err != nil {
		return nil, oautherrors.NewNetworkError(err)
	}
	if status != http.StatusOK {
		oc.logger.Log(c, "oauth1", mylog.SeverityWarn, "OAuth1 call %s failed: %d %s", endpoint, status, string(body))
		return nil, oautherrors.NewExchangeFailed(status, string(body), fmt.Errorf("oauth1: provider status %d", status))
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, oautherrors.NewExchangeFailed(status, "", fmt.Errorf("error parsing oauth1 response: %w", err))
	}

	return values, nil
}
