package oauthclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarcGrol/poststudio/lib/myhttpclient"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

const maxPageRequests = 10

type longLivedTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type twitterProfileResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

type facebookProfileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type facebookPagesResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		AccessToken string `json:"access_token"`
		Category    string `json:"category"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// ExchangeLongLivedToken upgrades a short-lived facebook user token (fb_exchange_token grant).
func (oc *oauthClient) ExchangeLongLivedToken(c context.Context, req LongLivedTokenRequest) (GetTokenResponse, error) {
	provider, err := oc.provider(req.ProviderName)
	if err != nil {
		return GetTokenResponse{}, err
	}

	exchangeURL := provider.TokenEndpoint.GetFullURL() + "?" + url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {provider.ClientID},
		"client_secret":     {provider.Secret},
		"fb_exchange_token": {req.AccessToken},
	}.Encode()

	status, body, err := oc.httpClient.Send(c, myhttpclient.Request{
		Method: http.MethodGet,
		URL:    exchangeURL,
	})
	if err != nil {
		return GetTokenResponse{}, oautherrors.NewNetworkError(fmt.Errorf("long-lived exchange: %w", err))
	}
	if status != http.StatusOK {
		oc.logger.Log(c, req.ProviderName.String(), mylog.SeverityWarn, "Long-lived exchange with %s failed: %d %s", req.ProviderName, status, string(body))
		return GetTokenResponse{}, oautherrors.NewExchangeFailed(status, string(body), fmt.Errorf("long-lived exchange: provider status %d", status))
	}

	resp := longLivedTokenResponse{}
	err = json.Unmarshal(body, &resp)
	if err != nil || resp.AccessToken == "" {
		return GetTokenResponse{}, oautherrors.NewExchangeFailed(status, "", fmt.Errorf("long-lived exchange: unexpected response: %v", err))
	}

	// the graph api often omits expires_in for long-lived tokens
	expiresIn := resp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = int(provider.LongLivedTokenLifetime.Seconds())
	}

	result := GetTokenResponse{
		TokenType:   resp.TokenType,
		AccessToken: resp.AccessToken,
		ExpiresIn:   expiresIn,
	}
	if expiresIn > 0 {
		result.ExpiresAt = oc.nower.Now().Add(time.Duration(expiresIn) * time.Second)
	}

	return result, nil
}

func (oc *oauthClient) GetProfile(c context.Context, req ProfileRequest) (oauthmodel.Profile, error) {
	provider, err := oc.providers.Get(req.ProviderName)
	if err != nil {
		return oauthmodel.Profile{}, err
	}

	profileURL := provider.ProfileURL.GetFullURL()
	switch req.ProviderName {
	case oauthmodel.ProviderFacebook:
		profileURL += "?fields=id,name"
	case oauthmodel.ProviderTwitter:
		profileURL += "?user.fields=username"
	}

	body, err := oc.getWithBearer(c, profileURL, req.AccessToken)
	if err != nil {
		return oauthmodel.Profile{}, err
	}

	switch req.ProviderName {
	case oauthmodel.ProviderTwitter:
		resp := twitterProfileResponse{}
		err = json.Unmarshal(body, &resp)
		if err != nil {
			return oauthmodel.Profile{}, fmt.Errorf("error parsing profile: %w", err)
		}
		return oauthmodel.Profile{
			ID:          resp.Data.ID,
			DisplayName: resp.Data.Name,
			Username:    resp.Data.Username,
		}, nil
	default:
		resp := facebookProfileResponse{}
		err = json.Unmarshal(body, &resp)
		if err != nil {
			return oauthmodel.Profile{}, fmt.Errorf("error parsing profile: %w", err)
		}
		return oauthmodel.Profile{
			ID:          resp.ID,
			DisplayName: resp.Name,
		}, nil
	}
}

// GetManagedPages returns the pages the user manages, each with its own page token. Paging links are
// followed a limited number of times.
func (oc *oauthClient) GetManagedPages(c context.Context, req PagesRequest) ([]oauthmodel.PageToken, error) {
	provider, err := oc.providers.Get(req.ProviderName)
	if err != nil {
		return nil, err
	}
	if provider.PagesURL.Path == "" {
		return []oauthmodel.PageToken{}, nil
	}

	pages := []oauthmodel.PageToken{}
	nextURL := provider.PagesURL.GetFullURL() + "?fields=id,name,access_token,category&limit=100"
	for i := 0; i < maxPageRequests && nextURL != ""; i++ {
		body, err := oc.getWithBearer(c, nextURL, req.AccessToken)
		if err != nil {
			return nil, err
		}

		resp := facebookPagesResponse{}
		err = json.Unmarshal(body, &resp)
		if err != nil {
			return nil, fmt.Errorf("error parsing pages: %w", err)
		}

		for _, p := range resp.Data {
			pages = append(pages, oauthmodel.PageToken{
				PageID:      p.ID,
				AccessToken: p.AccessToken,
				DisplayName: p.Name,
				Category:    p.Category,
			})
		}

		nextURL = resp.Paging.Next
		if nextURL != "" && !sameOrigin(nextURL, provider.PagesURL.Hostname) {
			oc.logger.Log(c, req.ProviderName.String(), mylog.SeverityWarn, "Ignoring paging link to other host")
			nextURL = ""
		}
	}

	return pages, nil
}

// sameOrigin reports whether rawURL points at exactly the scheme and host of hostname. Links with
// userinfo are rejected: the bearer token must only reach the graph host.
func sameOrigin(rawURL string, hostname string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.User != nil || u.Host == "" {
		return false
	}
	base, err := url.Parse(hostname)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

func (oc *oauthClient) getWithBearer(c context.Context, rawURL string, accessToken string) ([]byte, error) {
	status, body, err := oc.httpClient.Send(c, myhttpclient.Request{
		Method: http.MethodGet,
		URL:    rawURL,
		Headers: http.Header{
			"Authorization": {"Bearer " + accessToken},
		},
	})
	if err != nil {
		return nil, oautherrors.NewNetworkError(err)
	}
	if status != http.StatusOK {
		return nil, oautherrors.NewExchangeFailed(status, string(body), fmt.Errorf("provider status %d", status))
	}
	return body, nil
}
