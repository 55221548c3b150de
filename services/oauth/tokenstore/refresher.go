package tokenstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarcGrol/poststudio/lib/myhttpclient"
	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

//go:generate mockgen -source=refresher.go -package tokenstore -destination refresher_mock.go Refresher
type Refresher interface {
	// Refresh returns the renewed token set. A RefreshError means the credential is dead, a
	// NetworkError that it may be retried later.
	Refresh(c context.Context, tokenSet oauthmodel.TokenSet) (oauthmodel.TokenSet, error)
}

// HTTPRefresher renews credentials through the refresh endpoint of the server.
type HTTPRefresher struct {
	baseURL    string
	httpClient myhttpclient.HTTPSender
	nower      mytime.Nower
}

func NewHTTPRefresher(baseURL string, httpClient myhttpclient.HTTPSender, nower mytime.Nower) *HTTPRefresher {
	return &HTTPRefresher{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		nower:      nower,
	}
}

func (r *HTTPRefresher) Refresh(c context.Context, tokenSet oauthmodel.TokenSet) (oauthmodel.TokenSet, error) {
	reqBody, err := json.Marshal(oauthmodel.RefreshRequest{
		AccessToken:  tokenSet.AccessToken,
		RefreshToken: tokenSet.RefreshToken,
	})
	if err != nil {
		return tokenSet, fmt.Errorf("error marshalling refresh request: %w", err)
	}

	status, body, err := r.httpClient.Send(c, myhttpclient.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/api/auth/%s/refresh", r.baseURL, tokenSet.Provider),
		Headers: http.Header{
			"Content-Type": {"application/json"},
		},
		Body: reqBody,
	})
	if err != nil {
		return tokenSet, oautherrors.NewNetworkError(err)
	}
	if status >= 500 {
		return tokenSet, oautherrors.NewNetworkError(fmt.Errorf("refresh endpoint status %d", status))
	}
	if status != http.StatusOK {
		return tokenSet, oautherrors.NewRefreshError(status, string(body), fmt.Errorf("refresh endpoint status %d", status))
	}

	resp := oauthmodel.RefreshResponse{}
	err = json.NewDecoder(bytes.NewReader(body)).Decode(&resp)
	if err != nil {
		return tokenSet, oautherrors.NewNetworkError(fmt.Errorf("error parsing refresh response: %w", err))
	}

	return Apply(tokenSet, resp, r.nower.Now()), nil
}

// Apply merges a refresh response into a token set. The previous refresh token is kept when the
// response does not carry a new one; page tokens are only replaced when new ones were returned.
func Apply(tokenSet oauthmodel.TokenSet, resp oauthmodel.RefreshResponse, now time.Time) oauthmodel.TokenSet {
	tokenSet.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		tokenSet.RefreshToken = resp.RefreshToken
	}
	if resp.TokenType != "" {
		tokenSet.TokenType = resp.TokenType
	}
	if resp.ExpiresIn > 0 {
		expiresAt := now.Add(time.Duration(resp.ExpiresIn) * time.Second)
		tokenSet.ExpiresIn = resp.ExpiresIn
		tokenSet.ExpiresAt = &expiresAt
	}
	if len(resp.Pages) > 0 {
		tokenSet.Pages = resp.Pages
	}
	return tokenSet
}
