package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcGrol/poststudio/lib/myerrors"
	"github.com/MarcGrol/poststudio/lib/myevents"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/mypublisher"
	"github.com/MarcGrol/poststudio/lib/myuuid"
	"github.com/MarcGrol/poststudio/services/oauth/oauthclient"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthevents"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
	"github.com/MarcGrol/poststudio/services/oauth/providers"
	"github.com/MarcGrol/poststudio/services/oauth/statecarrier"
)

const (
	stepBegin            = "begin"
	stepProviderResponse = "providerResponse"
	stepStateCheck       = "stateCheck"
	stepCodeExchange     = "codeExchange"
)

type service struct {
	providers    providers.OAuthProvider
	issuer       statecarrier.Issuer
	oauthClient  oauthclient.OauthClient
	oauth1Client oauthclient.OAuth1Client
	publisher    mypublisher.Publisher
	uuider       myuuid.UUIDer
	logger       mylog.Logger
}

func newService(providers providers.OAuthProvider, issuer statecarrier.Issuer, oauthClient oauthclient.OauthClient, oauth1Client oauthclient.OAuth1Client, pub mypublisher.Publisher, uuider myuuid.UUIDer) *service {
	return &service{
		providers:    providers,
		issuer:       issuer,
		oauthClient:  oauthClient,
		oauth1Client: oauth1Client,
		publisher:    pub,
		uuider:       uuider,
		logger:       mylog.New("oauth"),
	}
}

func (s *service) provider(providerName string) (providers.OauthParty, error) {
	p, found := oauthmodel.ParseProvider(providerName)
	if !found {
		return providers.OauthParty{}, myerrors.NewNotFoundError(fmt.Errorf("provider with name '%s' not known", providerName))
	}
	return s.providers.Get(p)
}

// begin issues a new authorization attempt and returns the provider's authorize url together with
// the carrier that must travel with the redirect.
func (s *service) begin(c context.Context, providerName string, currentHostname string) (string, string, error) {
	provider, err := s.provider(providerName)
	if err != nil {
		return "", "", err
	}

	err = provider.Validate()
	if err != nil {
		s.logger.Log(c, providerName, mylog.SeverityError, "Provider %s cannot start authorization: %s", providerName, err)
		return "", "", err
	}

	attempt, carrier, err := s.issuer.Issue(c, statecarrier.IssueRequest{
		Provider:     provider.Name,
		WithVerifier: provider.UsesPKCE,
	})
	if err != nil {
		return "", "", myerrors.NewInternalError(fmt.Errorf("error issuing carrier: %w", err))
	}

	s.logger.Log(c, attempt.ID, mylog.SeverityInfo, "Start %s authorization %s", providerName, attempt.ID)

	authURL, err := s.oauthClient.ComposeAuthURL(c, oauthclient.ComposeAuthURLRequest{
		ProviderName:    provider.Name,
		CurrentHostname: currentHostname,
		State:           attempt.State,
		CodeVerifier:    attempt.CodeVerifier,
	})
	if err != nil {
		return "", "", err
	}

	s.publish(c, oauthevents.AuthorizationStarted{
		AttemptID:    attempt.ID,
		ProviderName: provider.Name,
		AuthType:     oauthmodel.AuthTypeOAuth2,
		Scopes:       provider.DefaultScopes,
	})

	return authURL, carrier, nil
}

// complete runs the callback: state check before any exchange, then the exchange itself and the
// best-effort enrichment steps.
func (s *service) complete(c context.Context, providerName string, carrier string, params CallbackParams, currentHostname string) (oauthmodel.TokenSet, error) {
	provider, err := s.provider(providerName)
	if err != nil {
		return oauthmodel.TokenSet{}, err
	}

	if params.Error != "" {
		description := params.ErrorDescription
		if description == "" {
			description = params.ErrorReason
		}
		return oauthmodel.TokenSet{}, s.fail(c, "", provider.Name, oauthmodel.AuthTypeOAuth2, stepProviderResponse,
			oautherrors.NewProviderDenied(params.Error, description))
	}
	if params.Code == "" {
		return oauthmodel.TokenSet{}, s.fail(c, "", provider.Name, oauthmodel.AuthTypeOAuth2, stepProviderResponse,
			oautherrors.NewMalformedCallback("code"))
	}
	if params.State == "" {
		return oauthmodel.TokenSet{}, s.fail(c, "", provider.Name, oauthmodel.AuthTypeOAuth2, stepProviderResponse,
			oautherrors.NewMalformedCallback("state"))
	}

	attempt, err := s.issuer.Verify(c, provider.Name, carrier, params.State)
	if err != nil {
		return oauthmodel.TokenSet{}, s.fail(c, "", provider.Name, oauthmodel.AuthTypeOAuth2, stepStateCheck, err)
	}
	if provider.UsesPKCE && attempt.CodeVerifier == "" {
		return oauthmodel.TokenSet{}, s.fail(c, attempt.ID, provider.Name, oauthmodel.AuthTypeOAuth2, stepStateCheck,
			oautherrors.NewMissingVerifier())
	}

	s.logger.Log(c, attempt.ID, mylog.SeverityInfo, "Continue %s authorization %s (exchange code)", providerName, attempt.ID)

	tokenResp, err := s.oauthClient.GetAccessToken(c, oauthclient.GetTokenRequest{
		ProviderName:    provider.Name,
		CurrentHostname: currentHostname,
		Code:            params.Code,
		CodeVerifier:    attempt.CodeVerifier,
	})
	if err != nil {
		return oauthmodel.TokenSet{}, s.fail(c, attempt.ID, provider.Name, oauthmodel.AuthTypeOAuth2, stepCodeExchange, err)
	}

	tokenSet := oauthmodel.TokenSet{
		Provider:     provider.Name,
		AuthType:     oauthmodel.AuthTypeOAuth2,
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Scope:        tokenResp.Scope,
	}
	setExpiry(&tokenSet, tokenResp)

	if provider.LongLivedExchange {
		longLived, err := s.oauthClient.ExchangeLongLivedToken(c, oauthclient.LongLivedTokenRequest{
			ProviderName: provider.Name,
			AccessToken:  tokenSet.AccessToken,
		})
		if err != nil {
			s.logger.Log(c, attempt.ID, mylog.SeverityWarn, "Continue with short-lived %s token: %s", providerName, err)
			tokenSet.ShortLived = true
		} else {
			tokenSet.AccessToken = longLived.AccessToken
			if longLived.TokenType != "" {
				tokenSet.TokenType = longLived.TokenType
			}
			setExpiry(&tokenSet, longLived)
		}
	}

	profile, err := s.oauthClient.GetProfile(c, oauthclient.ProfileRequest{
		ProviderName: provider.Name,
		AccessToken:  tokenSet.AccessToken,
	})
	if err != nil {
		s.logger.Log(c, attempt.ID, mylog.SeverityWarn, "Continue without %s profile: %s", providerName, err)
		profile = oauthmodel.Profile{DisplayName: oauthmodel.PlaceholderDisplayName}
	}
	tokenSet.Profile = profile

	if provider.PagesURL.Path != "" {
		pages, err := s.oauthClient.GetManagedPages(c, oauthclient.PagesRequest{
			ProviderName: provider.Name,
			AccessToken:  tokenSet.AccessToken,
		})
		if err != nil {
			s.logger.Log(c, attempt.ID, mylog.SeverityWarn, "Continue without %s pages: %s", providerName, err)
		}
		tokenSet.Pages = pages
	}

	s.publish(c, oauthevents.AuthorizationCompleted{
		AttemptID:    attempt.ID,
		ProviderName: provider.Name,
		AuthType:     oauthmodel.AuthTypeOAuth2,
		ProfileID:    profile.ID,
		ShortLived:   tokenSet.ShortLived,
		NoProfile:    profile.ID == "",
		ZeroPages:    provider.PagesURL.Path != "" && len(tokenSet.Pages) == 0,
	})

	s.logger.Log(c, attempt.ID, mylog.SeverityInfo, "Completed %s authorization %s", providerName, attempt.ID)

	return tokenSet, nil
}

// setExpiry keeps the previously known expiry when the response carries none.
func setExpiry(tokenSet *oauthmodel.TokenSet, resp oauthclient.GetTokenResponse) {
	if resp.ExpiresIn <= 0 {
		return
	}
	expiresAt := resp.ExpiresAt
	tokenSet.ExpiresIn = resp.ExpiresIn
	tokenSet.ExpiresAt = &expiresAt
}

// refresh renews a credential for a client that keeps its own tokens. Facebook has no refresh
// tokens: the long-lived exchange is re-run with the current user token and the pages re-fetched.
func (s *service) refresh(c context.Context, providerName string, req oauthmodel.RefreshRequest) (oauthmodel.RefreshResponse, error) {
	uid := s.uuider.Create()

	provider, err := s.provider(providerName)
	if err != nil {
		return oauthmodel.RefreshResponse{}, err
	}

	s.logger.Log(c, uid, mylog.SeverityInfo, "Start %s token-refresh", providerName)

	resp, err := s.doRefresh(c, provider, req)
	if err != nil {
		kind, _ := oautherrors.KindOf(err)
		s.publish(c, oauthevents.TokenRefreshed{
			UID:          uid,
			ProviderName: provider.Name,
			Success:      false,
			ErrorKind:    string(kind),
		})
		return oauthmodel.RefreshResponse{}, err
	}

	s.publish(c, oauthevents.TokenRefreshed{
		UID:          uid,
		ProviderName: provider.Name,
		Success:      true,
		PageCount:    len(resp.Pages),
	})

	s.logger.Log(c, uid, mylog.SeverityInfo, "Completed %s token-refresh", providerName)

	return resp, nil
}

func (s *service) doRefresh(c context.Context, provider providers.OauthParty, req oauthmodel.RefreshRequest) (oauthmodel.RefreshResponse, error) {
	if !provider.LongLivedExchange {
		if req.RefreshToken == "" {
			return oauthmodel.RefreshResponse{}, myerrors.NewInvalidInputErrorf("missing refresh_token")
		}

		tokenResp, err := s.oauthClient.RefreshAccessToken(c, oauthclient.RefreshTokenRequest{
			ProviderName: provider.Name,
			RefreshToken: req.RefreshToken,
		})
		if err != nil {
			return oauthmodel.RefreshResponse{}, err
		}
		return refreshResponse(tokenResp, req.RefreshToken), nil
	}

	if req.AccessToken == "" {
		return oauthmodel.RefreshResponse{}, myerrors.NewInvalidInputErrorf("missing access_token")
	}

	tokenResp, err := s.oauthClient.ExchangeLongLivedToken(c, oauthclient.LongLivedTokenRequest{
		ProviderName: provider.Name,
		AccessToken:  req.AccessToken,
	})
	if err != nil {
		return oauthmodel.RefreshResponse{}, asRefreshError(err)
	}
	resp := refreshResponse(tokenResp, "")

	pages, err := s.oauthClient.GetManagedPages(c, oauthclient.PagesRequest{
		ProviderName: provider.Name,
		AccessToken:  resp.AccessToken,
	})
	if err != nil {
		s.logger.Log(c, provider.Name.String(), mylog.SeverityWarn, "Refreshed %s token without pages: %s", provider.Name, err)
	}
	resp.Pages = pages

	return resp, nil
}

func refreshResponse(tokenResp oauthclient.GetTokenResponse, previousRefreshToken string) oauthmodel.RefreshResponse {
	resp := oauthmodel.RefreshResponse{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
		TokenType:    tokenResp.TokenType,
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = previousRefreshToken
	}
	return resp
}

// asRefreshError maps a failed long-lived re-exchange onto the refresh taxonomy: a provider 4xx
// means the user token is dead, anything else is transient.
func asRefreshError(err error) error {
	var oauthErr *oautherrors.Error
	if !errors.As(err, &oauthErr) || oauthErr.Kind != oautherrors.KindExchangeFailed {
		return err
	}
	if oauthErr.ProviderStatus >= 400 && oauthErr.ProviderStatus < 500 {
		return oautherrors.NewRefreshError(oauthErr.ProviderStatus, oauthErr.ProviderBody, oauthErr.Cause)
	}
	return oautherrors.NewNetworkError(oauthErr)
}

func (s *service) fail(c context.Context, attemptID string, providerName oauthmodel.Provider, authType oauthmodel.AuthType, step string, err error) error {
	if attemptID == "" {
		attemptID = s.uuider.Create()
	}
	kind, _ := oautherrors.KindOf(err)

	s.logger.Log(c, attemptID, mylog.SeverityWarn, "Authorization %s with %s failed at %s: %s", attemptID, providerName, step, err)

	s.publish(c, oauthevents.AuthorizationFailed{
		AttemptID:    attemptID,
		ProviderName: providerName,
		AuthType:     authType,
		Step:         step,
		ErrorKind:    string(kind),
	})

	return err
}

// publish is best-effort: a lost event never fails an authorization.
func (s *service) publish(c context.Context, event myevents.Event) {
	err := s.publisher.Publish(c, oauthevents.TopicName, event)
	if err != nil {
		s.logger.Log(c, event.GetAggregateName(), mylog.SeverityError, "Error publishing event %s: %s", event.GetEventTypeName(), err)
	}
}
