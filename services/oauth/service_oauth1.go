package oauth

import (
	"context"
	"fmt"

	"github.com/MarcGrol/poststudio/lib/myerrors"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/services/oauth/oauthclient"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthevents"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
	"github.com/MarcGrol/poststudio/services/oauth/statecarrier"
)

// beginOAuth1 obtains a request token and returns the authorize url and the carrier holding the
// request token secret. The request token doubles as state.
func (s *service) beginOAuth1(c context.Context, currentHostname string) (string, string, error) {
	providerName := oauthmodel.ProviderTwitter

	party, err := s.providers.GetOAuth1(providerName)
	if err != nil {
		return "", "", err
	}
	err = party.Validate()
	if err != nil {
		s.logger.Log(c, providerName.String(), mylog.SeverityError, "Provider %s cannot start oauth1 authorization: %s", providerName, err)
		return "", "", err
	}

	requestToken, err := s.oauth1Client.GetRequestToken(c, oauthclient.RequestTokenRequest{
		ProviderName:    providerName,
		CurrentHostname: currentHostname,
	})
	if err != nil {
		return "", "", s.fail(c, "", providerName, oauthmodel.AuthTypeOAuth1, stepBegin, err)
	}

	attempt, carrier, err := s.issuer.Issue(c, statecarrier.IssueRequest{
		Provider:           providerName,
		State:              requestToken.Token,
		RequestTokenSecret: requestToken.Secret,
	})
	if err != nil {
		return "", "", myerrors.NewInternalError(fmt.Errorf("error issuing carrier: %w", err))
	}

	s.logger.Log(c, attempt.ID, mylog.SeverityInfo, "Start %s oauth1 authorization %s", providerName, attempt.ID)

	authorizeURL, err := s.oauth1Client.ComposeAuthorizeURL(c, providerName, requestToken.Token)
	if err != nil {
		return "", "", err
	}

	s.publish(c, oauthevents.AuthorizationStarted{
		AttemptID:    attempt.ID,
		ProviderName: providerName,
		AuthType:     oauthmodel.AuthTypeOAuth1,
	})

	return authorizeURL, carrier, nil
}

func (s *service) completeOAuth1(c context.Context, carrier string, params OAuth1CallbackParams) (oauthmodel.TokenSet, error) {
	providerName := oauthmodel.ProviderTwitter

	if params.Denied != "" {
		return oauthmodel.TokenSet{}, s.fail(c, "", providerName, oauthmodel.AuthTypeOAuth1, stepProviderResponse,
			oautherrors.NewProviderDenied("access_denied", "The user denied the request"))
	}
	if params.Token == "" {
		return oauthmodel.TokenSet{}, s.fail(c, "", providerName, oauthmodel.AuthTypeOAuth1, stepProviderResponse,
			oautherrors.NewMalformedCallback("oauth_token"))
	}
	if params.Verifier == "" {
		return oauthmodel.TokenSet{}, s.fail(c, "", providerName, oauthmodel.AuthTypeOAuth1, stepProviderResponse,
			oautherrors.NewMalformedCallback("oauth_verifier"))
	}

	attempt, err := s.issuer.Verify(c, providerName, carrier, params.Token)
	if err != nil {
		return oauthmodel.TokenSet{}, s.fail(c, "", providerName, oauthmodel.AuthTypeOAuth1, stepStateCheck, err)
	}
	if attempt.RequestTokenSecret == "" {
		return oauthmodel.TokenSet{}, s.fail(c, attempt.ID, providerName, oauthmodel.AuthTypeOAuth1, stepStateCheck,
			oautherrors.NewMissingVerifier())
	}

	accessToken, err := s.oauth1Client.GetAccessToken(c, oauthclient.OAuth1AccessTokenRequest{
		ProviderName:       providerName,
		RequestToken:       params.Token,
		RequestTokenSecret: attempt.RequestTokenSecret,
		Verifier:           params.Verifier,
	})
	if err != nil {
		return oauthmodel.TokenSet{}, s.fail(c, attempt.ID, providerName, oauthmodel.AuthTypeOAuth1, stepCodeExchange, err)
	}

	profile := oauthmodel.Profile{
		ID:          accessToken.UserID,
		DisplayName: accessToken.ScreenName,
		Username:    accessToken.ScreenName,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = oauthmodel.PlaceholderDisplayName
	}

	s.publish(c, oauthevents.AuthorizationCompleted{
		AttemptID:    attempt.ID,
		ProviderName: providerName,
		AuthType:     oauthmodel.AuthTypeOAuth1,
		ProfileID:    profile.ID,
		NoProfile:    profile.ID == "",
	})

	s.logger.Log(c, attempt.ID, mylog.SeverityInfo, "Completed %s oauth1 authorization %s", providerName, attempt.ID)

	return oauthmodel.TokenSet{
		Provider:     providerName,
		AuthType:     oauthmodel.AuthTypeOAuth1,
		AccessToken:  accessToken.Token,
		AccessSecret: accessToken.Secret,
		Profile:      profile,
	}, nil
}

// tweet signs and performs a publish call with a user's oauth1 token pair.
func (s *service) tweet(c context.Context, req oauthmodel.TweetRequest) ([]byte, error) {
	s.logger.Log(c, "", mylog.SeverityInfo, "Post tweet of %d characters", len([]rune(req.Text)))

	resp, err := s.oauth1Client.Post(c, oauthclient.PostRequest{
		ProviderName: oauthmodel.ProviderTwitter,
		Text:         req.Text,
		AccessToken:  req.AccessToken,
		AccessSecret: req.AccessSecret,
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}
