package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/poststudio/lib/mycontext"
	"github.com/MarcGrol/poststudio/lib/myerrors"
	"github.com/MarcGrol/poststudio/lib/myhttp"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/mypublisher"
	"github.com/MarcGrol/poststudio/lib/myuuid"
	"github.com/MarcGrol/poststudio/services/oauth/handoff"
	"github.com/MarcGrol/poststudio/services/oauth/oauthclient"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
	"github.com/MarcGrol/poststudio/services/oauth/providers"
	"github.com/MarcGrol/poststudio/services/oauth/statecarrier"
)

type webService struct {
	service    *service
	transport  statecarrier.CookieTransport
	codec      handoff.Codec
	landingURL string
	validate   *validator.Validate
	logger     mylog.Logger
}

func NewService(providers providers.OAuthProvider, issuer statecarrier.Issuer, transport statecarrier.CookieTransport, oauthClient oauthclient.OauthClient, oauth1Client oauthclient.OAuth1Client, pub mypublisher.Publisher, uuider myuuid.UUIDer, landingURL string) *webService {
	return &webService{
		service:    newService(providers, issuer, oauthClient, oauth1Client, pub, uuider),
		transport:  transport,
		codec:      handoff.Base64JSONCodec{},
		landingURL: landingURL,
		validate:   validator.New(),
		logger:     mylog.New("oauth"),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/auth/twitter/oauth1/login", s.oauth1LoginPage()).Methods("GET")
	router.HandleFunc("/api/auth/twitter/oauth1/callback", s.oauth1CallbackPage()).Methods("GET")
	router.HandleFunc("/api/twitter/oauth1/tweet", s.tweetPage()).Methods("POST")

	router.HandleFunc("/api/auth/{providerName}/login", s.loginPage()).Methods("GET")
	router.HandleFunc("/api/auth/{providerName}/callback", s.callbackPage()).Methods("GET")
	router.HandleFunc("/api/auth/{providerName}/refresh", s.refreshPage()).Methods("POST")

	return nil
}

func (s *webService) loginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		providerName := mux.Vars(r)["providerName"]

		authURL, carrier, err := s.service.begin(c, providerName, myhttp.HostnameWithScheme(r))
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		s.transport.Set(w, statecarrier.ScopeFor(oauthmodel.Provider(providerName)), carrier)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

func (s *webService) callbackPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		providerName := mux.Vars(r)["providerName"]
		_, known := oauthmodel.ParseProvider(providerName)
		if !known {
			errorWriter.WriteError(c, w, 1, myerrors.NewNotFoundError(fmt.Errorf("provider with name '%s' not known", providerName)))
			return
		}

		scope := statecarrier.ScopeFor(oauthmodel.Provider(providerName))
		carrier := s.transport.Read(r, scope)
		s.transport.Clear(w, scope)

		params, err := CallbackParamsFromQuery(r.URL.Query())
		if err != nil {
			s.redirectWithError(c, w, r, oautherrors.NewMalformedCallback("valid query"))
			return
		}

		tokenSet, err := s.service.complete(c, providerName, carrier, params, myhttp.HostnameWithScheme(r))
		if err != nil {
			s.redirectWithError(c, w, r, err)
			return
		}

		s.redirectWithTokenSet(c, w, r, tokenSet)
	}
}

func (s *webService) oauth1LoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		authorizeURL, carrier, err := s.service.beginOAuth1(c, myhttp.HostnameWithScheme(r))
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		s.transport.Set(w, statecarrier.OAuth1ScopeFor(oauthmodel.ProviderTwitter), carrier)
		http.Redirect(w, r, authorizeURL, http.StatusFound)
	}
}

func (s *webService) oauth1CallbackPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		scope := statecarrier.OAuth1ScopeFor(oauthmodel.ProviderTwitter)
		carrier := s.transport.Read(r, scope)
		s.transport.Clear(w, scope)

		params, err := OAuth1CallbackParamsFromQuery(r.URL.Query())
		if err != nil {
			s.redirectWithError(c, w, r, oautherrors.NewMalformedCallback("valid query"))
			return
		}

		tokenSet, err := s.service.completeOAuth1(c, carrier, params)
		if err != nil {
			s.redirectWithError(c, w, r, err)
			return
		}

		s.redirectWithTokenSet(c, w, r, tokenSet)
	}
}

func (s *webService) refreshPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		providerName := mux.Vars(r)["providerName"]

		req := oauthmodel.RefreshRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %w", err)))
			return
		}

		resp, err := s.service.refresh(c, providerName, req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}

func (s *webService) tweetPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := oauthmodel.TweetRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %w", err)))
			return
		}

		err = s.validate.Struct(req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(validationError(err)))
			return
		}

		resp, err := s.service.tweet(c, req)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, json.RawMessage(resp))
	}
}

// validationError names the offending json fields without echoing their values.
func validationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	msg := "invalid request:"
	for _, fe := range validationErrs {
		msg += fmt.Sprintf(" %s(%s)", fe.Field(), fe.Tag())
	}
	return errors.New(msg)
}

func (s *webService) redirectWithTokenSet(c context.Context, w http.ResponseWriter, r *http.Request, tokenSet oauthmodel.TokenSet) {
	successURL, err := handoff.SuccessURL(s.codec, s.landingURL, tokenSet)
	if err != nil {
		s.redirectWithError(c, w, r, myerrors.NewInternalError(err))
		return
	}
	http.Redirect(w, r, successURL, http.StatusFound)
}

// redirectWithError sends the browser back to the landing route with a message that is safe to
// show. Raw provider bodies only end up in the server log.
func (s *webService) redirectWithError(c context.Context, w http.ResponseWriter, r *http.Request, err error) {
	message := "authorization failed"
	var oauthErr *oautherrors.Error
	if errors.As(err, &oauthErr) {
		message = oauthErr.UserMessage()
	}

	s.logger.Log(c, "", mylog.SeverityWarn, "Authorization ended with error (http-status %d): %s", myerrors.GetHTTPStatus(err), err)

	errorURL, urlErr := handoff.ErrorURL(s.landingURL, message)
	if urlErr != nil {
		myhttp.NewWriter(s.logger).WriteError(c, w, 9, myerrors.NewInternalError(urlErr))
		return
	}
	http.Redirect(w, r, errorURL, http.StatusFound)
}
