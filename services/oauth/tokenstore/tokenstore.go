package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/mystore"
	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

const (
	DefaultRefreshSkew    = 5 * time.Minute
	DefaultRefreshTimeout = 30 * time.Second
)

var ErrUnknownCredential = errors.New("unknown credential")

type Option func(s *Store)

// WithRefreshSkew sets how long before expiry a token of the provider is renewed.
func WithRefreshSkew(provider oauthmodel.Provider, skew time.Duration) Option {
	return func(s *Store) {
		s.skews[provider] = skew
	}
}

func WithRefreshTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.refreshTimeout = timeout
	}
}

// Store keeps token sets and hands out tokens that are valid for at least the refresh skew.
// Concurrent callers for the same credential share a single refresh.
type Store struct {
	credentials    mystore.Store[oauthmodel.TokenSet]
	refresher      Refresher
	nower          mytime.Nower
	group          singleflight.Group
	skews          map[oauthmodel.Provider]time.Duration
	refreshTimeout time.Duration
	logger         mylog.Logger
}

func New(credentials mystore.Store[oauthmodel.TokenSet], refresher Refresher, nower mytime.Nower, opts ...Option) *Store {
	s := &Store{
		credentials:    credentials,
		refresher:      refresher,
		nower:          nower,
		skews:          map[oauthmodel.Provider]time.Duration{},
		refreshTimeout: DefaultRefreshTimeout,
		logger:         mylog.New("tokenstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) skew(provider oauthmodel.Provider) time.Duration {
	skew, found := s.skews[provider]
	if !found {
		return DefaultRefreshSkew
	}
	return skew
}

func (s *Store) Put(c context.Context, tokenSet oauthmodel.TokenSet) error {
	return s.credentials.Put(c, tokenSet.CredentialID(), tokenSet, 0)
}

func (s *Store) Get(c context.Context, credentialID string) (oauthmodel.TokenSet, bool, error) {
	return s.credentials.Get(c, credentialID)
}

func (s *Store) List(c context.Context) ([]oauthmodel.TokenSet, error) {
	return s.credentials.List(c)
}

// Remove forgets a credential, after which the full authorization flow has to be run again.
func (s *Store) Remove(c context.Context, credentialID string) error {
	return s.credentials.Delete(c, credentialID)
}

// GetValidToken returns a token set whose access token is valid for at least the refresh skew,
// refreshing it first when needed. When the caller gives up while a refresh is in flight, the
// refresh still completes and is stored.
func (s *Store) GetValidToken(c context.Context, credentialID string) (oauthmodel.TokenSet, error) {
	tokenSet, found, err := s.credentials.Get(c, credentialID)
	if err != nil {
		return oauthmodel.TokenSet{}, fmt.Errorf("error fetching credential %s: %w", credentialID, err)
	}
	if !found {
		return oauthmodel.TokenSet{}, oautherrors.NewRefreshError(0, "", ErrUnknownCredential)
	}

	if !tokenSet.ExpiresWithin(s.nower.Now(), s.skew(tokenSet.Provider)) {
		return tokenSet, nil
	}

	flightCtx := context.WithoutCancel(c)
	resultChan := s.group.DoChan(credentialID, func() (interface{}, error) {
		return s.refresh(flightCtx, credentialID)
	})

	select {
	case result := <-resultChan:
		if result.Err != nil {
			return oauthmodel.TokenSet{}, result.Err
		}
		return result.Val.(oauthmodel.TokenSet), nil
	case <-c.Done():
		return oauthmodel.TokenSet{}, c.Err()
	}
}

func (s *Store) refresh(c context.Context, credentialID string) (oauthmodel.TokenSet, error) {
	c, cancel := context.WithTimeout(c, s.refreshTimeout)
	defer cancel()

	// re-read: an earlier flight may have just stored a fresh token
	current, found, err := s.credentials.Get(c, credentialID)
	if err != nil {
		return oauthmodel.TokenSet{}, fmt.Errorf("error fetching credential %s: %w", credentialID, err)
	}
	if !found {
		return oauthmodel.TokenSet{}, oautherrors.NewRefreshError(0, "", ErrUnknownCredential)
	}
	if !current.ExpiresWithin(s.nower.Now(), s.skew(current.Provider)) {
		return current, nil
	}

	s.logger.Log(c, credentialID, mylog.SeverityInfo, "Refreshing credential %s", credentialID)

	refreshed, err := s.refresher.Refresh(c, current)
	if err != nil {
		if oautherrors.IsKind(err, oautherrors.KindRefreshError) {
			s.logger.Log(c, credentialID, mylog.SeverityWarn, "Refresh rejected, removing credential %s: %s", credentialID, err)
			removeErr := s.credentials.Delete(c, credentialID)
			if removeErr != nil {
				s.logger.Log(c, credentialID, mylog.SeverityError, "Error removing credential %s: %s", credentialID, removeErr)
			}
			return oauthmodel.TokenSet{}, err
		}

		if !current.IsExpired(s.nower.Now()) {
			s.logger.Log(c, credentialID, mylog.SeverityWarn, "Refresh failed, using last known token of %s: %s", credentialID, err)
			return current, nil
		}
		return oauthmodel.TokenSet{}, err
	}

	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = current.RefreshToken
	}

	err = s.credentials.Put(c, credentialID, refreshed, 0)
	if err != nil {
		return oauthmodel.TokenSet{}, fmt.Errorf("error storing credential %s: %w", credentialID, err)
	}

	s.logger.Log(c, credentialID, mylog.SeverityInfo, "Refreshed credential %s", credentialID)

	return refreshed, nil
}
