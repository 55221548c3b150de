package tokenstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/poststudio/lib/mystore"
	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

var now = mytime.ExampleTime

func expiringAt(t time.Time) *time.Time {
	return &t
}

func twitterTokenSet(expiresAt time.Time) oauthmodel.TokenSet {
	return oauthmodel.TokenSet{
		Provider:     oauthmodel.ProviderTwitter,
		AuthType:     oauthmodel.AuthTypeOAuth2,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    7200,
		ExpiresAt:    expiringAt(expiresAt),
		Profile:      oauthmodel.Profile{ID: "42", DisplayName: "Marc"},
	}
}

func setup(t *testing.T) (context.Context, *Store, *MockRefresher) {
	ctrl := gomock.NewController(t)
	c := context.TODO()

	nower := mytime.FixedNower{Instant: now}
	credentials, cleanup, err := mystore.NewInMemoryStore[oauthmodel.TokenSet](c, nower)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	refresher := NewMockRefresher(ctrl)
	return c, New(credentials, refresher, nower, WithRefreshSkew(oauthmodel.ProviderFacebook, 10*time.Minute)), refresher
}

func TestGetValidToken(t *testing.T) {
	t.Run("Valid token is returned as is", func(t *testing.T) {
		c, sut, _ := setup(t)
		ts := twitterTokenSet(now.Add(time.Hour))
		require.NoError(t, sut.Put(c, ts))

		got, err := sut.GetValidToken(c, "twitter:42")
		assert.NoError(t, err)
		assert.Equal(t, "access-1", got.AccessToken)
	})

	t.Run("OAuth1 credentials never refresh", func(t *testing.T) {
		c, sut, _ := setup(t)
		ts := oauthmodel.TokenSet{
			Provider:     oauthmodel.ProviderTwitter,
			AuthType:     oauthmodel.AuthTypeOAuth1,
			AccessToken:  "token",
			AccessSecret: "secret",
			Profile:      oauthmodel.Profile{ID: "42"},
		}
		require.NoError(t, sut.Put(c, ts))

		got, err := sut.GetValidToken(c, "twitter:42")
		assert.NoError(t, err)
		assert.Equal(t, "secret", got.AccessSecret)
	})

	t.Run("Unknown credential", func(t *testing.T) {
		c, sut, _ := setup(t)

		_, err := sut.GetValidToken(c, "twitter:42")
		assert.True(t, oautherrors.IsKind(err, oautherrors.KindRefreshError))
		assert.ErrorIs(t, err, ErrUnknownCredential)
	})

	t.Run("Token within skew is refreshed and stored", func(t *testing.T) {
		c, sut, refresher := setup(t)
		require.NoError(t, sut.Put(c, twitterTokenSet(now.Add(time.Minute))))

		refresher.EXPECT().Refresh(gomock.Any(), gomock.Any()).DoAndReturn(
			func(c context.Context, ts oauthmodel.TokenSet) (oauthmodel.TokenSet, error) {
				assert.Equal(t, "refresh-1", ts.RefreshToken)
				ts.AccessToken = "access-2"
				ts.RefreshToken = ""
				ts.ExpiresAt = expiringAt(now.Add(2 * time.Hour))
				return ts, nil
			})

		got, err := sut.GetValidToken(c, "twitter:42")
		assert.NoError(t, err)
		assert.Equal(t, "access-2", got.AccessToken)
		assert.Equal(t, "refresh-1", got.RefreshToken)

		stored, found, err := sut.Get(c, "twitter:42")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "access-2", stored.AccessToken)
	})

	t.Run("Concurrent callers share one refresh", func(t *testing.T) {
		c, sut, refresher := setup(t)
		require.NoError(t, sut.Put(c, twitterTokenSet(now.Add(time.Second))))

		release := make(chan struct{})
		refresher.EXPECT().Refresh(gomock.Any(), gomock.Any()).DoAndReturn(
			func(c context.Context, ts oauthmodel.TokenSet) (oauthmodel.TokenSet, error) {
				<-release
				ts.AccessToken = "access-2"
				ts.ExpiresAt = expiringAt(now.Add(2 * time.Hour))
				return ts, nil
			}).Times(1)

		const callers = 10
		results := make([]string, callers)
		errs := make([]error, callers)
		wg := sync.WaitGroup{}
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ts, err := sut.GetValidToken(c, "twitter:42")
				results[i] = ts.AccessToken
				errs[i] = err
			}(i)
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		for i := 0; i < callers; i++ {
			assert.NoError(t, errs[i])
			assert.Equal(t, "access-2", results[i])
		}
	})

	t.Run("Rejected refresh removes the credential", func(t *testing.T) {
		c, sut, refresher := setup(t)
		require.NoError(t, sut.Put(c, twitterTokenSet(now.Add(time.Minute))))

		refresher.EXPECT().Refresh(gomock.Any(), gomock.Any()).
			Return(oauthmodel.TokenSet{}, oautherrors.NewRefreshError(400, `{"error":"invalid_request"}`, errors.New("bad refresh token")))

		_, err := sut.GetValidToken(c, "twitter:42")
		assert.True(t, oautherrors.IsKind(err, oautherrors.KindRefreshError))

		_, found, err := sut.Get(c, "twitter:42")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Network failure falls back to unexpired token", func(t *testing.T) {
		c, sut, refresher := setup(t)
		require.NoError(t, sut.Put(c, twitterTokenSet(now.Add(time.Minute))))

		refresher.EXPECT().Refresh(gomock.Any(), gomock.Any()).
			Return(oauthmodel.TokenSet{}, oautherrors.NewNetworkError(errors.New("connection reset")))

		got, err := sut.GetValidToken(c, "twitter:42")
		assert.NoError(t, err)
		assert.Equal(t, "access-1", got.AccessToken)

		_, found, err := sut.Get(c, "twitter:42")
		assert.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Network failure with expired token", func(t *testing.T) {
		c, sut, refresher := setup(t)
		require.NoError(t, sut.Put(c, twitterTokenSet(now.Add(-time.Minute))))

		refresher.EXPECT().Refresh(gomock.Any(), gomock.Any()).
			Return(oauthmodel.TokenSet{}, oautherrors.NewNetworkError(errors.New("connection reset")))

		_, err := sut.GetValidToken(c, "twitter:42")
		assert.True(t, oautherrors.IsKind(err, oautherrors.KindNetworkError))

		_, found, err := sut.Get(c, "twitter:42")
		assert.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Refresh completes after caller gave up", func(t *testing.T) {
		c, sut, refresher := setup(t)
		require.NoError(t, sut.Put(c, twitterTokenSet(now.Add(time.Second))))

		callerCtx, cancel := context.WithCancel(c)
		release := make(chan struct{})
		refresher.EXPECT().Refresh(gomock.Any(), gomock.Any()).DoAndReturn(
			func(c context.Context, ts oauthmodel.TokenSet) (oauthmodel.TokenSet, error) {
				cancel()
				<-release
				assert.NoError(t, c.Err())
				ts.AccessToken = "access-2"
				ts.ExpiresAt = expiringAt(now.Add(2 * time.Hour))
				return ts, nil
			})

		_, err := sut.GetValidToken(callerCtx, "twitter:42")
		assert.ErrorIs(t, err, context.Canceled)

		close(release)
		assert.Eventually(t, func() bool {
			stored, _, _ := sut.Get(c, "twitter:42")
			return stored.AccessToken == "access-2"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Provider specific skew", func(t *testing.T) {
		c, sut, refresher := setup(t)
		ts := twitterTokenSet(now.Add(7 * time.Minute))
		ts.Provider = oauthmodel.ProviderFacebook
		require.NoError(t, sut.Put(c, ts))

		refresher.EXPECT().Refresh(gomock.Any(), gomock.Any()).DoAndReturn(
			func(c context.Context, ts oauthmodel.TokenSet) (oauthmodel.TokenSet, error) {
				ts.ExpiresAt = expiringAt(now.Add(60 * 24 * time.Hour))
				return ts, nil
			})

		_, err := sut.GetValidToken(c, "facebook:42")
		assert.NoError(t, err)
	})
}

func TestRemove(t *testing.T) {
	c, sut, _ := setup(t)
	require.NoError(t, sut.Put(c, twitterTokenSet(now.Add(time.Hour))))

	all, err := sut.List(c)
	assert.NoError(t, err)
	assert.Len(t, all, 1)

	assert.NoError(t, sut.Remove(c, "twitter:42"))

	_, err = sut.GetValidToken(c, "twitter:42")
	assert.ErrorIs(t, err, ErrUnknownCredential)
}
