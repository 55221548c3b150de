package statecarrier

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MarcGrol/poststudio/lib/codeverifier"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/myrandom"
	"github.com/MarcGrol/poststudio/lib/mystore"
	"github.com/MarcGrol/poststudio/lib/mytime"
	"github.com/MarcGrol/poststudio/lib/myuuid"
	"github.com/MarcGrol/poststudio/services/oauth/oautherrors"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

const stateByteCount = 24

var (
	errMissingCarrier  = errors.New("missing carrier")
	errProviderChanged = errors.New("carrier issued for other provider")
	errStateMismatch   = errors.New("state mismatch")
	errAlreadyUsed     = errors.New("carrier already used")
)

// UsedCarrier is what the ledger remembers of a consumed carrier.
type UsedCarrier struct {
	ID         string
	Provider   oauthmodel.Provider
	ConsumedAt time.Time
}

type carrierClaims struct {
	Provider           string `json:"prv"`
	State              string `json:"st"`
	CodeVerifier       string `json:"cv,omitempty"`
	RequestTokenSecret string `json:"rts,omitempty"`
	jwt.RegisteredClaims
}

type jwtIssuer struct {
	secret []byte
	ttl    time.Duration
	nower  mytime.Nower
	uuider myuuid.UUIDer
	random myrandom.RandomStringer
	ledger mystore.Store[UsedCarrier]
	logger mylog.Logger
}

// NewJWTIssuer returns an issuer whose carriers are HS256 signed tokens. The ledger records consumed
// carriers until they expire, which makes every carrier single-use.
func NewJWTIssuer(secret []byte, ttl time.Duration, nower mytime.Nower, uuider myuuid.UUIDer, random myrandom.RandomStringer, ledger mystore.Store[UsedCarrier]) *jwtIssuer {
	if ttl <= 0 || ttl > MaxTTL {
		ttl = MaxTTL
	}
	return &jwtIssuer{
		secret: secret,
		ttl:    ttl,
		nower:  nower,
		uuider: uuider,
		random: random,
		ledger: ledger,
		logger: mylog.New("statecarrier"),
	}
}

func (i *jwtIssuer) Issue(c context.Context, req IssueRequest) (AuthorizationRequest, string, error) {
	now := i.nower.Now().Truncate(time.Second)

	state := req.State
	if state == "" {
		var err error
		state, err = i.random.Create(stateByteCount)
		if err != nil {
			return AuthorizationRequest{}, "", fmt.Errorf("error creating state: %w", err)
		}
	}

	authReq := AuthorizationRequest{
		ID:                 i.uuider.Create(),
		Provider:           req.Provider,
		State:              state,
		RequestTokenSecret: req.RequestTokenSecret,
		IssuedAt:           now,
		ExpiresAt:          now.Add(i.ttl),
	}
	if req.WithVerifier {
		authReq.CodeVerifier = codeverifier.NewVerifier().GetValue()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, carrierClaims{
		Provider:           authReq.Provider.String(),
		State:              authReq.State,
		CodeVerifier:       authReq.CodeVerifier,
		RequestTokenSecret: authReq.RequestTokenSecret,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        authReq.ID,
			IssuedAt:  jwt.NewNumericDate(authReq.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(authReq.ExpiresAt),
		},
	})

	carrier, err := token.SignedString(i.secret)
	if err != nil {
		return AuthorizationRequest{}, "", fmt.Errorf("error signing carrier: %w", err)
	}

	i.logger.Log(c, authReq.ID, mylog.SeverityDebug, "Issued carrier for %s, expires at %s", req.Provider, authReq.ExpiresAt.Format(time.RFC3339))

	return authReq, carrier, nil
}

func (i *jwtIssuer) Verify(c context.Context, provider oauthmodel.Provider, carrier string, candidateState string) (AuthorizationRequest, error) {
	if carrier == "" {
		return AuthorizationRequest{}, oautherrors.NewCsrfValidationFailed(errMissingCarrier)
	}

	claims := carrierClaims{}
	_, err := jwt.ParseWithClaims(carrier, &claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.nower.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return AuthorizationRequest{}, oautherrors.NewCsrfValidationFailed(err)
	}

	if claims.ID == "" || claims.IssuedAt == nil {
		return AuthorizationRequest{}, oautherrors.NewCsrfValidationFailed(errors.New("incomplete carrier"))
	}

	authReq := AuthorizationRequest{
		ID:                 claims.ID,
		Provider:           oauthmodel.Provider(claims.Provider),
		State:              claims.State,
		CodeVerifier:       claims.CodeVerifier,
		RequestTokenSecret: claims.RequestTokenSecret,
		IssuedAt:           claims.IssuedAt.UTC(),
		ExpiresAt:          claims.ExpiresAt.UTC(),
	}

	// consumed before comparing, so a mismatching attempt also burns the carrier
	err = i.consume(c, authReq)
	if err != nil {
		return AuthorizationRequest{}, err
	}

	if authReq.Provider != provider {
		return AuthorizationRequest{}, oautherrors.NewCsrfValidationFailed(errProviderChanged)
	}

	if candidateState == "" || subtle.ConstantTimeCompare([]byte(authReq.State), []byte(candidateState)) != 1 {
		return AuthorizationRequest{}, oautherrors.NewCsrfValidationFailed(errStateMismatch)
	}

	i.logger.Log(c, authReq.ID, mylog.SeverityDebug, "Verified carrier for %s", provider)

	return authReq, nil
}

func (i *jwtIssuer) consume(c context.Context, authReq AuthorizationRequest) error {
	now := i.nower.Now()
	stored, err := i.ledger.PutIfAbsent(c, authReq.ID, UsedCarrier{
		ID:         authReq.ID,
		Provider:   authReq.Provider,
		ConsumedAt: now,
	}, authReq.ExpiresAt.Sub(now))
	if err != nil {
		return oautherrors.NewCsrfValidationFailed(fmt.Errorf("error consuming carrier: %w", err))
	}
	if !stored {
		i.logger.Log(c, authReq.ID, mylog.SeverityWarn, "Replay of carrier for %s", authReq.Provider)
		return oautherrors.NewCsrfValidationFailed(errAlreadyUsed)
	}

	return nil
}
