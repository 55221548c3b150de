package statecarrier

import (
	"context"
	"time"

	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

// MaxTTL is the upper bound on the lifetime of a carrier.
const MaxTTL = 10 * time.Minute

// AuthorizationRequest is one in-flight authorization attempt.
type AuthorizationRequest struct {
	ID           string
	Provider     oauthmodel.Provider
	State        string
	CodeVerifier string

	// RequestTokenSecret is only used by the oauth1 flow, where the state is the request token.
	RequestTokenSecret string
	IssuedAt           time.Time
	ExpiresAt          time.Time
}

type IssueRequest struct {
	Provider     oauthmodel.Provider
	WithVerifier bool

	// State is generated when empty.
	State              string
	RequestTokenSecret string
}

type Issuer interface {
	// Issue creates a new authorization request and the opaque carrier that transports it.
	Issue(c context.Context, req IssueRequest) (AuthorizationRequest, string, error)
	// Verify checks the carrier and the candidate state and consumes the carrier. Every failure is
	// a CsrfValidationFailed error.
	Verify(c context.Context, provider oauthmodel.Provider, carrier string, candidateState string) (AuthorizationRequest, error)
}
