package oauthevents

import (
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

const (
	TopicName                  = "oauth"
	authorizationStartedName   = TopicName + ".authorization.started"
	authorizationCompletedName = TopicName + ".authorization.completed"
	authorizationFailedName    = TopicName + ".authorization.failed"
	tokenRefreshedName         = TopicName + ".token.refreshed"
)

type AuthorizationStarted struct {
	AttemptID    string
	ProviderName oauthmodel.Provider
	AuthType     oauthmodel.AuthType
	Scopes       []string
}

func (e AuthorizationStarted) GetEventTypeName() string {
	return authorizationStartedName
}

func (e AuthorizationStarted) GetAggregateName() string {
	return e.AttemptID
}

// AuthorizationCompleted is also published when the flow succeeded in a degraded state.
type AuthorizationCompleted struct {
	AttemptID    string
	ProviderName oauthmodel.Provider
	AuthType     oauthmodel.AuthType
	ProfileID    string
	ShortLived   bool
	NoProfile    bool
	ZeroPages    bool
}

func (e AuthorizationCompleted) GetEventTypeName() string {
	return authorizationCompletedName
}

func (e AuthorizationCompleted) GetAggregateName() string {
	return e.AttemptID
}

type AuthorizationFailed struct {
	AttemptID    string
	ProviderName oauthmodel.Provider
	AuthType     oauthmodel.AuthType
	Step         string
	ErrorKind    string
}

func (e AuthorizationFailed) GetEventTypeName() string {
	return authorizationFailedName
}

func (e AuthorizationFailed) GetAggregateName() string {
	return e.AttemptID
}

type TokenRefreshed struct {
	UID          string
	ProviderName oauthmodel.Provider
	Success      bool
	ErrorKind    string
	PageCount    int
}

func (e TokenRefreshed) GetEventTypeName() string {
	return tokenRefreshedName
}

func (e TokenRefreshed) GetAggregateName() string {
	return e.UID
}
