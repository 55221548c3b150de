package statecarrier

import (
	"net/http"
	"time"

	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

// Scope names the cookie of one authorization flow and the path it is restricted to.
type Scope struct {
	Name string
	Path string
}

func ScopeFor(provider oauthmodel.Provider) Scope {
	return Scope{
		Name: "oauth_carrier_" + provider.String(),
		Path: "/api/auth/" + provider.String(),
	}
}

func OAuth1ScopeFor(provider oauthmodel.Provider) Scope {
	return Scope{
		Name: "oauth1_carrier_" + provider.String(),
		Path: "/api/auth/" + provider.String() + "/oauth1",
	}
}

// CookieTransport moves carriers in http-only, same-site-lax cookies.
type CookieTransport struct {
	TTL time.Duration

	// Insecure drops the Secure attribute, for local development over plain http only.
	Insecure bool
}

func NewCookieTransport(ttl time.Duration, insecure bool) CookieTransport {
	if ttl <= 0 || ttl > MaxTTL {
		ttl = MaxTTL
	}
	return CookieTransport{
		Insecure: insecure,
		TTL:      ttl,
	}
}

func (t CookieTransport) Set(w http.ResponseWriter, scope Scope, carrier string) {
	http.SetCookie(w, t.cookie(scope, carrier, int(t.TTL.Seconds())))
}

// Read returns an empty string when no carrier is present.
func (t CookieTransport) Read(r *http.Request, scope Scope) string {
	cookie, err := r.Cookie(scope.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (t CookieTransport) Clear(w http.ResponseWriter, scope Scope) {
	http.SetCookie(w, t.cookie(scope, "", -1))
}

func (t CookieTransport) cookie(scope Scope, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     scope.Name,
		Value:    value,
		Path:     scope.Path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !t.Insecure,
		SameSite: http.SameSiteLaxMode,
	}
}
