package oauthmodel

import "time"

type Provider string

const (
	ProviderTwitter  Provider = "twitter"
	ProviderFacebook Provider = "facebook"
)

func ParseProvider(name string) (Provider, bool) {
	switch Provider(name) {
	case ProviderTwitter, ProviderFacebook:
		return Provider(name), true
	default:
		return "", false
	}
}

func (p Provider) String() string {
	return string(p)
}

type AuthType string

const (
	AuthTypeOAuth2 AuthType = "oauth2"
	AuthTypeOAuth1 AuthType = "oauth1"
)

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username,omitempty"`
}

// PlaceholderDisplayName is used when the profile could not be fetched.
const PlaceholderDisplayName = "Unknown user"

// PageToken is a page scoped credential. It stays valid as long as the user token it was fetched with.
type PageToken struct {
	PageID      string `json:"pageId"`
	AccessToken string `json:"pageAccessToken"`
	DisplayName string `json:"displayName"`
	Category    string `json:"category,omitempty"`
}

type TokenSet struct {
	Provider     Provider    `json:"provider"`
	AuthType     AuthType    `json:"authType"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	AccessSecret string      `json:"accessSecret,omitempty"`
	TokenType    string      `json:"tokenType,omitempty"`
	Scope        string      `json:"scope,omitempty"`
	ExpiresIn    int         `json:"expiresIn,omitempty"`
	ExpiresAt    *time.Time  `json:"expiresAt,omitempty"`
	Profile      Profile     `json:"profile"`
	Pages        []PageToken `json:"pages,omitempty"`

	// ShortLived is set when the upgrade to a long-lived token did not succeed.
	ShortLived bool `json:"shortLived,omitempty"`
}

// CredentialID identifies a token set within a token store.
func (ts TokenSet) CredentialID() string {
	return string(ts.Provider) + ":" + ts.Profile.ID
}

// ExpiresWithin reports whether the token expires before now+skew. OAuth1 token sets never expire;
// an oauth2 set without expiry is treated as expired.
func (ts TokenSet) ExpiresWithin(now time.Time, skew time.Duration) bool {
	if ts.AuthType == AuthTypeOAuth1 {
		return false
	}
	if ts.ExpiresAt == nil {
		return true
	}
	return !now.Add(skew).Before(*ts.ExpiresAt)
}

func (ts TokenSet) IsExpired(now time.Time) bool {
	return ts.ExpiresWithin(now, 0)
}

// RefreshRequest is the body of the token refresh endpoint.
type RefreshRequest struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshResponse is returned by the token refresh endpoint.
type RefreshResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresIn    int         `json:"expires_in"`
	TokenType    string      `json:"token_type"`
	Pages        []PageToken `json:"pages,omitempty"`
}

// TweetRequest is the body of the OAuth 1.0a signing endpoint.
type TweetRequest struct {
	Text         string `json:"text" validate:"required,max=280"`
	AccessToken  string `json:"accessToken" validate:"required"`
	AccessSecret string `json:"accessSecret" validate:"required"`
}
