package oauthsign

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/MarcGrol/poststudio/lib/myrandom"
	"github.com/MarcGrol/poststudio/lib/mytime"
)

type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
}

type Signer struct {
	nower mytime.Nower
	nonce myrandom.RandomStringer
}

func NewSigner(nower mytime.Nower, nonce myrandom.RandomStringer) *Signer {
	return &Signer{
		nower: nower,
		nonce: nonce,
	}
}

// AuthorizationHeader returns the value of the Authorization header for a request.
// bodyParams are the form encoded body parameters, protocolParams are additional
// oauth_ parameters such as oauth_callback or oauth_verifier.
func (s *Signer) AuthorizationHeader(method string, rawURL string, bodyParams url.Values, protocolParams map[string]string, creds Credentials) (string, error) {
	nonce, err := s.nonce.Create(16)
	if err != nil {
		return "", fmt.Errorf("error creating nonce: %w", err)
	}

	return AuthorizationHeader(method, rawURL, bodyParams, protocolParams, creds, nonce, strconv.FormatInt(s.nower.Now().Unix(), 10))
}

// AuthorizationHeader is the deterministic variant that takes nonce and timestamp from the caller.
func AuthorizationHeader(method string, rawURL string, bodyParams url.Values, protocolParams map[string]string, creds Credentials, nonce string, timestamp string) (string, error) {
	oauthParams := map[string]string{
		"oauth_consumer_key":     creds.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": SignatureMethod,
		"oauth_timestamp":        timestamp,
		"oauth_version":          Version,
	}
	if creds.Token != "" {
		oauthParams["oauth_token"] = creds.Token
	}
	for key, value := range protocolParams {
		oauthParams[key] = value
	}

	signed := url.Values{}
	for key, values := range bodyParams {
		signed[key] = append(signed[key], values...)
	}
	for key, value := range oauthParams {
		signed.Set(key, value)
	}

	signature, err := Signature(method, rawURL, signed, creds.ConsumerSecret, creds.TokenSecret)
	if err != nil {
		return "", err
	}
	oauthParams["oauth_signature"] = signature

	keys := make([]string, 0, len(oauthParams))
	for key := range oauthParams {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, PercentEncode(key), PercentEncode(oauthParams[key])))
	}

	return "OAuth " + strings.Join(parts, ", "), nil
}
