package handoff

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
)

const (
	DataParam    = "data"
	ErrorParam   = "error"
	SuccessValue = "success"
)

var ErrNoPayload = errors.New("no handoff payload in url")

// Codec turns a token set into an opaque payload that survives one redirect.
type Codec interface {
	Encode(tokenSet oauthmodel.TokenSet) (string, error)
	Decode(payload string) (oauthmodel.TokenSet, error)
}

// Base64JSONCodec encodes the token set as url-safe base64 of its JSON form. It does not encrypt.
type Base64JSONCodec struct{}

func (Base64JSONCodec) Encode(tokenSet oauthmodel.TokenSet) (string, error) {
	jsonBytes, err := json.Marshal(tokenSet)
	if err != nil {
		return "", fmt.Errorf("error marshalling token set: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(jsonBytes), nil
}

// Decode accepts both the url-safe and the standard alphabet, with or without padding.
func (Base64JSONCodec) Decode(payload string) (oauthmodel.TokenSet, error) {
	payload = strings.TrimRight(strings.TrimSpace(payload), "=")
	if payload == "" {
		return oauthmodel.TokenSet{}, ErrNoPayload
	}

	encoding := base64.RawURLEncoding
	if strings.ContainsAny(payload, "+/") {
		encoding = base64.RawStdEncoding
	}

	jsonBytes, err := encoding.DecodeString(payload)
	if err != nil {
		return oauthmodel.TokenSet{}, fmt.Errorf("error decoding payload: %w", err)
	}

	tokenSet := oauthmodel.TokenSet{}
	err = json.Unmarshal(jsonBytes, &tokenSet)
	if err != nil {
		return oauthmodel.TokenSet{}, fmt.Errorf("error unmarshalling token set: %w", err)
	}

	return tokenSet, nil
}

func statusParam(provider oauthmodel.Provider) string {
	return provider.String() + "_auth"
}

// SuccessURL appends {provider}_auth=success and the payload to the landing url.
func SuccessURL(codec Codec, landingURL string, tokenSet oauthmodel.TokenSet) (string, error) {
	payload, err := codec.Encode(tokenSet)
	if err != nil {
		return "", err
	}

	return appendParams(landingURL, url.Values{
		statusParam(tokenSet.Provider): {SuccessValue},
		DataParam:                      {payload},
	})
}

func ErrorURL(landingURL string, message string) (string, error) {
	return appendParams(landingURL, url.Values{
		ErrorParam: {message},
	})
}

func appendParams(landingURL string, params url.Values) (string, error) {
	u, err := url.Parse(landingURL)
	if err != nil {
		return "", fmt.Errorf("error parsing landing url %s: %w", landingURL, err)
	}

	query := u.Query()
	for key, values := range params {
		query[key] = values
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// ConsumeFromURL reads the payload from a landing url and returns the url without it, so the caller
// can replace the browser history entry.
func ConsumeFromURL(codec Codec, rawURL string) (oauthmodel.TokenSet, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return oauthmodel.TokenSet{}, rawURL, fmt.Errorf("error parsing url: %w", err)
	}

	query := u.Query()
	payload := query.Get(DataParam)
	if payload == "" {
		return oauthmodel.TokenSet{}, rawURL, ErrNoPayload
	}

	tokenSet, err := codec.Decode(payload)

	query.Del(DataParam)
	for key := range query {
		if strings.HasSuffix(key, "_auth") {
			query.Del(key)
		}
	}
	u.RawQuery = query.Encode()

	return tokenSet, u.String(), err
}
