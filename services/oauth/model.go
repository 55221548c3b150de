package oauth

import (
	"net/url"

	formcodec "github.com/go-playground/form/v4"
)

// CallbackParams is the query an oauth2 provider redirects back with.
type CallbackParams struct {
	Code             string `form:"code,omitempty"`
	State            string `form:"state,omitempty"`
	Error            string `form:"error,omitempty"`
	ErrorDescription string `form:"error_description,omitempty"`
	ErrorReason      string `form:"error_reason,omitempty"`
}

// OAuth1CallbackParams is the query of the oauth 1.0a callback. Denied is set instead of the
// verifier when the user declined.
type OAuth1CallbackParams struct {
	Token    string `form:"oauth_token,omitempty"`
	Verifier string `form:"oauth_verifier,omitempty"`
	Denied   string `form:"denied,omitempty"`
}

func CallbackParamsFromQuery(values url.Values) (CallbackParams, error) {
	params := CallbackParams{}
	err := formcodec.NewDecoder().Decode(&params, values)
	if err != nil {
		return params, err
	}
	return params, nil
}

func OAuth1CallbackParamsFromQuery(values url.Values) (OAuth1CallbackParams, error) {
	params := OAuth1CallbackParams{}
	err := formcodec.NewDecoder().Decode(&params, values)
	if err != nil {
		return params, err
	}
	return params, nil
}

func (p CallbackParams) ToQuery() (url.Values, error) {
	return formcodec.NewEncoder().Encode(p)
}
