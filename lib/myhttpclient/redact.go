package myhttpclient

import "net/url"

var sensitiveQueryParams = []string{
	"access_token",
	"client_secret",
	"fb_exchange_token",
	"code",
}

// redact masks credentials that some providers expect as query parameters.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparsable url>"
	}
	q := u.Query()
	changed := false
	for _, name := range sensitiveQueryParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
