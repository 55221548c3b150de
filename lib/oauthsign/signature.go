package oauthsign

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const (
	SignatureMethod = "HMAC-SHA1"
	Version         = "1.0"
)

// PercentEncode encodes s per RFC 3986: only A-Z a-z 0-9 - . _ ~ are left as is.
func PercentEncode(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreserved(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0F])
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	return ('A' <= ch && ch <= 'Z') || ('a' <= ch && ch <= 'z') || ('0' <= ch && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_' || ch == '~'
}

// NormalizeParameters encodes all keys and values, sorts by encoded key then encoded value
// and joins them as key=value pairs separated by &.
func NormalizeParameters(params url.Values) string {
	pairs := make([]string, 0, len(params))
	for key, values := range params {
		encodedKey := PercentEncode(key)
		for _, value := range values {
			pairs = append(pairs, encodedKey+"="+PercentEncode(value))
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		ki, vi, _ := strings.Cut(pairs[i], "=")
		kj, vj, _ := strings.Cut(pairs[j], "=")
		if ki != kj {
			return ki < kj
		}
		return vi < vj
	})

	return strings.Join(pairs, "&")
}

// BaseURL strips query and fragment, lowercases scheme and host and drops a default port.
func BaseURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host = host + ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

// BaseString builds the signature base string. Query parameters of rawURL are signed together with params.
func BaseString(method string, rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("error parsing url %s: %w", rawURL, err)
	}

	all := url.Values{}
	for key, values := range u.Query() {
		all[key] = append(all[key], values...)
	}
	for key, values := range params {
		all[key] = append(all[key], values...)
	}

	return strings.Join([]string{
		strings.ToUpper(method),
		PercentEncode(BaseURL(u)),
		PercentEncode(NormalizeParameters(all)),
	}, "&"), nil
}

// SigningKey joins both secrets. An empty token secret still yields the trailing &.
func SigningKey(consumerSecret, tokenSecret string) string {
	return PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)
}

func Sign(baseString string, signingKey string) string {
	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(baseString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Signature computes the HMAC-SHA1 signature of a request.
func Signature(method string, rawURL string, params url.Values, consumerSecret string, tokenSecret string) (string, error) {
	baseString, err := BaseString(method, rawURL, params)
	if err != nil {
		return "", err
	}
	return Sign(baseString, SigningKey(consumerSecret, tokenSecret)), nil
}
