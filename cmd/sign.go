package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MarcGrol/poststudio/lib/myrandom"
	"github.com/MarcGrol/poststudio/lib/oauthsign"
)

var signFlags struct {
	method         string
	rawURL         string
	params         []string
	consumerKey    string
	consumerSecret string
	token          string
	tokenSecret    string
	nonce          string
	timestamp      string
}

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print the OAuth1.0a signature for a request",
	Long:  `Computes the signature base string, the HMAC-SHA1 signature and the Authorization header for a request. Useful to compare against a provider's signature debugger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(signFlags.params)
		if err != nil {
			return err
		}

		nonce := signFlags.nonce
		if nonce == "" {
			nonce, err = myrandom.NewRandomStringer().Create(16)
			if err != nil {
				return fmt.Errorf("error creating nonce: %w", err)
			}
		}
		timestamp := signFlags.timestamp
		if timestamp == "" {
			timestamp = strconv.FormatInt(time.Now().Unix(), 10)
		}

		creds := oauthsign.Credentials{
			ConsumerKey:    signFlags.consumerKey,
			ConsumerSecret: signFlags.consumerSecret,
			Token:          signFlags.token,
			TokenSecret:    signFlags.tokenSecret,
		}

		header, err := oauthsign.AuthorizationHeader(signFlags.method, signFlags.rawURL, params, nil, creds, nonce, timestamp)
		if err != nil {
			return fmt.Errorf("error signing request: %w", err)
		}

		signed := url.Values{}
		for key, values := range params {
			signed[key] = append(signed[key], values...)
		}
		signed.Set("oauth_consumer_key", creds.ConsumerKey)
		signed.Set("oauth_nonce", nonce)
		signed.Set("oauth_signature_method", oauthsign.SignatureMethod)
		signed.Set("oauth_timestamp", timestamp)
		signed.Set("oauth_version", oauthsign.Version)
		if creds.Token != "" {
			signed.Set("oauth_token", creds.Token)
		}

		baseString, err := oauthsign.BaseString(signFlags.method, signFlags.rawURL, signed)
		if err != nil {
			return fmt.Errorf("error composing base string: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "base string:\n%s\n\n", baseString)
		fmt.Fprintf(cmd.OutOrStdout(), "signing key:\n%s\n\n", redactKey(oauthsign.SigningKey(creds.ConsumerSecret, creds.TokenSecret)))
		fmt.Fprintf(cmd.OutOrStdout(), "signature:\n%s\n\n", oauthsign.Sign(baseString, oauthsign.SigningKey(creds.ConsumerSecret, creds.TokenSecret)))
		fmt.Fprintf(cmd.OutOrStdout(), "Authorization: %s\n", header)

		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&signFlags.method, "method", "POST", "HTTP method")
	signCmd.Flags().StringVar(&signFlags.rawURL, "url", "", "request url, query parameters are included in the signature")
	signCmd.Flags().StringArrayVar(&signFlags.params, "param", nil, "form body parameter as key=value, may be repeated")
	signCmd.Flags().StringVar(&signFlags.consumerKey, "consumer-key", "", "consumer key")
	signCmd.Flags().StringVar(&signFlags.consumerSecret, "consumer-secret", "", "consumer secret")
	signCmd.Flags().StringVar(&signFlags.token, "token", "", "access or request token")
	signCmd.Flags().StringVar(&signFlags.tokenSecret, "token-secret", "", "token secret")
	signCmd.Flags().StringVar(&signFlags.nonce, "nonce", "", "fixed nonce, generated when empty")
	signCmd.Flags().StringVar(&signFlags.timestamp, "timestamp", "", "fixed unix timestamp, current time when empty")
	_ = signCmd.MarkFlagRequired("url")
	_ = signCmd.MarkFlagRequired("consumer-key")
	_ = signCmd.MarkFlagRequired("consumer-secret")

	rootCmd.AddCommand(signCmd)
}

func parseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid param %q, expected key=value", pair)
		}
		params.Add(key, value)
	}
	return params, nil
}

// redactKey keeps the separator visible so an empty token secret can be recognised.
func redactKey(key string) string {
	consumer, token, _ := strings.Cut(key, "&")
	return mask(consumer) + "&" + mask(token)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", len(s))
}
