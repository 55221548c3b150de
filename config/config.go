package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/MarcGrol/poststudio/lib/mystore"
	"github.com/MarcGrol/poststudio/services/oauth/oauthmodel"
	"github.com/MarcGrol/poststudio/services/oauth/providers"
	"github.com/MarcGrol/poststudio/services/oauth/statecarrier"
)

// Config holds the server settings. Provider credentials are optional here: a provider without
// them fails at login time with a ConfigurationError.
type Config struct {
	Port           int           `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	AppURL         string        `env:"APP_URL" envDefault:"/" validate:"required"`
	CarrierSecret  string        `env:"CARRIER_SECRET" validate:"required,min=32" secret:"true"`
	CarrierTTL     time.Duration `env:"CARRIER_TTL" envDefault:"10m" validate:"min=1s,max=10m"`
	CookieInsecure bool          `env:"COOKIE_INSECURE" envDefault:"false"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s" validate:"min=1s,max=10s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	LedgerStore   string `env:"LEDGER_STORE" envDefault:"memory" validate:"oneof=memory redis"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379" validate:"required_if=LedgerStore redis"`
	RedisPassword string `env:"REDIS_PASSWORD" secret:"true"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"min=0"`

	TwitterClientID          string `env:"TWITTER_CLIENT_ID"`
	TwitterClientSecret      string `env:"TWITTER_CLIENT_SECRET" secret:"true"`
	TwitterRedirectURI       string `env:"TWITTER_REDIRECT_URI" envDefault:"/api/auth/twitter/callback"`
	TwitterConsumerKey       string `env:"TWITTER_CONSUMER_KEY"`
	TwitterConsumerSecret    string `env:"TWITTER_CONSUMER_SECRET" secret:"true"`
	TwitterOAuth1CallbackURI string `env:"TWITTER_OAUTH1_CALLBACK_URI" envDefault:"/api/auth/twitter/oauth1/callback"`
	TwitterAuthHostname      string `env:"TWITTER_AUTH_HOSTNAME"`
	TwitterTokenHostname     string `env:"TWITTER_TOKEN_HOSTNAME"`
	TwitterAPIHostname       string `env:"TWITTER_API_HOSTNAME"`

	FacebookAppID         string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret     string `env:"FACEBOOK_APP_SECRET" secret:"true"`
	FacebookRedirectURI   string `env:"FACEBOOK_REDIRECT_URI" envDefault:"/api/auth/facebook/callback"`
	FacebookGraphVersion  string `env:"FACEBOOK_GRAPH_VERSION" envDefault:"v19.0"`
	FacebookAuthHostname  string `env:"FACEBOOK_AUTH_HOSTNAME"`
	FacebookTokenHostname string `env:"FACEBOOK_TOKEN_HOSTNAME"`
	FacebookAPIHostname   string `env:"FACEBOOK_API_HOSTNAME"`
}

func Load() (*Config, error) {
	cfg := Config{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = Validate(&cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func Validate(cfg *Config) error {
	validate := validator.New()
	return validate.Struct(cfg)
}

func (c *Config) StoreConfig() mystore.Config {
	return mystore.Config{
		Type: mystore.ParseStoreType(c.LedgerStore),
		Redis: mystore.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
	}
}

func (c *Config) CarrierLifetime() time.Duration {
	if c.CarrierTTL > statecarrier.MaxTTL {
		return statecarrier.MaxTTL
	}
	return c.CarrierTTL
}

// Providers builds the provider registry with the configured credentials and host overrides.
func (c *Config) Providers() *providers.OAuthProviders {
	p := providers.NewProviders(c.FacebookGraphVersion)

	p.Set(oauthmodel.ProviderTwitter, c.TwitterClientID, c.TwitterClientSecret, c.TwitterRedirectURI)
	p.SetOAuth1(oauthmodel.ProviderTwitter, c.TwitterConsumerKey, c.TwitterConsumerSecret, c.TwitterOAuth1CallbackURI)
	p.SetHostnames(oauthmodel.ProviderTwitter, c.TwitterAuthHostname, c.TwitterTokenHostname, c.TwitterAPIHostname)

	p.Set(oauthmodel.ProviderFacebook, c.FacebookAppID, c.FacebookAppSecret, c.FacebookRedirectURI)
	p.SetHostnames(oauthmodel.ProviderFacebook, c.FacebookAuthHostname, c.FacebookTokenHostname, c.FacebookAPIHostname)

	return p
}

// String returns the config with secret fields redacted.
func (c *Config) String() string {
	v := reflect.ValueOf(*c)
	t := reflect.TypeOf(*c)
	var sb strings.Builder
	sb.WriteString("Config{")
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprintf("%v", v.Field(i).Interface())
		if field.Tag.Get("secret") == "true" && value != "" {
			value = "***REDACTED***"
		}
		sb.WriteString(field.Name + ": " + value)
		if i < t.NumField()-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString("}")
	return sb.String()
}
