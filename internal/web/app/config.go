package app

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// dev, staging, prod
	Env string `envconfig:"ENV" default:"dev"`
	// debug, info, warn, error
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// json, text
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	// HTTP server port
	Port int `envconfig:"PORT" default:"3000"`
	// Graceful shutdown timeout
	ShutdownGracePeriod time.Duration `envconfig:"SHUTDOWN_GRACE_PERIOD" default:"10s"`

	// Hosted login domain, e.g. auth.example.com
	CognitoDomain            string `envconfig:"COGNITO_DOMAIN"`
	CognitoClientID          string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoClientSecret      string `envconfig:"COGNITO_CLIENT_SECRET"`
	CognitoRedirectURI       string `envconfig:"COGNITO_REDIRECT_URI"`
	CognitoLogoutRedirectURI string `envconfig:"COGNITO_LOGOUT_REDIRECT_URI"`
	// Optional prompt parameter, e.g. login
	CognitoPrompt     string `envconfig:"COGNITO_PROMPT"`
	CognitoRegion     string `envconfig:"COGNITO_REGION"`
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	// Optional: overrides the region/pool issuer
	CognitoIssuer string `envconfig:"COGNITO_ISSUER"`
	// Optional: overrides {issuer}/.well-known/jwks.json
	CognitoJWKSURL string `envconfig:"COGNITO_JWKS_URL"`

	APIBaseURL string `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	// Accepts ?token= on the callback. Never enable in production.
	AllowInsecureDevToken bool `envconfig:"ALLOW_INSECURE_DEV_TOKEN" default:"false"`
	// Forces the Secure cookie attribute behind TLS-terminating proxies
	CookieSecure bool `envconfig:"COOKIE_SECURE" default:"false"`

	ProvisionWait        time.Duration `envconfig:"PROVISION_WAIT" default:"3s"`
	ProvisionTimeout     time.Duration `envconfig:"PROVISION_TIMEOUT" default:"10s"`
	OAuthExchangeTimeout time.Duration `envconfig:"OAUTH_EXCHANGE_TIMEOUT" default:"10s"`

	RateLimits httpx.RateLimits `ignored:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	limits, err := httpx.LoadRateLimits()
	if err != nil {
		return Config{}, fmt.Errorf("load rate limits: %w", err)
	}
	cfg.RateLimits = limits

	return cfg, nil
}

// Issuer is the expected token issuer, or "" when the pool is not
// configured. The web tier only needs it to check dev hatch tokens.
func (c Config) Issuer() string {
	if c.CognitoIssuer != "" {
		return c.CognitoIssuer
	}
	if c.CognitoRegion == "" || c.CognitoUserPoolID == "" {
		return ""
	}
	return jwtx.CognitoIssuer(c.CognitoRegion, c.CognitoUserPoolID)
}

func (c Config) JWKSURL() string {
	if c.CognitoJWKSURL != "" {
		return c.CognitoJWKSURL
	}
	if iss := c.Issuer(); iss != "" {
		return jwtx.JWKSURL(iss)
	}
	return ""
}
