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
	Env                 string        `envconfig:"ENV" default:"dev"`
	// debug, info, warn, error
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"info"`
	// json, text
	LogFormat           string        `envconfig:"LOG_FORMAT" default:"json"`
	// HTTP server port
	Port                int           `envconfig:"PORT" default:"8080"`
	// Graceful shutdown timeout
	ShutdownGracePeriod time.Duration `envconfig:"SHUTDOWN_GRACE_PERIOD" default:"10s"`

	// sqlite, postgres
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	// Required for postgres
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	// SQLite file when DATABASE_URL is unset
	DatabaseFile   string `envconfig:"DATABASE_FILE" default:"clinic.db"`

	CognitoRegion     string `envconfig:"COGNITO_REGION"`
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	// Optional: overrides the region/pool issuer
	CognitoIssuer     string `envconfig:"COGNITO_ISSUER"`
	// Optional: overrides {issuer}/.well-known/jwks.json
	CognitoJWKSURL    string `envconfig:"COGNITO_JWKS_URL"`

	DefaultClinicID      string   `envconfig:"DEFAULT_CLINIC_ID"`
	DefaultClinicName    string   `envconfig:"DEFAULT_CLINIC_NAME" default:"Default Clinic"`
	BootstrapDefaultRole string   `envconfig:"BOOTSTRAP_DEFAULT_ROLE" default:"ADMIN"`
	// Comma separated
	PlatformAdminEmails  []string `envconfig:"PLATFORM_ADMIN_EMAILS"`

	WebAppBaseURL        string        `envconfig:"WEB_APP_BASE_URL"`
	InviteDefaultTTLDays int           `envconfig:"INVITE_DEFAULT_TTL_DAYS" default:"7"`
	// 0 disables housekeeping
	InviteRetention      time.Duration `envconfig:"INVITE_RETENTION" default:"720h"`
	HousekeepingSchedule string        `envconfig:"HOUSEKEEPING_SCHEDULE" default:"@hourly"`

	// none, ses, smtp
	Notifier           string `envconfig:"NOTIFIER" default:"none"`
	SESFromEmail       string `envconfig:"SES_FROM_EMAIL"`
	AWSRegion          string `envconfig:"AWS_REGION"`
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	SMTPHost           string `envconfig:"SMTP_HOST"`
	SMTPPort           int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername       string `envconfig:"SMTP_USERNAME"`
	SMTPPassword       string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom           string `envconfig:"SMTP_FROM"`

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

// Issuer is the expected token issuer, or "" when the provider is not
// configured.
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

// DSN picks the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DatabaseFile
}
