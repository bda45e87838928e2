package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"newswatch" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"newswatch" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"newswatch" description:"Database name"`

	// Scrape source configuration
	SourceURL      string `long:"source-url" env:"SOURCE_URL" default:"https://geca.ac.in/" description:"News listing page to scrape"`
	SourceSelector string `long:"source-selector" env:"SOURCE_SELECTOR" default:"ul.scrollNews li a" description:"CSS selector locating news links on the source page"`
	SourceConfig   string `long:"source-config" env:"SOURCE_CONFIG" description:"Optional YAML file overriding source URL, selector and poll interval"`
	PollInterval   int    `long:"poll-interval" env:"POLL_INTERVAL" default:"60" description:"Source poll interval in seconds"`
	FetchTimeout   int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20" description:"Source fetch timeout in seconds"`
	FallbackProxy  string `long:"fallback-proxy" env:"FALLBACK_PROXY" description:"Proxy URL for the fallback fetch path (optional)"`

	// Application configuration
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl         string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for task processing"`
	APIAccessKey    string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	IncludeExcerpts bool   `long:"include-excerpts" env:"INCLUDE_EXCERPTS" description:"Include article excerpts in notification emails"`

	// Token configuration
	TokenSecret         string `long:"token-secret" env:"TOKEN_SECRET" required:"true" description:"HMAC secret for signed verification/unsubscribe tokens (required)"`
	VerifyTokenTTL      int    `long:"verify-token-ttl" env:"VERIFY_TOKEN_TTL" default:"900" description:"Verification token lifetime in seconds"`
	UnsubscribeTokenTTL int    `long:"unsubscribe-token-ttl" env:"UNSUBSCRIBE_TOKEN_TTL" default:"1814400" description:"Unsubscribe token lifetime in seconds"`

	// Mail configuration
	SMTPHost     string `long:"smtp-host" env:"SMTP_HOST" default:"localhost" description:"SMTP server host"`
	SMTPPort     int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser     string `long:"smtp-user" env:"SMTP_USER" description:"SMTP user"`
	SMTPPassword string `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
	MailFrom     string `long:"mail-from" env:"MAIL_FROM" default:"news@localhost" description:"From address for outgoing mail"`

	// Bot mitigation configuration
	CaptchaSecret    string `long:"captcha-secret" env:"CAPTCHA_SECRET" description:"Captcha shared secret (empty disables the check)"`
	CaptchaVerifyURL string `long:"captcha-verify-url" env:"CAPTCHA_VERIFY_URL" default:"https://www.google.com/recaptcha/api/siteverify" description:"Captcha verification endpoint"`

	// Trusted sign-in provider configuration
	OAuthClientID     string `long:"oauth-client-id" env:"OAUTH_CLIENT_ID" description:"OAuth client ID (empty disables sign-in activation)"`
	OAuthClientSecret string `long:"oauth-client-secret" env:"OAUTH_CLIENT_SECRET" description:"OAuth client secret"`
	OAuthRedirectURL  string `long:"oauth-redirect-url" env:"OAUTH_REDIRECT_URL" description:"OAuth redirect URL"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"NewsWatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Kolkata)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		SourceURL:           raw.SourceURL,
		SourceSelector:      raw.SourceSelector,
		SourceConfig:        raw.SourceConfig,
		PollInterval:        raw.PollInterval,
		FetchTimeout:        raw.FetchTimeout,
		FallbackProxy:       raw.FallbackProxy,
		Port:                raw.Port,
		BaseUrl:             raw.BaseUrl,
		WorkerCount:         raw.WorkerCount,
		APIAccessKey:        raw.APIAccessKey,
		IncludeExcerpts:     raw.IncludeExcerpts,
		TokenSecret:         raw.TokenSecret,
		VerifyTokenTTL:      raw.VerifyTokenTTL,
		UnsubscribeTokenTTL: raw.UnsubscribeTokenTTL,
		SMTPHost:            raw.SMTPHost,
		SMTPPort:            raw.SMTPPort,
		SMTPUser:            raw.SMTPUser,
		SMTPPassword:        raw.SMTPPassword,
		MailFrom:            raw.MailFrom,
		CaptchaSecret:       raw.CaptchaSecret,
		CaptchaVerifyURL:    raw.CaptchaVerifyURL,
		OAuthClientID:       raw.OAuthClientID,
		OAuthClientSecret:   raw.OAuthClientSecret,
		OAuthRedirectURL:    raw.OAuthRedirectURL,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set installs a configuration directly, bypassing flag parsing. Used by tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
