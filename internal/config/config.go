// Package config assembles server settings from defaults, an optional TOML file,
// STOCKFOLIO_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/and161185/stockfolio/internal/service"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STOCKFOLIO_"

// Config holds runtime settings for the stockfolio server.
type Config struct {
	HTTPAddr string `toml:"http_addr"`
	GRPCAddr string `toml:"grpc_addr"`
	// DSN selects the store: postgres://... or sqlite:path.
	DSN string `toml:"dsn"`
	Dev bool   `toml:"dev"`

	Token   TokenConfig   `toml:"token"`
	TLS     TLSConfig     `toml:"tls"`
	Quote   QuoteConfig   `toml:"quote"`
	Mail    MailConfig    `toml:"mail"`
	Limiter LimiterConfig `toml:"limiter"`
}

// TokenConfig configures the bearer token codec.
type TokenConfig struct {
	Key        string        `toml:"key"`
	AccessTTL  time.Duration `toml:"access_ttl"`
	RefreshTTL time.Duration `toml:"refresh_ttl"`
	Leeway     time.Duration `toml:"leeway"`
}

// TLSConfig enables TLS on both listeners when CertFile and KeyFile are set.
type TLSConfig struct {
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

// Enabled reports whether TLS material is configured.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// QuoteConfig configures the market quote gateway. An empty BaseURL disables quotes.
type QuoteConfig struct {
	BaseURL   string        `toml:"base_url"`
	AppKey    string        `toml:"app_key"`
	AppSecret string        `toml:"app_secret"`
	Timeout   time.Duration `toml:"timeout"`
	RPS       float64       `toml:"rps"`
}

// MailConfig configures verification mail. An empty SMTPAddr logs links instead of sending.
type MailConfig struct {
	SMTPAddr     string `toml:"smtp_addr"`
	SMTPUser     string `toml:"smtp_user"`
	SMTPPassword string `toml:"smtp_password"`
	From         string `toml:"from"`
	VerifyURL    string `toml:"verify_url"`
	// NotifyPolicy is one of propagate, rollback, ignore.
	NotifyPolicy string `toml:"notify_policy"`
}

// LimiterConfig configures login rate limiting.
type LimiterConfig struct {
	Window   time.Duration `toml:"window"`
	MaxFails int           `toml:"max_fails"`
	BlockFor time.Duration `toml:"block_for"`
}

// Default returns development defaults.
func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":8443",
		DSN:      "sqlite:stockfolio.db",
		Token: TokenConfig{
			AccessTTL:  service.DefaultAccessTTL,
			RefreshTTL: service.DefaultRefreshTTL,
			Leeway:     30 * time.Second,
		},
		Quote: QuoteConfig{
			Timeout: 3 * time.Second,
			RPS:     15,
		},
		Mail: MailConfig{
			From:         "no-reply@stockfolio.local",
			VerifyURL:    "http://localhost:8080/api/users/verify",
			NotifyPolicy: string(service.NotifyPropagate),
		},
		Limiter: LimiterConfig{
			Window:   15 * time.Minute,
			MaxFails: 5,
			BlockFor: 15 * time.Minute,
		},
	}
}

// Load builds a Config from defaults, the TOML file named by -config (if any),
// the environment and finally args. getenv is usually os.Getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path := configPath(args, getenv); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	fs := cfg.flagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromOS is Load over os.Args and os.Getenv.
func LoadFromOS() (*Config, error) { return Load(os.Args[1:], os.Getenv) }

// configPath finds -config/--config in args, falling back to STOCKFOLIO_CONFIG.
func configPath(args []string, getenv func(string) string) string {
	for i, a := range args {
		name, val, hasVal := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasVal {
			return val
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return getenv(EnvPrefix + "CONFIG")
}

func (c *Config) flagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("stockfolio", flag.ContinueOnError)
	fs.String("config", "", "TOML config file")
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "REST listen address")
	fs.StringVar(&c.GRPCAddr, "grpc-addr", c.GRPCAddr, "gRPC listen address")
	fs.StringVar(&c.DSN, "dsn", c.DSN, "store DSN (postgres://... or sqlite:path)")
	fs.BoolVar(&c.Dev, "dev", c.Dev, "development mode (reflection, console logs)")

	fs.StringVar(&c.Token.Key, "jwt-key", c.Token.Key, "HS256 signing key (required)")
	fs.DurationVar(&c.Token.AccessTTL, "access-ttl", c.Token.AccessTTL, "access token TTL")
	fs.DurationVar(&c.Token.RefreshTTL, "refresh-ttl", c.Token.RefreshTTL, "refresh token TTL")
	fs.DurationVar(&c.Token.Leeway, "token-leeway", c.Token.Leeway, "allowed clock skew")

	fs.StringVar(&c.TLS.CertFile, "tls-cert", c.TLS.CertFile, "TLS certificate (PEM)")
	fs.StringVar(&c.TLS.KeyFile, "tls-key", c.TLS.KeyFile, "TLS private key (PEM)")

	fs.StringVar(&c.Quote.BaseURL, "quote-url", c.Quote.BaseURL, "quote API base URL (empty disables quotes)")
	fs.StringVar(&c.Quote.AppKey, "quote-app-key", c.Quote.AppKey, "quote API app key")
	fs.StringVar(&c.Quote.AppSecret, "quote-app-secret", c.Quote.AppSecret, "quote API app secret")
	fs.DurationVar(&c.Quote.Timeout, "quote-timeout", c.Quote.Timeout, "quote request timeout")
	fs.Float64Var(&c.Quote.RPS, "quote-rps", c.Quote.RPS, "quote requests per second")

	fs.StringVar(&c.Mail.SMTPAddr, "smtp-addr", c.Mail.SMTPAddr, "SMTP server host:port (empty logs links)")
	fs.StringVar(&c.Mail.SMTPUser, "smtp-user", c.Mail.SMTPUser, "SMTP username")
	fs.StringVar(&c.Mail.SMTPPassword, "smtp-password", c.Mail.SMTPPassword, "SMTP password")
	fs.StringVar(&c.Mail.From, "mail-from", c.Mail.From, "verification mail sender")
	fs.StringVar(&c.Mail.VerifyURL, "verify-url", c.Mail.VerifyURL, "public verification endpoint")
	fs.StringVar(&c.Mail.NotifyPolicy, "notify-policy", c.Mail.NotifyPolicy, "on mail failure: propagate, rollback or ignore")

	fs.DurationVar(&c.Limiter.Window, "login-window", c.Limiter.Window, "failed login counting window")
	fs.IntVar(&c.Limiter.MaxFails, "login-max-fails", c.Limiter.MaxFails, "failed logins before lockout")
	fs.DurationVar(&c.Limiter.BlockFor, "login-block", c.Limiter.BlockFor, "lockout duration")
	return fs
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"HTTP_ADDR":        &c.HTTPAddr,
		"GRPC_ADDR":        &c.GRPCAddr,
		"DSN":              &c.DSN,
		"JWT_KEY":          &c.Token.Key,
		"TLS_CERT":         &c.TLS.CertFile,
		"TLS_KEY":          &c.TLS.KeyFile,
		"QUOTE_URL":        &c.Quote.BaseURL,
		"QUOTE_APP_KEY":    &c.Quote.AppKey,
		"QUOTE_APP_SECRET": &c.Quote.AppSecret,
		"SMTP_ADDR":        &c.Mail.SMTPAddr,
		"SMTP_USER":        &c.Mail.SMTPUser,
		"SMTP_PASSWORD":    &c.Mail.SMTPPassword,
		"MAIL_FROM":        &c.Mail.From,
		"VERIFY_URL":       &c.Mail.VerifyURL,
		"NOTIFY_POLICY":    &c.Mail.NotifyPolicy,
	}
	for k, p := range str {
		if v := getenv(EnvPrefix + k); v != "" {
			*p = v
		}
	}

	dur := map[string]*time.Duration{
		"ACCESS_TTL":    &c.Token.AccessTTL,
		"REFRESH_TTL":   &c.Token.RefreshTTL,
		"TOKEN_LEEWAY":  &c.Token.Leeway,
		"QUOTE_TIMEOUT": &c.Quote.Timeout,
		"LOGIN_WINDOW":  &c.Limiter.Window,
		"LOGIN_BLOCK":   &c.Limiter.BlockFor,
	}
	for k, p := range dur {
		v := getenv(EnvPrefix + k)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, k, err)
		}
		*p = d
	}

	if v := getenv(EnvPrefix + "DEV"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEV: %w", EnvPrefix, err)
		}
		c.Dev = b
	}
	if v := getenv(EnvPrefix + "QUOTE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sQUOTE_RPS: %w", EnvPrefix, err)
		}
		c.Quote.RPS = f
	}
	if v := getenv(EnvPrefix + "LOGIN_MAX_FAILS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sLOGIN_MAX_FAILS: %w", EnvPrefix, err)
		}
		c.Limiter.MaxFails = n
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []error
	if c.Token.Key == "" {
		problems = append(problems, errors.New("missing jwt signing key (-jwt-key or STOCKFOLIO_JWT_KEY)"))
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		problems = append(problems, errors.New("token TTLs must be positive"))
	}
	if c.Token.Leeway < 0 {
		problems = append(problems, errors.New("token leeway must not be negative"))
	}
	if _, err := service.ParseNotifyFailurePolicy(c.Mail.NotifyPolicy); err != nil {
		problems = append(problems, err)
	}
	if _, _, err := c.Store(); err != nil {
		problems = append(problems, err)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		problems = append(problems, errors.New("tls cert and key must be set together"))
	}
	if c.Limiter.MaxFails <= 0 || c.Limiter.Window <= 0 || c.Limiter.BlockFor <= 0 {
		problems = append(problems, errors.New("login limiter settings must be positive"))
	}
	return errors.Join(problems...)
}

// Store kinds returned by Config.Store.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Store splits DSN into a store kind and its driver target.
func (c *Config) Store() (kind, target string, err error) {
	switch {
	case strings.HasPrefix(c.DSN, "postgres://"), strings.HasPrefix(c.DSN, "postgresql://"):
		return StorePostgres, c.DSN, nil
	case strings.HasPrefix(c.DSN, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(c.DSN, "sqlite:"), "//")
		if path == "" {
			return "", "", errors.New("sqlite dsn needs a file path")
		}
		return StoreSQLite, path, nil
	default:
		return "", "", fmt.Errorf("unsupported dsn %q (want postgres://... or sqlite:path)", c.DSN)
	}
}
