// Package config defines client options and loads them from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultURL is the QR login page the client drives.
	DefaultURL = "https://shopee.co.id/buyer/login/qr"

	// DefaultReferer is sent with the initial navigation.
	DefaultReferer = "https://shopee.co.id/"

	// DefaultUserAgent is applied to the browser unless overridden.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_14_0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/101.0.4951.67 Safari/537.36"

	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// Auth strategy names understood by the CLI.
const (
	StrategyNone   = "none"
	StrategyLocal  = "local"
	StrategyRemote = "remote"
)

// Options configures a client.
type Options struct {
	// URL is the login page to navigate to
	URL string `yaml:"url" json:"url"`

	// Referer is sent with the initial navigation
	Referer string `yaml:"referer" json:"referer"`

	// AuthTimeout bounds the initial authenticated-vs-challenge race (0 = unlimited)
	AuthTimeout time.Duration `yaml:"auth_timeout" json:"auth_timeout"`

	// QRMaxRetries is the number of QR rotations tolerated (0 = unlimited)
	QRMaxRetries int `yaml:"qr_max_retries" json:"qr_max_retries"`

	// TakeoverOnConflict reclaims the session when another browser opens it
	TakeoverOnConflict bool          `yaml:"takeover_on_conflict" json:"takeover_on_conflict"`
	TakeoverTimeout    time.Duration `yaml:"takeover_timeout" json:"takeover_timeout"`

	// UserAgent is applied to the browser and the page
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// BypassCSP disables the page's content security policy
	BypassCSP bool `yaml:"bypass_csp" json:"bypass_csp"`

	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Auth    AuthConfig    `yaml:"auth" json:"auth"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig configures browser acquisition.
type BrowserConfig struct {
	Headless       bool     `yaml:"headless" json:"headless"`
	ViewportWidth  int      `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int      `yaml:"viewport_height" json:"viewport_height"`
	Args           []string `yaml:"args" json:"args"`
	ExecutablePath string   `yaml:"executable_path" json:"executable_path"`

	// PageTimeout is the default timeout for page operations (0 = none)
	PageTimeout time.Duration `yaml:"page_timeout" json:"page_timeout"`

	// WSEndpoint connects to an already running browser instead of launching one
	WSEndpoint string `yaml:"ws_endpoint" json:"ws_endpoint"`

	// UserDataDir launches a persistent profile. Managed by LocalAuth when that strategy is used.
	UserDataDir string `yaml:"user_data_dir" json:"user_data_dir"`
}

// AuthConfig selects and configures the auth strategy built by the CLI.
type AuthConfig struct {
	Strategy            string        `yaml:"strategy" json:"strategy"`
	ClientID            string        `yaml:"client_id" json:"client_id"`
	DataPath            string        `yaml:"data_path" json:"data_path"`
	RedisURL            string        `yaml:"redis_url" json:"redis_url"`
	BackupInterval      time.Duration `yaml:"backup_interval" json:"backup_interval"`
	RequireValidSession bool          `yaml:"require_valid_session" json:"require_valid_session"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" json:"level"`
}

// Default returns the options used when nothing is configured.
func Default() Options {
	return Options{
		URL:       DefaultURL,
		Referer:   DefaultReferer,
		UserAgent: DefaultUserAgent,
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  DefaultViewportWidth,
			ViewportHeight: DefaultViewportHeight,
		},
		Auth: AuthConfig{
			Strategy: StrategyNone,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads options from a YAML file on top of Default().
func Load(path string) (Options, error) {
	opts := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid config: %w", err)
	}

	return opts, nil
}

// Validate validates the options
func (o *Options) Validate() error {
	if o.URL == "" {
		return fmt.Errorf("url is required")
	}
	if o.AuthTimeout < 0 {
		return fmt.Errorf("auth_timeout must be non-negative")
	}
	if o.QRMaxRetries < 0 {
		return fmt.Errorf("qr_max_retries must be non-negative")
	}
	if o.TakeoverTimeout < 0 {
		return fmt.Errorf("takeover_timeout must be non-negative")
	}
	if o.Browser.PageTimeout < 0 {
		return fmt.Errorf("browser.page_timeout must be non-negative")
	}
	if o.Browser.ViewportWidth < 0 || o.Browser.ViewportHeight < 0 {
		return fmt.Errorf("viewport dimensions must be non-negative")
	}

	switch o.Auth.Strategy {
	case "", StrategyNone, StrategyLocal:
	case StrategyRemote:
		if o.Auth.RedisURL == "" {
			return fmt.Errorf("auth.redis_url is required for the remote strategy")
		}
	default:
		return fmt.Errorf("invalid auth strategy: %s (must be 'none', 'local' or 'remote')", o.Auth.Strategy)
	}

	return nil
}
