package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mist-map-backup/utils"
)

// DefaultAPIURL is the global Mist cloud; other regions use their own host
const DefaultAPIURL = "https://api.mist.com/api/v1/"

var (
	// ErrMissingConfig is returned when a required input is still empty after loading and prompting
	ErrMissingConfig = errors.New("missing required configuration")
	// ErrInvalidConfig wraps flag, env file and binding errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all application-level configuration
type Config struct {
	// Controller API
	APIBaseURL string
	APIToken   string
	OrgID      string

	// Run target
	SiteName  string
	OutputDir string

	// Transfer
	MaxConcurrency int
	RateLimitDelay int // milliseconds between requests
	HTTPTimeout    time.Duration

	// Annotation
	LabelFontPath string

	// Optional inventory database; empty disables it
	DatabaseURL string

	// Logging
	LogLevel  string
	LogFormat string
}

// flag name -> config key
var flagKeys = map[string]string{
	"api-url":     "mist_api_url",
	"token":       "mist_api_token",
	"org":         "mist_org_id",
	"site":        "site_name",
	"output":      "output_dir",
	"concurrency": "max_concurrency",
	"font":        "label_font_path",
	"log-level":   "log_level",
}

// Load reads configuration with precedence flags > environment > env file > defaults.
// flags may be nil. envFile is optional; a missing file is not an error.
func Load(flags *pflag.FlagSet, envFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("mist_api_url", DefaultAPIURL)
	v.SetDefault("mist_api_token", "")
	v.SetDefault("mist_org_id", "")
	v.SetDefault("site_name", "")
	v.SetDefault("output_dir", ".")
	v.SetDefault("max_concurrency", 4)
	v.SetDefault("rate_limit_delay_ms", 0)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("label_font_path", "")
	v.SetDefault("database_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("%w: failed to bind flag --%s: %v", ErrInvalidConfig, name, err)
				}
			}
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("%w: failed to read env file %s: %v", ErrInvalidConfig, envFile, err)
			}
		}
	}

	cfg := &Config{
		APIBaseURL:     NormalizeBaseURL(v.GetString("mist_api_url")),
		APIToken:       strings.TrimSpace(v.GetString("mist_api_token")),
		OrgID:          strings.TrimSpace(v.GetString("mist_org_id")),
		SiteName:       strings.TrimSpace(v.GetString("site_name")),
		OutputDir:      v.GetString("output_dir"),
		MaxConcurrency: v.GetInt("max_concurrency"),
		RateLimitDelay: v.GetInt("rate_limit_delay_ms"),
		HTTPTimeout:    time.Duration(v.GetInt("http_timeout_sec")) * time.Second,
		LabelFontPath:  v.GetString("label_font_path"),
		DatabaseURL:    v.GetString("database_url"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return cfg, nil
}

// NormalizeBaseURL adds https:// when no scheme is given and guarantees a trailing slash
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		u = DefaultAPIURL
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// Missing lists the required inputs that are still empty
func (c *Config) Missing() []string {
	var missing []string
	if c.APIToken == "" {
		missing = append(missing, "MIST_API_TOKEN")
	}
	if c.OrgID == "" {
		missing = append(missing, "MIST_ORG_ID")
	}
	if c.SiteName == "" {
		missing = append(missing, "SITE_NAME")
	}
	return missing
}

// Validate returns ErrMissingConfig naming every empty required input
func (c *Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// SiteDir is the per-site output directory, <OutputDir>/<sanitised site name>
func (c *Config) SiteDir() string {
	return filepath.Join(c.OutputDir, utils.SafeFileName(c.SiteName))
}
