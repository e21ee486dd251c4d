package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MIST_API_URL", "MIST_API_TOKEN", "MIST_ORG_ID", "SITE_NAME", "OUTPUT_DIR",
		"MAX_CONCURRENCY", "RATE_LIMIT_DELAY_MS", "HTTP_TIMEOUT_SEC", "LABEL_FONT_PATH",
		"DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("api-url", "", "")
	fs.String("token", "", "")
	fs.String("org", "", "")
	fs.String("site", "", "")
	fs.String("output", "", "")
	fs.Int("concurrency", 0, "")
	fs.String("font", "", "")
	fs.String("log-level", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIBaseURL)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
	assert.ElementsMatch(t, []string{"MIST_API_TOKEN", "MIST_ORG_ID", "SITE_NAME"}, cfg.Missing())
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(strings.Join([]string{
		"MIST_API_TOKEN=from-file",
		"MIST_ORG_ID=org-from-file",
		"SITE_NAME=File Site",
		"MAX_CONCURRENCY=2",
	}, "\n")+"\n"), 0o600))

	t.Setenv("MIST_ORG_ID", "org-from-env")
	t.Setenv("SITE_NAME", "Env Site")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--site", "Flag Site"}))

	cfg, err := Load(fs, envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.APIToken, "env file fills what nothing else sets")
	assert.Equal(t, "org-from-env", cfg.OrgID, "environment beats env file")
	assert.Equal(t, "Flag Site", cfg.SiteName, "flag beats environment")
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil, filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIBaseURL)
}

func TestLoad_UnreadableEnvFileIsConfigError(t *testing.T) {
	clearEnv(t)

	_, err := Load(nil, t.TempDir())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSiteDir(t *testing.T) {
	t.Parallel()

	cfg := &Config{OutputDir: "backups", SiteName: "Campus/North"}
	assert.Equal(t, filepath.Join("backups", "Campus_North"), cfg.SiteDir())
}

func TestLoad_ClampsConcurrency(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_CONCURRENCY", "-3")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxConcurrency)
}

func TestNormalizeBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", DefaultAPIURL},
		{"api.eu.mist.com/api/v1", "https://api.eu.mist.com/api/v1/"},
		{"https://api.gc1.mist.com/api/v1/", "https://api.gc1.mist.com/api/v1/"},
		{"http://127.0.0.1:8080/api/v1", "http://127.0.0.1:8080/api/v1/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBaseURL(tt.in))
		})
	}
}

func TestValidate_WrapsErrMissingConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{APIToken: "t"}
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrMissingConfig)
	assert.Contains(t, err.Error(), "MIST_ORG_ID")
	assert.Contains(t, err.Error(), "SITE_NAME")
}

func TestPrompter_FillMissing(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrompterFrom(strings.NewReader("secret-token\n  org-1 \nHQ Building\n"), &out)

	cfg := &Config{}
	require.NoError(t, p.FillMissing(cfg))

	assert.Equal(t, "secret-token", cfg.APIToken)
	assert.Equal(t, "org-1", cfg.OrgID)
	assert.Equal(t, "HQ Building", cfg.SiteName)
	assert.Contains(t, out.String(), "Please enter your API token: ")
	assert.Contains(t, out.String(), "What site would you like to backup maps for?: ")
}

func TestPrompter_OnlyAsksForMissing(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewPrompterFrom(strings.NewReader("Warehouse\n"), &out)

	cfg := &Config{APIToken: "t", OrgID: "o"}
	require.NoError(t, p.FillMissing(cfg))

	assert.Equal(t, "Warehouse", cfg.SiteName)
	assert.NotContains(t, out.String(), "API token")
}

func TestPrompter_EOFLeavesConfigInvalid(t *testing.T) {
	t.Parallel()

	p := NewPrompterFrom(strings.NewReader(""), &bytes.Buffer{})
	err := p.FillMissing(&Config{})
	assert.ErrorIs(t, err, ErrMissingConfig)
}
