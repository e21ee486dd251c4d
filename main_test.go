package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mist-map-backup/config"
	"mist-map-backup/scraper/mist"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"missing config", fmt.Errorf("%w: SITE_NAME", config.ErrMissingConfig), exitConfig},
		{"bad flag", fmt.Errorf("%w: unknown flag", config.ErrInvalidConfig), exitConfig},
		{"rate limited", fmt.Errorf("site lookup failed: %w", mist.ErrRateLimited), exitRateLimited},
		{"site not found", fmt.Errorf("site lookup failed: %w", mist.ErrSiteNotFound), exitFailure},
		{"other", errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRootCmd_UnknownFlagIsConfigError(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--no-such-flag"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestRootCmd_RunsBackup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/orgs/org-1/sites/search":
			assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"total":1,"results":[{"id":"site-1","name":"Lab"}]}`))
		case "/api/v1/sites/site-1/maps":
			_, _ = w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	t.Setenv("DATABASE_URL", "")

	out := t.TempDir()
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--api-url", srv.URL + "/api/v1",
		"--token", "secret",
		"--org", "org-1",
		"--site", "Lab",
		"--output", out,
		"--env-file", filepath.Join(out, "absent.env"),
	})
	require.NoError(t, cmd.Execute())
}

func TestRootCmd_SiteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":0,"results":[]}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("DATABASE_URL", "")

	out := t.TempDir()
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--api-url", srv.URL + "/api/v1",
		"--token", "secret",
		"--org", "org-1",
		"--site", "Nowhere",
		"--output", out,
		"--env-file", filepath.Join(out, "absent.env"),
	})
	err := cmd.Execute()
	require.ErrorIs(t, err, mist.ErrSiteNotFound)
	assert.Equal(t, exitFailure, exitCode(err))
}
