package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mist-map-backup/config"
	"mist-map-backup/scraper/mist"
	"mist-map-backup/services"
	"mist-map-backup/storage"
	"mist-map-backup/utils"
)

// Process exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 2
	exitRateLimited = 3
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "mist-map-backup",
		Short:         "Back up a Mist site's floor maps, AP photos and AP placements",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBackup(ctx, cmd, envFile)
		},
	}

	f := cmd.Flags()
	f.String("site", "", "site name to back up (SITE_NAME)")
	f.String("org", "", "organization ID (MIST_ORG_ID)")
	f.String("token", "", "API token (MIST_API_TOKEN)")
	f.String("api-url", "", "API base URL (MIST_API_URL)")
	f.StringP("output", "o", "", "output directory (OUTPUT_DIR)")
	f.Int("concurrency", 0, "parallel image downloads (MAX_CONCURRENCY)")
	f.String("font", "", "TrueType font for map labels (LABEL_FONT_PATH)")
	f.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	f.StringVar(&envFile, "env-file", ".env", "optional env file")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	})
	return cmd
}

func runBackup(ctx context.Context, cmd *cobra.Command, envFile string) error {
	// ================== Bootstrap ====================
	cfg, err := config.Load(cmd.Flags(), envFile)
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if len(cfg.Missing()) > 0 {
		if err := config.NewPrompter().FillMissing(cfg); err != nil {
			return err
		}
	}

	logger = logger.With("site", cfg.SiteName)
	limiter := utils.NewRateLimiter(cfg.RateLimitDelay)

	logger.Info("Mist map backup for site '%s'", cfg.SiteName)
	logger.Info("API: %s | Concurrency: %d | Rate delay: %s",
		cfg.APIBaseURL, cfg.MaxConcurrency, limiter.Delay())

	// ================== Inventory stores ====================
	stores := []storage.InventoryStore{storage.NewCSVWriter(cfg.SiteDir(), logger)}

	if cfg.DatabaseURL != "" {
		pgWriter, err := storage.NewPostgresWriter(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("Cannot connect to PostgreSQL: %v", err)
			return err
		}
		if err := pgWriter.CreateTable(); err != nil {
			_ = pgWriter.Close()
			logger.Error("Failed to create DB table: %v", err)
			return err
		}
		stores = append(stores, pgWriter)
	}
	defer func() {
		for _, s := range stores {
			if err := s.Close(); err != nil {
				logger.Warn("Failed to close inventory store: %v", err)
			}
		}
	}()

	// ================== Backup ====================
	client := mist.NewClient(cfg, limiter, logger)
	fetcher := mist.NewFetcher(cfg.HTTPTimeout, logger)
	annotator := services.NewAnnotator(cfg.LabelFontPath, logger)

	svc := services.NewBackupService(cfg, client, fetcher, annotator, stores, logger)
	report, err := svc.Run(ctx)
	if report != nil {
		services.PrintBackupReport(report)
	}
	if err != nil {
		logger.Error("Backup failed: %v", err)
		return err
	}

	if report.SiteDir != "" {
		logger.Info("Done! Backup written to %s", report.SiteDir)
	}
	return nil
}

// exitCode maps a run error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrMissingConfig), errors.Is(err, config.ErrInvalidConfig):
		return exitConfig
	case errors.Is(err, mist.ErrRateLimited):
		return exitRateLimited
	default:
		return exitFailure
	}
}
