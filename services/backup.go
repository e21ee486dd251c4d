package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mist-map-backup/config"
	"mist-map-backup/models"
	"mist-map-backup/scraper/mist"
	"mist-map-backup/storage"
	"mist-map-backup/utils"
)

const (
	mapsDirName     = "maps"
	apImagesDirName = "ap_pictures"
	mapImageExt     = ".jpeg"
)

// SiteAPI is the part of the controller API a backup needs
type SiteAPI interface {
	ResolveSiteID(ctx context.Context, siteName string) (models.Site, error)
	ListMaps(ctx context.Context, siteID string) ([]models.Map, error)
	ListAccessPoints(ctx context.Context, siteID string) ([]*models.AccessPoint, []string, error)
}

// ImageFetcher downloads one image to disk
type ImageFetcher interface {
	Fetch(ctx context.Context, url, destDir, fileName string) (mist.FetchResult, error)
}

// BackupService runs one site backup: maps, AP photos, inventory and annotated maps
type BackupService struct {
	cfg       *config.Config
	api       SiteAPI
	fetcher   ImageFetcher
	annotator *Annotator
	cleaner   *DeviceCleaner
	insights  *InsightService
	stores    []storage.InventoryStore
	logger    *utils.Logger
	workers   int
	now       func() time.Time
}

// NewBackupService wires a backup run. stores may be empty.
func NewBackupService(
	cfg *config.Config,
	api SiteAPI,
	fetcher ImageFetcher,
	annotator *Annotator,
	stores []storage.InventoryStore,
	logger *utils.Logger,
) *BackupService {
	return &BackupService{
		cfg:       cfg,
		api:       api,
		fetcher:   fetcher,
		annotator: annotator,
		cleaner:   NewDeviceCleaner(logger),
		insights:  NewInsightService(logger),
		stores:    stores,
		logger:    logger,
		workers:   max(cfg.MaxConcurrency, 1),
		now:       time.Now,
	}
}

// Run performs the backup. Only a failed site lookup or an unusable output
// directory is returned as an error. Later failures are logged and counted in
// the report while the run continues with what it has.
func (s *BackupService) Run(ctx context.Context) (*models.BackupReport, error) {
	report := &models.BackupReport{
		RunID:     uuid.NewString(),
		SiteName:  s.cfg.SiteName,
		StartedAt: s.now(),
	}
	defer func() { report.FinishedAt = s.now() }()

	// ================== Site ====================
	site, err := s.api.ResolveSiteID(ctx, s.cfg.SiteName)
	if err != nil {
		if errors.Is(err, mist.ErrRateLimited) {
			report.RateLimited = true
			s.logger.Error("You've exceeded the API rate limit for your token. Try again in the next hour.")
		}
		return report, fmt.Errorf("site lookup failed: %w", err)
	}
	report.SiteID = site.ID

	// ================== Maps ====================
	maps, err := s.api.ListMaps(ctx, site.ID)
	if err != nil {
		s.noteAPIError(report, "map list", err)
		return report, nil
	}
	report.MapsFound = len(maps)
	if len(maps) == 0 {
		s.logger.Warn("There are no maps uploaded for this site.")
		return report, nil
	}

	siteDir := s.cfg.SiteDir()
	if err := os.MkdirAll(siteDir, 0o755); err != nil {
		return report, fmt.Errorf("failed to create site directory %s: %w", siteDir, err)
	}
	report.SiteDir = siteDir

	imagePaths := s.downloadMaps(ctx, report, filepath.Join(siteDir, mapsDirName), maps)

	// ================== Access points ====================
	placed, unplaced, err := s.api.ListAccessPoints(ctx, site.ID)
	if err != nil {
		s.noteAPIError(report, "device list", err)
		return report, nil
	}
	report.UnplacedAPs = unplaced

	aps := s.cleaner.Dedupe(placed)
	if len(aps) == 0 {
		s.logger.Warn("No APs are placed on a map for this site.")
		s.insights.Generate(report, maps, aps)
		return report, nil
	}

	s.downloadAPImages(ctx, report, filepath.Join(siteDir, apImagesDirName), aps)

	// ================== Inventory ====================
	snapshot := &models.InventorySnapshot{
		RunID:    report.RunID,
		SiteID:   site.ID,
		SiteName: site.Name,
		TakenAt:  report.StartedAt,
		APs:      aps,
	}
	for _, store := range s.stores {
		if err := store.SaveInventory(snapshot); err != nil {
			s.logger.Error("Failed to save AP inventory: %v", err)
			continue
		}
		if p, ok := store.(storage.PathReporter); ok && report.InventoryPath == "" {
			report.InventoryPath = p.Path()
		}
	}

	// ================== Annotation ====================
	sets, unmatched := s.cleaner.GroupByMap(maps, imagePaths, aps)
	report.UnmatchedAPs = unmatched
	for _, set := range sets {
		if set.ImagePath == "" {
			s.logger.Warn("No image for map '%s', skipping annotation", set.Map.Name)
			continue
		}
		annotation, err := s.annotator.Annotate(set.Map.Name, set.ImagePath, set.APs)
		if err != nil {
			s.logger.Error("An unexpected error occurred: %v", err)
			continue
		}
		report.Annotations = append(report.Annotations, annotation)
	}

	s.insights.Generate(report, maps, aps)
	return report, nil
}

// downloadMaps fetches every map image and returns map ID -> local path for
// the ones now on disk.
func (s *BackupService) downloadMaps(ctx context.Context, report *models.BackupReport, dir string, maps []models.Map) map[string]string {
	tracker := utils.NewPathTracker()
	paths := make(map[string]string, len(maps))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.workers)

	for _, m := range maps {
		if m.URL == "" {
			s.logger.Warn("Map '%s' has no image URL", m.Name)
			continue
		}
		fileName := claimName(tracker, utils.SafeFileName(m.Name), m.ID, shortID(m.ID), mapImageExt)

		g.Go(func() error {
			res, err := s.fetcher.Fetch(ctx, m.URL, dir, fileName)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("Failed to download map '%s': %v", m.Name, err)
				report.FailedDownloads++
				return nil
			}
			paths[m.ID] = res.Path
			if res.Skipped {
				report.MapsSkipped++
			} else {
				report.MapsDownloaded++
				report.BytesDownloaded += res.Bytes
			}
			return nil
		})
	}
	_ = g.Wait()

	return paths
}

// downloadAPImages fetches up to three photos per AP as <ap>-img<N>.jpeg
func (s *BackupService) downloadAPImages(ctx context.Context, report *models.BackupReport, dir string, aps []*models.AccessPoint) {
	tracker := utils.NewPathTracker()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.workers)

	for _, ap := range aps {
		if len(ap.ImageURLs) == 0 {
			continue
		}
		// names are unique after Dedupe; the MAC tells sanitised twins apart
		base := claimName(tracker, utils.SafeFileName(ap.Name), ap.Name, ap.MAC, "")

		for i, imageURL := range ap.ImageURLs {
			fileName := fmt.Sprintf("%s-img%d%s", base, i+1, mapImageExt)

			g.Go(func() error {
				res, err := s.fetcher.Fetch(ctx, imageURL, dir, fileName)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.logger.Error("Failed to download image %d for %s: %v", i+1, ap.Name, err)
					report.FailedDownloads++
					return nil
				}
				if res.Skipped {
					report.APImagesSkipped++
				} else {
					report.APImagesDownloaded++
					report.BytesDownloaded += res.Bytes
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}

// claimName returns the first free name for owner among base+ext,
// base-<tag>+ext and base-<tag>-<n>+ext.
func claimName(tracker *utils.PathTracker, base, owner, tag, ext string) string {
	name := base + ext
	if tracker.Claim(name, owner) {
		return name
	}

	stem := base
	if tag != "" {
		stem = base + "-" + tag
		name = stem + ext
		if tracker.Claim(name, owner) {
			return name
		}
	}
	for n := 2; ; n++ {
		name = fmt.Sprintf("%s-%d%s", stem, n, ext)
		if tracker.Claim(name, owner) {
			return name
		}
	}
}

// shortID is the first 8 characters of a controller UUID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (s *BackupService) noteAPIError(report *models.BackupReport, what string, err error) {
	if errors.Is(err, mist.ErrRateLimited) {
		report.RateLimited = true
		s.logger.Error("You've exceeded the API rate limit for your token. Try again in the next hour.")
		return
	}
	s.logger.Error("Failed to fetch %s: %v", what, err)
}
