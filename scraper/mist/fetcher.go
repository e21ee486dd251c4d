package mist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"mist-map-backup/utils"
)

const chunkSize = 32 * 1024

// FetchResult describes what Fetch did for one file
type FetchResult struct {
	Path    string
	Skipped bool  // file already existed, nothing was requested
	Bytes   int64 // bytes written
}

// Fetcher downloads map and AP images to disk, never overwriting an existing file
type Fetcher struct {
	httpClient *http.Client
	logger     *utils.Logger
}

// NewFetcher creates a Fetcher. Image URLs are pre-signed, so no token is sent.
func NewFetcher(timeout time.Duration, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch streams url into destDir/fileName. destDir is created when absent.
// An existing target is left untouched and reported as skipped.
func (f *Fetcher) Fetch(ctx context.Context, url, destDir, fileName string) (FetchResult, error) {
	target := filepath.Join(destDir, fileName)
	res := FetchResult{Path: target}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return res, fmt.Errorf("failed to create directory %s: %w", destDir, err)
	}

	if _, err := os.Stat(target); err == nil {
		f.logger.Info("%s already exists, download skipped.", target)
		res.Skipped = true
		return res, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("failed to stat %s: %w", target, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return res, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return res, fmt.Errorf("error downloading image from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	// Write beside the target and rename, so an interrupted transfer never
	// leaves a partial file that later runs would treat as complete.
	tmp, err := os.CreateTemp(destDir, "."+fileName+".*.part")
	if err != nil {
		return res, fmt.Errorf("failed to create temp file in %s: %w", destDir, err)
	}
	tmpName := tmp.Name()

	n, copyErr := io.CopyBuffer(tmp, resp.Body, make([]byte, chunkSize))
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return res, fmt.Errorf("error downloading image from %s: %w", url, copyErr)
		}
		return res, fmt.Errorf("failed to write %s: %w", tmpName, closeErr)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return res, fmt.Errorf("failed to move download into %s: %w", target, err)
	}

	res.Bytes = n
	f.logger.Info("Image downloaded successfully to %s (%s)", target, humanize.Bytes(uint64(n)))
	return res, nil
}
