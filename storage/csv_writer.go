package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"mist-map-backup/models"
	"mist-map-backup/utils"
)

// Placeholders written for values the controller did not report
const (
	NotConfigured = "Not configured"
	Unknown       = "Unknown"
)

// InventoryHeader is the fixed CSV column order
var InventoryHeader = []string{
	"AP Name", "Model", "Map ID", "Height", "Mount", "Orientation", "X Coord", "Y Coord",
}

// CSVWriter writes one inventory file per site and day
type CSVWriter struct {
	dir      string
	logger   *utils.Logger
	lastPath string
}

// NewCSVWriter creates a CSVWriter that places files in dir
func NewCSVWriter(dir string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, logger: logger}
}

// InventoryFileName is "<site>-APs-<YYYYMMDD>.csv"
func InventoryFileName(siteName, dateStamp string) string {
	return fmt.Sprintf("%s-APs-%s.csv", siteName, dateStamp)
}

// SaveInventory writes the snapshot, replacing any file from earlier the same day
func (w *CSVWriter) SaveInventory(snapshot *models.InventorySnapshot) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.dir, InventoryFileName(utils.SafeFileName(snapshot.SiteName), snapshot.DateStamp()))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(InventoryHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	written := 0
	for _, ap := range snapshot.APs {
		if err := writer.Write(InventoryRow(ap)); err != nil {
			w.logger.Error("Failed to write CSV row for '%s': %v", ap.Name, err)
			continue
		}
		written++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}

	w.lastPath = path
	w.logger.Info("AP inventory written to: %s (%d rows)", path, written)
	return nil
}

// Path returns the file written by the last successful SaveInventory
func (w *CSVWriter) Path() string {
	return w.lastPath
}

// Close is a no-op; every SaveInventory closes its file
func (w *CSVWriter) Close() error {
	return nil
}

// InventoryRow renders one AP in InventoryHeader order
func InventoryRow(ap *models.AccessPoint) []string {
	return []string{
		ap.Name,
		ap.Model,
		ap.MapID,
		formatFloat(ap.Height, NotConfigured),
		formatString(ap.Mount, Unknown),
		formatFloat(ap.Orientation, NotConfigured),
		formatFloat(ap.X, Unknown),
		formatFloat(ap.Y, Unknown),
	}
}

func formatFloat(v *float64, placeholder string) string {
	if v == nil {
		return placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatString(v *string, placeholder string) string {
	if v == nil || *v == "" {
		return placeholder
	}
	return *v
}
