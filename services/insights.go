package services

import (
	"mist-map-backup/models"
	"mist-map-backup/utils"
)

// InsightService computes device statistics for the backup report
type InsightService struct {
	logger *utils.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate fills the placement statistics of report from the placed APs.
// maps resolves map IDs to names; unknown IDs are counted under the ID itself.
func (s *InsightService) Generate(report *models.BackupReport, maps []models.Map, aps []*models.AccessPoint) {
	report.APsPlaced = len(aps)
	report.ModelCounts = make(map[string]int)
	report.APsByMap = make(map[string]int)
	report.Unpositioned = 0

	if len(aps) == 0 {
		s.logger.Warn("No placed APs to summarise")
		return
	}

	names := make(map[string]string, len(maps))
	for _, m := range maps {
		names[m.ID] = m.Name
	}

	for _, ap := range aps {
		model := ap.Model
		if model == "" {
			model = "unknown"
		}
		report.ModelCounts[model]++

		mapName, ok := names[ap.MapID]
		if !ok {
			mapName = ap.MapID
		}
		report.APsByMap[mapName]++

		if !ap.HasPosition() {
			report.Unpositioned++
		}
	}

	if report.Unpositioned > 0 {
		s.logger.Warn("%d placed APs have no x/y position and were not drawn", report.Unpositioned)
	}
}
