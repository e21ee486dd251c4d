package services

import (
	"mist-map-backup/models"
	"mist-map-backup/utils"
)

// DeviceCleaner normalizes AP records and joins them to their maps
type DeviceCleaner struct {
	logger *utils.Logger
}

// NewDeviceCleaner creates a new DeviceCleaner
func NewDeviceCleaner(logger *utils.Logger) *DeviceCleaner {
	return &DeviceCleaner{logger: logger}
}

// Dedupe keeps one record per AP name. A later record replaces an earlier one
// but keeps the earlier position.
func (c *DeviceCleaner) Dedupe(aps []*models.AccessPoint) []*models.AccessPoint {
	index := make(map[string]int, len(aps))
	out := make([]*models.AccessPoint, 0, len(aps))

	for _, ap := range aps {
		if ap == nil {
			continue
		}
		if i, seen := index[ap.Name]; seen {
			c.logger.Warn("Duplicate AP name '%s', keeping the last record", ap.Name)
			out[i] = ap
			continue
		}
		index[ap.Name] = len(out)
		out = append(out, ap)
	}
	return out
}

// GroupByMap builds one annotation set per map that has at least one AP.
// imagePaths maps a map ID to its downloaded image. APs whose map ID is not
// among maps are returned as unmatched.
func (c *DeviceCleaner) GroupByMap(maps []models.Map, imagePaths map[string]string, aps []*models.AccessPoint) ([]*models.MapAnnotationSet, []string) {
	byID := make(map[string]*models.MapAnnotationSet, len(maps))
	order := make([]string, 0, len(maps))
	for _, m := range maps {
		if _, dup := byID[m.ID]; dup {
			continue
		}
		byID[m.ID] = &models.MapAnnotationSet{Map: m, ImagePath: imagePaths[m.ID]}
		order = append(order, m.ID)
	}

	var unmatched []string
	for _, ap := range aps {
		set, ok := byID[ap.MapID]
		if !ok {
			c.logger.Warn("%s is placed on map %s which is not in the site's map list", ap.Name, ap.MapID)
			unmatched = append(unmatched, ap.Name)
			continue
		}
		set.APs = append(set.APs, ap)
	}

	var sets []*models.MapAnnotationSet
	for _, id := range order {
		if len(byID[id].APs) > 0 {
			sets = append(sets, byID[id])
		}
	}
	return sets, unmatched
}
