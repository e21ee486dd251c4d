package storage

import "mist-map-backup/models"

// InventoryStore persists the AP inventory captured by a run
type InventoryStore interface {
	SaveInventory(snapshot *models.InventorySnapshot) error
	Close() error
}

// PathReporter is implemented by stores that write a file, exposing where the
// last snapshot went
type PathReporter interface {
	Path() string
}
