package models

import "time"

// Site is a physical location in the controller, resolved from its name
type Site struct {
	ID   string
	Name string
}

// Map is a floor-plan image uploaded to a site
type Map struct {
	ID     string
	Name   string
	URL    string
	Width  int // pixels, 0 when unknown
	Height int
}

// AccessPoint is a placed device with its position on a map.
// Nil pointer fields mean the controller did not report a value.
type AccessPoint struct {
	Name        string
	MAC         string
	Model       string
	MapID       string
	ImageURLs   []string // at most three, in image1..image3 order
	Mount       *string
	Height      *float64 // meters
	Orientation *float64 // degrees
	X           *float64 // pixels on the map image
	Y           *float64
}

// HasPosition reports whether both coordinates are known
func (ap *AccessPoint) HasPosition() bool {
	return ap.X != nil && ap.Y != nil
}

// MapAnnotationSet groups the access points placed on one map
type MapAnnotationSet struct {
	Map       Map
	ImagePath string // downloaded source image, empty when the download failed
	APs       []*AccessPoint
}

// InventorySnapshot is the set of placed APs captured by one run
type InventorySnapshot struct {
	RunID    string
	SiteID   string
	SiteName string
	TakenAt  time.Time
	APs      []*AccessPoint
}

// DateStamp returns the snapshot day as YYYYMMDD
func (s *InventorySnapshot) DateStamp() string {
	return s.TakenAt.Format("20060102")
}

// MapAnnotation is the outcome of drawing APs on one map
type MapAnnotation struct {
	MapName    string
	OutputPath string
	Converted  bool           // source image needed colour-mode conversion
	Counts     map[string]int // drawn devices per model
}

// BackupReport summarises one backup run
type BackupReport struct {
	RunID    string
	SiteID   string
	SiteName string
	SiteDir  string

	MapsFound      int
	MapsDownloaded int
	MapsSkipped    int

	APsPlaced          int
	UnplacedAPs        []string
	UnmatchedAPs       []string // placed on a map ID that was not listed
	APImagesDownloaded int
	APImagesSkipped    int

	FailedDownloads int
	BytesDownloaded int64

	InventoryPath string
	Annotations   []MapAnnotation
	ModelCounts   map[string]int // all placed APs per model
	APsByMap      map[string]int // placed APs per map name
	Unpositioned  int            // placed on a map but missing x or y
	RateLimited   bool

	StartedAt  time.Time
	FinishedAt time.Time
}
