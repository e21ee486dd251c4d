package utils

import "sync"

// PathTracker records which output paths have been handed out during a run
type PathTracker struct {
	mu    sync.Mutex
	owner map[string]string
}

// NewPathTracker creates a new tracker
func NewPathTracker() *PathTracker {
	return &PathTracker{owner: make(map[string]string)}
}

// Claim reserves path for owner. It returns false if another owner already holds it.
func (t *PathTracker) Claim(path, owner string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if held, exists := t.owner[path]; exists {
		return held == owner
	}
	t.owner[path] = owner
	return true
}

// Count returns the number of claimed paths
func (t *PathTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.owner)
}
