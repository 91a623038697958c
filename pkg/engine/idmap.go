package engine

import "sync"

// IDMap records source-to-target identifier mappings accumulated during one
// migration run. It is safe for concurrent use; the first write for a source
// id wins and later writes are ignored.
type IDMap struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewIDMap returns an empty identifier map.
func NewIDMap() *IDMap {
	return &IDMap{m: make(map[string]string)}
}

// Put records a mapping from sourceID to targetID. If sourceID is already
// mapped the existing entry is kept and Put reports false.
func (im *IDMap) Put(sourceID, targetID string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, exists := im.m[sourceID]; exists {
		return false
	}
	im.m[sourceID] = targetID
	return true
}

// Get returns the target id for sourceID. A miss means the item has not
// been migrated.
func (im *IDMap) Get(sourceID string) (string, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	id, ok := im.m[sourceID]
	return id, ok
}

// Len returns the number of recorded mappings.
func (im *IDMap) Len() int {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return len(im.m)
}

// Snapshot returns a copy of the mappings.
func (im *IDMap) Snapshot() map[string]string {
	im.mu.RLock()
	defer im.mu.RUnlock()
	out := make(map[string]string, len(im.m))
	for k, v := range im.m {
		out[k] = v
	}
	return out
}
