package engine

import "sync"

// ItemError records one test case that failed to migrate. The run continued
// past it; the error is kept for reporting.
type ItemError struct {
	SourceID string `json:"source_id"`
	ItemType string `json:"item_type"`
	Err      error  `json:"-"`
	Message  string `json:"message"`
}

// Status is the outcome of one migration run. Total, Migrated, Errors, and
// IDMap count test cases only: folders are prerequisites tracked in
// FolderIDs, and link problems are skips, not errors. A fresh Status is
// allocated per Migrate call; it is never shared between runs.
type Status struct {
	RunID        string      `json:"run_id"`
	Total        int         `json:"total"`
	Migrated     int         `json:"migrated"`
	Errors       int         `json:"errors"`
	ErrorDetails []ItemError `json:"error_details,omitempty"`
	IDMap        *IDMap      `json:"-"`

	// FolderIDs maps folder source ids to their created target ids. Kept
	// apart from IDMap so the test-case mapping table stays exactly the
	// set of migrated test cases.
	FolderIDs *IDMap `json:"-"`

	mu sync.Mutex
}

func newStatus(runID string, total int) *Status {
	return &Status{
		RunID:     runID,
		Total:     total,
		IDMap:     NewIDMap(),
		FolderIDs: NewIDMap(),
	}
}

func (s *Status) recordMigrated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Migrated++
}

func (s *Status) recordError(sourceID, itemType string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors++
	s.ErrorDetails = append(s.ErrorDetails, ItemError{
		SourceID: sourceID,
		ItemType: itemType,
		Err:      err,
		Message:  err.Error(),
	})
}
