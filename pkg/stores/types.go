package stores

import (
	"context"
	"database/sql"
	"time"
)

// RunStatus represents the status of a migration run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one migration run.
type Run struct {
	ID          string     `json:"id"`
	BatchPath   string     `json:"batch_path"`
	Status      RunStatus  `json:"status"`
	Total       int        `json:"total"`
	Migrated    int        `json:"migrated"`
	Errors      int        `json:"errors"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ItemError is one recorded per-item failure within a run.
type ItemError struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	SourceID  string    `json:"source_id"`
	ItemType  string    `json:"item_type"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// IDMapping is one source-to-target identifier mapping produced by a run.
type IDMapping struct {
	ID       int64  `json:"id"`
	RunID    string `json:"run_id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// Store defines the interface for the run-history persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, err *string) error
	UpdateRunCounts(ctx context.Context, id string, total, migrated, errors int) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Item error operations
	AddItemError(ctx context.Context, itemErr *ItemError) error
	ListItemErrors(ctx context.Context, runID string) ([]*ItemError, error)

	// ID mapping operations
	AddIDMappings(ctx context.Context, runID string, mappings map[string]string) error
	ListIDMappings(ctx context.Context, runID string) ([]*IDMapping, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
