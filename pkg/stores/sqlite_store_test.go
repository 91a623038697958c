package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

func testRun(id string) *Run {
	now := time.Now()
	return &Run{
		ID:        id,
		BatchPath: "batch.yaml",
		Status:    RunStatusRunning,
		Total:     5,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.BatchPath != "batch.yaml" || got.Status != RunStatusRunning || got.Total != 5 {
		t.Fatalf("run = %+v, want batch.yaml/running/5", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetRun(context.Background(), "missing"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestUpdateRunStatusSetsCompletion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	msg := "three items failed"
	if err := store.UpdateRunStatus(ctx, "run-1", RunStatusFailed, &msg); err != nil {
		t.Fatalf("UpdateRunStatus() error = %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != RunStatusFailed {
		t.Fatalf("status = %v, want failed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at must be set on terminal status")
	}
	if got.Error == nil || *got.Error != msg {
		t.Fatalf("error = %v, want %q", got.Error, msg)
	}
}

func TestUpdateRunCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := store.UpdateRunCounts(ctx, "run-1", 5, 4, 1); err != nil {
		t.Fatalf("UpdateRunCounts() error = %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Migrated != 4 || got.Errors != 1 {
		t.Fatalf("counts = %d/%d, want 4/1", got.Migrated, got.Errors)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testRun("run-old")
	older.StartedAt = time.Now().Add(-time.Hour)
	if err := store.CreateRun(ctx, older); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := store.CreateRun(ctx, testRun("run-new")); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" {
		t.Fatalf("runs = %v, want run-new first", runs)
	}
}

func TestItemErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	itemErr := &ItemError{
		RunID:    "run-1",
		SourceID: "TC-7",
		ItemType: "test_case",
		Category: "server",
		Message:  "500 from backend",
	}
	if err := store.AddItemError(ctx, itemErr); err != nil {
		t.Fatalf("AddItemError() error = %v", err)
	}
	if itemErr.ID == 0 {
		t.Fatal("expected generated id")
	}

	errs, err := store.ListItemErrors(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListItemErrors() error = %v", err)
	}
	if len(errs) != 1 || errs[0].SourceID != "TC-7" || errs[0].Category != "server" {
		t.Fatalf("errors = %+v, want one TC-7/server entry", errs)
	}
}

func TestIDMappings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	mappings := map[string]string{
		"TC-1": "100",
		"TC-2": "101",
		"F-1":  "55",
	}
	if err := store.AddIDMappings(ctx, "run-1", mappings); err != nil {
		t.Fatalf("AddIDMappings() error = %v", err)
	}

	got, err := store.ListIDMappings(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListIDMappings() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("mappings = %d, want 3", len(got))
	}

	// Re-inserting the same source ids must be a no-op, not an error.
	if err := store.AddIDMappings(ctx, "run-1", map[string]string{"TC-1": "999"}); err != nil {
		t.Fatalf("AddIDMappings() repeat error = %v", err)
	}
	got, err = store.ListIDMappings(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListIDMappings() error = %v", err)
	}
	for _, m := range got {
		if m.SourceID == "TC-1" && m.TargetID != "100" {
			t.Fatalf("TC-1 target = %q, want first write kept", m.TargetID)
		}
	}
}

func TestDeleteRunCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := store.AddItemError(ctx, &ItemError{RunID: "run-1", SourceID: "TC-1", ItemType: "test_case", Message: "x"}); err != nil {
		t.Fatalf("AddItemError() error = %v", err)
	}
	if err := store.AddIDMappings(ctx, "run-1", map[string]string{"TC-2": "100"}); err != nil {
		t.Fatalf("AddIDMappings() error = %v", err)
	}

	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}

	errs, err := store.ListItemErrors(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListItemErrors() error = %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("item errors = %d, want 0 after cascade", len(errs))
	}

	mappings, err := store.ListIDMappings(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListIDMappings() error = %v", err)
	}
	if len(mappings) != 0 {
		t.Fatalf("mappings = %d, want 0 after cascade", len(mappings))
	}
}

func TestHealthCheck(t *testing.T) {
	store := newTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	uninitialized, err := NewSQLiteStore(Config{Path: "unused.db"})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := uninitialized.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for uninitialized store")
	}
}
