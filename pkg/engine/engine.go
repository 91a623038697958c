// Package engine orchestrates migration runs: folder hierarchy first,
// test cases in bounded parallel batches, attachments behind their test
// case, links last. All run-scoped state (id mappings, counters, per-item
// errors) lives in the Status allocated for the run.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/testshift/testshift/pkg/canonical"
	"github.com/testshift/testshift/pkg/telemetry"
)

// Client is the capability surface the engine migrates through. The facade
// satisfies it.
type Client interface {
	CreateFolder(ctx context.Context, folder canonical.Folder, parentID string) (string, error)
	CreateTestCase(ctx context.Context, tc canonical.TestCase, folderID string) (string, error)
	UploadAttachment(ctx context.Context, testCaseID string, att canonical.Attachment) error
	CreateLink(ctx context.Context, fromID, toID, linkType string) error
	DeleteTestCasesInFolder(ctx context.Context, folderID string) error
}

// Config tunes one engine instance.
type Config struct {
	// BatchSize is the number of test cases migrated per batch.
	BatchSize int

	// MaxParallel bounds concurrent test-case creations within a batch.
	MaxParallel int

	// Cleanup deletes pre-existing test cases in every mapped target folder
	// before test cases are created.
	Cleanup bool
}

const (
	defaultBatchSize   = 20
	defaultMaxParallel = 4
)

// linkTypes maps canonical link types to the target product's relation
// names. Unknown types fall back to "related".
var linkTypes = map[string]string{
	"related":    "related",
	"blocks":     "blocks",
	"duplicates": "duplicates",
	"covers":     "covers",
}

const defaultLinkType = "related"

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *telemetry.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEvents sets the event publisher.
func WithEvents(ep *telemetry.EventPublisher) Option {
	return func(e *Engine) { e.events = ep }
}

// WithTracer sets the tracer emitting run and item spans.
func WithTracer(tr *telemetry.Tracer) Option {
	return func(e *Engine) { e.tracer = tr }
}

// Engine executes migration runs against a Client. An Engine holds no
// run-scoped state; concurrent Migrate calls are independent.
type Engine struct {
	client  Client
	cfg     Config
	log     *telemetry.Logger
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher
	tracer  *telemetry.Tracer
}

// New creates an engine over client.
func New(client Client, cfg Config, opts ...Option) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}

	noopMetrics, _ := telemetry.NewMetrics(telemetry.MetricsConfig{})
	noopEvents, _ := telemetry.NewEventPublisher(telemetry.EventsConfig{})
	noopTracer, _ := telemetry.NewTracer(telemetry.TracingConfig{}, "testshift", "dev", "")

	e := &Engine{
		client:  client,
		cfg:     cfg,
		log:     telemetry.NopLogger(),
		metrics: noopMetrics,
		events:  noopEvents,
		tracer:  noopTracer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Migrate runs one migration over batch. Folder failures abort the run;
// test-case failures are recorded and the run continues; attachment and
// link problems are downgraded to skips. Status counts test cases only:
// for N test cases of which M fail, Total is N and Migrated is N-M,
// regardless of how many folders or links the batch carries. The returned
// Status always reflects the work completed, including on error and
// cancellation.
func (e *Engine) Migrate(ctx context.Context, batch *canonical.Batch) (*Status, error) {
	runID := uuid.New().String()
	total := len(batch.TestCases)
	status := newStatus(runID, total)
	log := e.log.WithRunID(runID)
	timer := telemetry.NewTimer()

	ctx, runSpan := e.tracer.StartRunSpan(ctx, runID)

	e.metrics.RecordRunStarted()
	_ = e.events.PublishRunStarted(runID, total)

	finish := func(err error) (*Status, error) {
		outcome := "completed"
		if err != nil {
			outcome = "failed"
			_ = e.events.PublishRunFailed(runID, err.Error())
			telemetry.RecordError(runSpan, err)
		} else {
			_ = e.events.PublishRunCompleted(runID, outcome, timer.Duration())
			telemetry.RecordSuccess(runSpan)
		}
		runSpan.SetAttributes(telemetry.AttrRunStatus.String(outcome))
		runSpan.End()
		e.metrics.RecordRunCompleted(outcome, timer.Duration())
		return status, err
	}

	log.Infof("starting migration: %d folders, %d test cases, %d links",
		len(batch.Folders), len(batch.TestCases), len(batch.Links))

	if err := e.migrateFolders(ctx, batch.Folders, status, log); err != nil {
		return finish(err)
	}

	if e.cfg.Cleanup {
		if err := e.cleanupFolders(ctx, batch.Folders, status, log); err != nil {
			return finish(err)
		}
	}

	if err := e.migrateTestCases(ctx, batch.TestCases, status, log); err != nil {
		return finish(err)
	}

	if err := e.migrateLinks(ctx, batch.Links, status, log); err != nil {
		return finish(err)
	}

	log.Infof("migration finished: %d/%d migrated, %d errors",
		status.Migrated, status.Total, status.Errors)
	return finish(nil)
}

// migrateFolders creates the folder forest strictly parents-first. Any
// folder failure is fatal for the run.
func (e *Engine) migrateFolders(ctx context.Context, folders []canonical.Folder, status *Status, log *telemetry.Logger) error {
	ordered, err := orderFolders(folders)
	if err != nil {
		return err
	}

	for _, folder := range ordered {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("folder migration cancelled: %w", err)
		}

		parentID := ""
		if folder.Parent != "" {
			parentID, _ = status.FolderIDs.Get(folder.Parent)
		}

		timer := telemetry.NewTimer()
		folderCtx, span := e.tracer.StartItemSpan(ctx, "folder", folder.SourceID)
		targetID, err := e.client.CreateFolder(folderCtx, folder, parentID)
		if err != nil {
			telemetry.RecordError(span, err)
			span.End()
			e.metrics.RecordItemFailed("folder")
			_ = e.events.PublishItemFailed(status.RunID, folder.SourceID, "folder", err.Error())
			return fmt.Errorf("folder %s: %w", folder.SourceID, err)
		}
		telemetry.RecordSuccess(span)
		span.End()

		status.FolderIDs.Put(folder.SourceID, targetID)
		e.metrics.RecordItemMigrated("folder", timer.Duration())
		_ = e.events.PublishItemMigrated(status.RunID, folder.SourceID, targetID, "folder")
		log.WithSourceID(folder.SourceID).Debugf("created folder %s", targetID)
	}
	return nil
}

// orderFolders returns folders sorted parents-before-children. Roots are
// folders with no parent or a parent outside the slice (already migrated).
func orderFolders(folders []canonical.Folder) ([]canonical.Folder, error) {
	inBatch := make(map[string]bool, len(folders))
	for _, f := range folders {
		inBatch[f.SourceID] = true
	}

	children := make(map[string][]canonical.Folder)
	var ordered []canonical.Folder
	var queue []canonical.Folder
	for _, f := range folders {
		if f.Parent == "" || !inBatch[f.Parent] {
			queue = append(queue, f)
		} else {
			children[f.Parent] = append(children[f.Parent], f)
		}
	}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		ordered = append(ordered, f)
		queue = append(queue, children[f.SourceID]...)
		delete(children, f.SourceID)
	}

	if len(ordered) != len(folders) {
		return nil, fmt.Errorf("folder hierarchy contains a cycle")
	}
	return ordered, nil
}

// cleanupFolders deletes pre-existing test cases in every target folder the
// run has mapped so far.
func (e *Engine) cleanupFolders(ctx context.Context, folders []canonical.Folder, status *Status, log *telemetry.Logger) error {
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cleanup cancelled: %w", err)
		}
		targetID, ok := status.FolderIDs.Get(folder.SourceID)
		if !ok {
			continue
		}
		if err := e.client.DeleteTestCasesInFolder(ctx, targetID); err != nil {
			return fmt.Errorf("cleanup of folder %s: %w", folder.SourceID, err)
		}
		log.WithSourceID(folder.SourceID).Debug("cleaned target folder")
	}
	return nil
}

// migrateTestCases processes test cases in sequential batches with a
// bounded worker pool per batch. A failed test case is recorded and the
// run continues.
func (e *Engine) migrateTestCases(ctx context.Context, cases []canonical.TestCase, status *Status, log *telemetry.Logger) error {
	for start := 0; start < len(cases); start += e.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("test-case migration cancelled: %w", err)
		}

		end := start + e.cfg.BatchSize
		if end > len(cases) {
			end = len(cases)
		}
		batch := cases[start:end]
		batchLog := log.WithBatch(start / e.cfg.BatchSize)
		batchLog.Debugf("migrating batch of %d test cases", len(batch))

		e.migrateBatchParallel(ctx, batch, status, batchLog)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("test-case migration cancelled: %w", err)
	}
	return nil
}

// migrateBatchParallel fans one batch out over a worker pool.
func (e *Engine) migrateBatchParallel(ctx context.Context, batch []canonical.TestCase, status *Status, log *telemetry.Logger) {
	workerCount := e.cfg.MaxParallel
	if len(batch) < workerCount {
		workerCount = len(batch)
	}

	workQueue := make(chan canonical.TestCase, len(batch))
	for _, tc := range batch {
		workQueue <- tc
	}
	close(workQueue)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tc := range workQueue {
				select {
				case <-ctx.Done():
					return
				default:
				}
				e.migrateTestCase(ctx, tc, status, log)
			}
		}()
	}
	wg.Wait()
}

// migrateTestCase creates one test case and uploads its attachments.
// Attachment failures are logged and skipped; they never fail the item.
func (e *Engine) migrateTestCase(ctx context.Context, tc canonical.TestCase, status *Status, log *telemetry.Logger) {
	itemLog := log.WithSourceID(tc.SourceID)

	folderID := ""
	if tc.Folder != "" {
		// A miss means the folder was not migrated; the test case is
		// created without a folder assignment rather than failing.
		folderID, _ = status.FolderIDs.Get(tc.Folder)
	}

	timer := telemetry.NewTimer()
	ctx, span := e.tracer.StartItemSpan(ctx, "test_case", tc.SourceID)
	defer span.End()
	targetID, err := e.client.CreateTestCase(ctx, tc, folderID)
	if err != nil {
		telemetry.RecordError(span, err)
		e.metrics.RecordItemFailed("test_case")
		_ = e.events.PublishItemFailed(status.RunID, tc.SourceID, "test_case", err.Error())
		status.recordError(tc.SourceID, "test_case", err)
		itemLog.WithError(err).Warn("test case failed to migrate")
		return
	}
	telemetry.RecordSuccess(span)
	span.SetAttributes(telemetry.AttrTargetID.String(targetID))

	status.IDMap.Put(tc.SourceID, targetID)
	status.recordMigrated()
	e.metrics.RecordItemMigrated("test_case", timer.Duration())
	_ = e.events.PublishItemMigrated(status.RunID, tc.SourceID, targetID, "test_case")

	for _, att := range tc.Attachments {
		if err := ctx.Err(); err != nil {
			return
		}
		if err := e.client.UploadAttachment(ctx, targetID, att); err != nil {
			_ = e.events.PublishAttachmentSkipped(status.RunID, tc.SourceID, att.Name, err.Error())
			itemLog.WithError(err).Warnf("skipping attachment %s", att.Name)
			continue
		}
		e.metrics.RecordItemMigrated("attachment", 0)
	}
}

// migrateLinks creates links between migrated test cases. Link problems
// never count as errors: unresolved endpoints and failed creates are both
// skipped, leaving the run's error tally to test cases alone.
func (e *Engine) migrateLinks(ctx context.Context, links []canonical.Link, status *Status, log *telemetry.Logger) error {
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("link migration cancelled: %w", err)
		}

		fromID, fromOK := status.IDMap.Get(link.SourceID)
		toID, toOK := status.IDMap.Get(link.TargetID)
		if !fromOK || !toOK {
			_ = e.events.PublishLinkSkipped(status.RunID, link.SourceID, link.TargetID)
			log.Debugf("skipping link %s -> %s: endpoint not migrated", link.SourceID, link.TargetID)
			continue
		}

		linkType, ok := linkTypes[link.Type]
		if !ok {
			linkType = defaultLinkType
		}

		if err := e.client.CreateLink(ctx, fromID, toID, linkType); err != nil {
			e.metrics.RecordItemFailed("link")
			_ = e.events.PublishLinkSkipped(status.RunID, link.SourceID, link.TargetID)
			log.WithError(err).Warnf("skipping link %s -> %s", link.SourceID, link.TargetID)
			continue
		}
		e.metrics.RecordItemMigrated("link", 0)
	}
	return nil
}
