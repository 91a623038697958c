package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/canonical"
	"github.com/testshift/testshift/pkg/config"
	"github.com/testshift/testshift/pkg/engine"
	"github.com/testshift/testshift/pkg/facade"
	"github.com/testshift/testshift/pkg/stores"
)

func newMigrateCommand() *cobra.Command {
	var (
		batchFile string
		cleanup   bool
		parallel  int
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate a batch of test assets",
		Long: `Migrate the assets in a batch file into the target deployment.

The run proceeds in phases: folders parent-first, then test cases in
bounded parallel batches with their attachments, then links. A folder
failure aborts the run; a test-case failure is recorded and the run
continues. The run outcome, per-item errors, and source-to-target ID
mappings are persisted to the local run-history database.`,
		Example: `  # Migrate a batch
  tshift migrate --input batch.yaml

  # Wipe mapped target folders first
  tshift migrate --input batch.yaml --cleanup

  # Limit concurrency
  tshift migrate --input batch.yaml --parallel 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tel, err := newTelemetry(cfg)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tel.Shutdown(shutdownCtx)
			}()
			log := tel.Logger

			batch, err := canonical.LoadBatch(batchFile)
			if err != nil {
				return fmt.Errorf("failed to load batch %s: %w", batchFile, err)
			}
			if err := canonical.ValidateBatch(batch); err != nil {
				return fmt.Errorf("batch %s is invalid: %w", batchFile, err)
			}

			ctx := cmd.Context()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := facade.New(cfg, facade.WithLogger(log), facade.WithTracer(tel.Tracer))
			if err != nil {
				return err
			}
			if err := f.Initialize(ctx); err != nil {
				return err
			}

			opts := []engine.Option{
				engine.WithLogger(log),
				engine.WithTracer(tel.Tracer),
				engine.WithMetrics(tel.Metrics),
				engine.WithEvents(tel.Events),
			}

			eng := engine.New(f, engine.Config{
				BatchSize:   batchSize,
				MaxParallel: parallel,
				Cleanup:     cleanup || cfg.Common.CleanupBeforeMigration,
			}, opts...)

			startedAt := time.Now()
			status, runErr := eng.Migrate(ctx, batch)

			if err := persistRun(store, status, batchFile, startedAt, runErr); err != nil {
				log.WithError(err).Errorf("Failed to persist run history")
			}

			printRunSummary(status, runErr)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&batchFile, "input", "i", "", "batch file to migrate")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "delete existing test cases in mapped target folders first")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "max parallel test-case creations (default from config)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "test cases per batch (default from config)")
	cmd.MarkFlagRequired("input")

	return cmd
}

func openStore(ctx context.Context, cfg *config.Config) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Store.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// persistRun writes the run record, per-item errors, and ID mappings. The
// store context is detached from the run context so a cancelled run still
// gets its history written.
func persistRun(store stores.Store, status *engine.Status, batchPath string, startedAt time.Time, runErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	run := &stores.Run{
		ID:          status.RunID,
		BatchPath:   batchPath,
		Status:      stores.RunStatusCompleted,
		Total:       status.Total,
		Migrated:    status.Migrated,
		Errors:      status.Errors,
		StartedAt:   startedAt,
		CompletedAt: &now,
		CreatedAt:   startedAt,
		UpdatedAt:   now,
	}
	if runErr != nil {
		run.Status = stores.RunStatusFailed
		if errors.Is(runErr, context.Canceled) {
			run.Status = stores.RunStatusCancelled
		}
		msg := runErr.Error()
		run.Error = &msg
	}

	if err := store.CreateRun(ctx, run); err != nil {
		return err
	}

	for _, itemErr := range status.ErrorDetails {
		category := string(apierror.Classify(itemErr.Err).Category)
		err := store.AddItemError(ctx, &stores.ItemError{
			RunID:    status.RunID,
			SourceID: itemErr.SourceID,
			ItemType: itemErr.ItemType,
			Category: category,
			Message:  itemErr.Message,
		})
		if err != nil {
			return err
		}
	}

	return store.AddIDMappings(ctx, status.RunID, status.IDMap.Snapshot())
}

func printRunSummary(status *engine.Status, runErr error) {
	outcome := "completed"
	if runErr != nil {
		outcome = "failed"
	}
	fmt.Printf("Run %s %s: %d/%d migrated, %d errors\n",
		status.RunID, outcome, status.Migrated, status.Total, status.Errors)
	for _, itemErr := range status.ErrorDetails {
		fmt.Printf("  %s %s: %s\n", itemErr.ItemType, itemErr.SourceID, itemErr.Message)
	}
}
