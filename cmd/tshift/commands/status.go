package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/testshift/testshift/pkg/stores"
)

func newStatusCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show migration run history",
		Long: `Show past migration runs from the local run-history database.

Without arguments, lists recent runs newest first. With a run ID, shows
that run's details including per-item errors and ID mappings.`,
		Example: `  # List recent runs
  tshift status

  # Show one run in detail
  tshift status 2f1c9a4e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, args[0])
			}
			return listRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")

	return cmd
}

func listRuns(cmd *cobra.Command, store stores.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit, 0)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Run ID", "Status", "Migrated", "Errors", "Started", "Batch"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.Status,
			fmt.Sprintf("%d/%d", run.Migrated, run.Total),
			run.Errors,
			run.StartedAt.Format(time.RFC3339),
			run.BatchPath,
		})
	}
	t.Render()

	return nil
}

func showRun(cmd *cobra.Command, store stores.Store, runID string) error {
	ctx := cmd.Context()

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	itemErrors, err := store.ListItemErrors(ctx, runID)
	if err != nil {
		return err
	}
	mappings, err := store.ListIDMappings(ctx, runID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run":      run,
			"errors":   itemErrors,
			"mappings": mappings,
		})
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  Status:   %s\n", run.Status)
	fmt.Printf("  Batch:    %s\n", run.BatchPath)
	fmt.Printf("  Migrated: %d/%d (%d errors)\n", run.Migrated, run.Total, run.Errors)
	fmt.Printf("  Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Printf("  Finished: %s\n", run.CompletedAt.Format(time.RFC3339))
	}
	if run.Error != nil {
		fmt.Printf("  Error:    %s\n", *run.Error)
	}

	if len(itemErrors) > 0 {
		fmt.Println("\nItem errors:")
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source ID", "Type", "Category", "Message"})
		for _, itemErr := range itemErrors {
			t.AppendRow(table.Row{itemErr.SourceID, itemErr.ItemType, itemErr.Category, itemErr.Message})
		}
		t.Render()
	}

	if len(mappings) > 0 {
		fmt.Println("\nID mappings:")
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source ID", "Target ID"})
		for _, m := range mappings {
			t.AppendRow(table.Row{m.SourceID, m.TargetID})
		}
		t.Render()
	}

	return nil
}
