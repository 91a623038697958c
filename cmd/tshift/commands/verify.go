package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testshift/testshift/pkg/facade"
)

func newVerifyCommand() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Count migrated test cases in the target",
		Long: `Count test cases in the target deployment through the Data Export
search API. Requires the data_export product block in the config.

The count is a spot check against the migrated totals reported by
'tshift status', not a field-level comparison.`,
		Example: `  # Count everything in the configured project
  tshift verify

  # Count a subset
  tshift verify --query "name ~ 'Login'"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}

			f, err := facade.New(cfg, facade.WithLogger(log))
			if err != nil {
				return err
			}
			if err := f.Initialize(cmd.Context()); err != nil {
				return err
			}

			count, err := f.CountMigratedTestCases(cmd.Context(), query)
			if err != nil {
				return err
			}

			fmt.Printf("Target test cases: %d\n", count)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search query to scope the count")

	return cmd
}
