package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testshift/testshift/pkg/canonical"
)

func newValidateCommand() *cobra.Command {
	var batchFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and batch files offline",
		Long: `Validate the config file and, when --input is given, a migration
batch file. No network calls are made.

Batch validation checks:
  - unique source IDs across folders and test cases
  - folder parent references resolve within the batch
  - link endpoints name known item types
  - attachment files exist and are readable`,
		Example: `  # Validate the config file only
  tshift validate

  # Validate a batch file too
  tshift validate --input batch.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Config %s: OK (manager project %d)\n", configPath, cfg.Products.Manager.ProjectID)

			if batchFile == "" {
				return nil
			}

			batch, err := canonical.LoadBatch(batchFile)
			if err != nil {
				return fmt.Errorf("failed to load batch %s: %w", batchFile, err)
			}
			if err := canonical.ValidateBatch(batch); err != nil {
				return fmt.Errorf("batch %s is invalid: %w", batchFile, err)
			}
			fmt.Printf("Batch %s: OK (%d folders, %d test cases, %d links)\n",
				batchFile, len(batch.Folders), len(batch.TestCases), len(batch.Links))

			return nil
		},
	}

	cmd.Flags().StringVarP(&batchFile, "input", "i", "", "batch file to validate")

	return cmd
}
