package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/testshift/testshift/pkg/facade"
	"github.com/testshift/testshift/pkg/providers"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to the configured products",
		Long: `Initialize every configured product adapter and probe its health
endpoint.

The connection is considered up when at least one adapter responds; a
failed optional adapter is reported but does not fail the check.`,
		Example: `  # Check with the default config file
  tshift check

  # Check a specific deployment
  tshift check --config prod.yaml`,
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
				return fmt.Errorf("connection check failed: %w", err)
			}

			status := f.TestConnection(cmd.Context())
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(status); err != nil {
					return err
				}
			} else {
				printConnectionStatus(status)
			}

			if !status.Connected {
				return fmt.Errorf("no product adapter is reachable")
			}
			return nil
		},
	}

	return cmd
}

func printConnectionStatus(status *facade.ConnectionStatus) {
	products := make([]string, 0, len(status.Details))
	for p := range status.Details {
		products = append(products, p)
	}
	sort.Strings(products)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Product", "Initialized", "Healthy", "Capabilities", "Error"})
	for _, p := range products {
		d := status.Details[p]
		t.AppendRow(table.Row{p, d.Initialized, d.Healthy, capabilityList(providers.Product(p)), d.Error})
	}
	t.Render()

	if status.Connected {
		fmt.Println("Connection OK")
	} else {
		fmt.Println("Connection FAILED")
	}
}

// capabilityList renders a product's declared capability set, sorted.
func capabilityList(p providers.Product) string {
	set := providers.Capabilities(p)
	caps := make([]string, 0, len(set))
	for c := range set {
		caps = append(caps, string(c))
	}
	sort.Strings(caps)
	return strings.Join(caps, ", ")
}
