package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testshift/testshift/pkg/config"
	"github.com/testshift/testshift/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	// buildVersion is stamped by Execute for telemetry resource attributes.
	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tshift",
		Short: "TestShift - Test Asset Migration Engine",
		Long: `TestShift migrates test assets into a qTest-style test management
suite through its per-product REST APIs.

Features:
  - Folder hierarchies, test cases, attachments, and links
  - Parameters, Gherkin features, and Pulse rules
  - Rate-limited, retrying HTTP transport with circuit breaking
  - Partial-failure tolerance with per-item error reporting
  - Local run history with source-to-target ID mappings`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tshift.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}

// loadConfig reads the config file named by the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	return cfg, nil
}

// newLogger builds a telemetry logger from the loaded config, honoring the
// --verbose flag.
func newLogger(cfg *config.Config) (*telemetry.Logger, error) {
	level := cfg.Telemetry.LogLevel
	if verbose {
		level = "debug"
	}
	return telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  level,
		Format: cfg.Telemetry.LogFormat,
		Output: "stderr",
	})
}

// newTelemetry builds the full telemetry bundle from the config file's
// telemetry section. Tracing and metrics stay off unless enabled there.
func newTelemetry(cfg *config.Config) (*telemetry.Telemetry, error) {
	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceVersion = buildVersion
	telCfg.Logging.Level = cfg.Telemetry.LogLevel
	if verbose {
		telCfg.Logging.Level = "debug"
	}
	telCfg.Logging.Format = cfg.Telemetry.LogFormat
	telCfg.Logging.Output = "stderr"
	telCfg.Metrics.Enabled = cfg.Telemetry.MetricsEnabled
	telCfg.Tracing.Enabled = cfg.Telemetry.TracingEnabled
	telCfg.Tracing.Exporter = cfg.Telemetry.TraceExporter
	telCfg.Tracing.Endpoint = cfg.Telemetry.TraceEndpoint
	return telemetry.NewTelemetry(telCfg)
}
