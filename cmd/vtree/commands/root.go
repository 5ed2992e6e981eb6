package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	jsonOutput  bool
	noColor     bool
	sessionName string
	dbPath      string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vtree",
		Short: "vtree - virtual tree reconciliation",
		Long: `vtree reconciles declarative widget trees against a live toolkit.

Each snapshot is normalized against the previous one, diffed into
added, removed, params_changed and reordered events, and applied to an
in-memory widget toolkit. Snapshots come from YAML, JSON or CUE files or
from a Starlark view(tick) script.

Features:
  - Stable node identity by kind and key
  - Subtree removal with cascade notification
  - File watching with debounced reloads
  - Cycle history in SQLite
  - Prometheus metrics and OpenTelemetry traces`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (yaml, json or cue)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&sessionName, "session", "", "session name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "record cycles in this SQLite database")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
