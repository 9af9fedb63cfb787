package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/feedbackflow/internal/clock"
	"github.com/roach88/feedbackflow/internal/ids"
	"github.com/roach88/feedbackflow/internal/persist"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"; empty defers to config
	Database   string // overrides the configured database path
	ConfigFile string

	// EnvFiles are dotenv files read before the environment. Defaults to .env.
	EnvFiles []string
	// LookupEnv replaces os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Deterministic collaborators, used by tests. Nil means production defaults.
	EventIDs    ids.Generator
	FeedbackIDs ids.Generator
	Clock       clock.Clock
	Fixtures    *persist.Document
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the feedbackflow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "feedbackflow",
		Short: "FeedbackFlow - event feedback data layer",
		Long: `Manage conference events and the ratings attendees leave for them.

Events and feedback live in a local SQLite key-value file. Each command opens
it, seeds demo fixtures on first use, performs its work and closes it again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "" && !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "", "output format (json|text), defaults to config")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to YAML config file")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewFeedbackCommand(opts))
	cmd.AddCommand(NewAnalyticsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
