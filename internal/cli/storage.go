package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/feedbackflow/internal/export"
	"github.com/roach88/feedbackflow/internal/persist"
)

// StorageStatus describes the stored collections after init, reset or restore.
type StorageStatus struct {
	Database string `json:"database"`
	Events   int    `json:"events"`
	Feedback int    `json:"feedback"`
	Message  string `json:"message"`
}

func (s StorageStatus) String() string {
	return fmt.Sprintf("%s (%d events, %d feedback)", s.Message, s.Events, s.Feedback)
}

func (s *session) status(ctx context.Context, db, msg string) StorageStatus {
	return StorageStatus{
		Database: db,
		Events:   len(s.rt.Events.List(ctx)),
		Feedback: len(s.rt.Feedback.List(ctx)),
		Message:  msg,
	}
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and seed demo data",
		Long: `Create the database file if needed and seed the demo events and
feedback on first use. Running it again leaves existing data alone.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				return s.out.Success(s.status(ctx, s.database(), "Storage ready"))
			})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reset",
		Short:         "Discard all data and reseed the demo fixtures",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if err := s.reload(ctx, func() error { return s.rt.Persist.Reset(ctx) }); err != nil {
					return s.fail("E_RESET_FAILED", err)
				}
				return s.out.Success(s.status(ctx, s.database(), "Storage reset"))
			})
		},
	}
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write both collections to a YAML document",
		Long: `Write the stored events and feedback to a YAML document that
"feedbackflow restore" accepts.

Example:
  feedbackflow backup -o backup.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				doc := s.rt.Persist.Snapshot(ctx)
				data, err := persist.EncodeDocument(doc)
				if err != nil {
					return s.fail("E_BACKUP_FAILED", err)
				}
				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write backup", err)
				}
				return s.out.Success(StorageStatus{
					Database: s.database(),
					Events:   len(doc.Events),
					Feedback: len(doc.Feedback),
					Message:  "Backup written to " + output,
				})
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")

	return cmd
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace all data with a backup document",
		Long: `Validate a backup document and replace both collections with it.
Event aggregates are re-derived from the restored feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read backup", err)
			}
			doc, err := persist.ParseDocument(data)
			if err != nil {
				return reportInput(rootOpts, cmd, err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if err := s.reload(ctx, func() error { return s.rt.Persist.Restore(ctx, doc) }); err != nil {
					return s.fail("E_RESTORE_FAILED", err)
				}
				return s.out.Success(s.status(ctx, s.database(), "Storage restored from "+args[0]))
			})
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &filterFlags{}
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export feedback as CSV",
		Long: `Export the feedback that passes every filter as CSV.

Without -o the file is named feedback_export_<date>.csv in the current
directory. Use -o - to write to stdout.

Examples:
  feedbackflow export
  feedbackflow export --range last30days -o recent.csv
  feedbackflow export --event 1 -o -`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return reportInput(rootOpts, cmd, err)
			}
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				events := s.rt.Events.List(ctx)
				view := filter.Apply(s.rt.Feedback.List(ctx), events, s.now())
				csv, err := export.CSV(view, events)
				if errors.Is(err, export.ErrNothingToExport) {
					return s.fail("E_NOTHING_TO_EXPORT", err)
				}
				if err != nil {
					return s.fail("E_EXPORT_FAILED", err)
				}

				if output == "-" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), csv)
					return err
				}
				path := output
				if path == "" {
					path = export.FileName(s.now())
				}
				if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write export", err)
				}
				return s.out.Success(ExportResult{Path: path, Rows: len(view)})
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", `file to write, "-" for stdout`)

	return cmd
}

// ExportResult reports a written export file.
type ExportResult struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

func (r ExportResult) String() string {
	return fmt.Sprintf("Exported %d feedback records to %s", r.Rows, r.Path)
}

// database is the path the session opened.
func (s *session) database() string {
	return s.cfg.DatabasePath
}

// reload runs a storage rewrite, then reseeds and rehydrates both stores so
// the in-memory view matches the medium again.
func (s *session) reload(ctx context.Context, rewrite func() error) error {
	if err := rewrite(); err != nil {
		return err
	}
	if err := s.rt.Persist.Initialize(ctx); err != nil {
		return err
	}
	if err := s.rt.Events.Hydrate(ctx); err != nil {
		return err
	}
	if err := s.rt.Feedback.Hydrate(ctx); err != nil {
		return err
	}
	s.rt.Feedback.Recompute(ctx)
	return nil
}
