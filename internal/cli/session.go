package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/feedbackflow/internal/app"
	"github.com/roach88/feedbackflow/internal/clock"
	"github.com/roach88/feedbackflow/internal/config"
	"github.com/roach88/feedbackflow/internal/notify"
)

// session is an open data layer plus the formatter for one command.
type session struct {
	rt    *app.Runtime
	cfg   config.Config
	out   *OutputFormatter
	clock clock.Clock
}

// now reads the session clock.
func (s *session) now() time.Time {
	return s.clock.Now()
}

// resolveConfig loads config and applies the global flags on top.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	cfg, err := config.Load(config.Options{
		File:     opts.ConfigFile,
		EnvFiles: envFiles,
		Lookup:   opts.LookupEnv,
	})
	if err != nil {
		return config.Config{}, err
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}
	if opts.Format != "" {
		cfg.Format = opts.Format
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// formatterFor builds an output formatter without opening storage.
func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	format := opts.Format
	if format == "" {
		format = "text"
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openSession starts the data layer for cmd.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})
	logger := slog.New(handler)

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	recorder := &notify.Recorder{}
	out := &OutputFormatter{
		Format:    cfg.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		Notices:   recorder,
	}

	out.VerboseLog("Opening %s", cfg.DatabasePath)
	rt, err := app.Start(commandContext(cmd), app.Options{
		Config:      cfg,
		Logger:      logger,
		Notifier:    recorder,
		EventIDs:    opts.EventIDs,
		FeedbackIDs: opts.FeedbackIDs,
		Clock:       clk,
		Fixtures:    opts.Fixtures,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open storage", err)
	}
	return &session{rt: rt, cfg: cfg, out: out, clock: clk}, nil
}

// withSession opens a session, runs fn and always closes the session.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := s.rt.Stop(context.Background()); stopErr != nil {
			err = errors.Join(err, WrapExitError(ExitCommandError, "failed to close storage", stopErr))
		}
	}()
	return fn(commandContext(cmd), s)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// fail reports an operation failure through the formatter and returns the
// matching exit error.
func (s *session) fail(code string, err error) error {
	if outErr := s.out.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	exitErr := WrapExitError(ExitFailure, code, err)
	exitErr.Reported = true
	return exitErr
}

// notFound reports a missing record.
func (s *session) notFound(kind, id string) error {
	return s.fail("E_NOT_FOUND", fmt.Errorf("%s %s not found", kind, id))
}
