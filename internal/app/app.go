// Package app assembles the data layer with go.uber.org/fx: the SQLite
// medium, the persist adapter, and the two stores joined by the cascade hook.
//
// Starting the graph seeds storage on first use, hydrates both stores and
// re-derives event aggregates. Stopping it closes the database.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/roach88/feedbackflow/internal/clock"
	"github.com/roach88/feedbackflow/internal/config"
	"github.com/roach88/feedbackflow/internal/events"
	"github.com/roach88/feedbackflow/internal/feedback"
	"github.com/roach88/feedbackflow/internal/ids"
	"github.com/roach88/feedbackflow/internal/notify"
	"github.com/roach88/feedbackflow/internal/persist"
	"github.com/roach88/feedbackflow/internal/store"
)

// Options are the inputs the graph does not build itself. Nil collaborators
// get production defaults.
type Options struct {
	Config   config.Config
	Logger   *slog.Logger
	Notifier notify.Notifier
	// EventIDs and FeedbackIDs mint identifiers for new records.
	EventIDs    ids.Generator
	FeedbackIDs ids.Generator
	Clock       clock.Clock
	// Fixtures replaces the embedded seed data when non-nil.
	Fixtures *persist.Document
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Notifier == nil {
		o.Notifier = notify.NewLogger(o.Logger)
	}
	if o.EventIDs == nil {
		o.EventIDs = ids.UUIDv7Generator{}
	}
	if o.FeedbackIDs == nil {
		o.FeedbackIDs = ids.UUIDv7Generator{}
	}
	if o.Clock == nil {
		o.Clock = clock.System{}
	}
	return o
}

// Module provides the data layer. It expects Options and config.Config in
// the graph.
var Module = fx.Options(
	fx.Provide(openStore, newAdapter, newEventStore, newFeedbackStore),
	fx.Invoke(registerCascade, registerHydration),
)

func openStore(lc fx.Lifecycle, cfg config.Config, o Options) (*store.Store, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DatabasePath, err)
	}
	lc.Append(fx.StopHook(func() error {
		o.Logger.Debug("closing database", "path", cfg.DatabasePath)
		return st.Close()
	}))
	return st, nil
}

func newAdapter(st *store.Store, o Options) *persist.Adapter {
	opts := []persist.Option{persist.WithLogger(o.Logger)}
	if o.Fixtures != nil {
		opts = append(opts, persist.WithFixtures(*o.Fixtures))
	}
	return persist.New(st, opts...)
}

func newEventStore(a *persist.Adapter, cfg config.Config, o Options) *events.Store {
	return events.NewStore(a, events.Config{
		IDs:       o.EventIDs,
		Notifier:  o.Notifier,
		Logger:    o.Logger,
		LoadDelay: cfg.LoadDelay,
	})
}

func newFeedbackStore(ev *events.Store, a *persist.Adapter, cfg config.Config, o Options) *feedback.Store {
	return feedback.NewStore(ev, a, feedback.Config{
		IDs:       o.FeedbackIDs,
		Clock:     o.Clock,
		Notifier:  o.Notifier,
		Logger:    o.Logger,
		LoadDelay: cfg.LoadDelay,
	})
}

func registerCascade(ev *events.Store, fb *feedback.Store) {
	ev.OnDelete(fb.DeleteByEvent)
}

func registerHydration(lc fx.Lifecycle, a *persist.Adapter, ev *events.Store, fb *feedback.Store, o Options) {
	lc.Append(fx.StartHook(func(ctx context.Context) error {
		if err := a.Initialize(ctx); err != nil {
			return err
		}
		if err := hydrate(ctx, ev, fb); err != nil {
			return err
		}
		if n := fb.Recompute(ctx); n > 0 {
			o.Logger.Warn("stored aggregates were stale", "events", n)
		}
		return nil
	}))
}

// hydrate loads both stores concurrently, so startup waits out the load delay
// once rather than once per store.
func hydrate(ctx context.Context, ev *events.Store, fb *feedback.Store) error {
	var wg sync.WaitGroup
	var evErr, fbErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		evErr = ev.Hydrate(ctx)
	}()
	go func() {
		defer wg.Done()
		fbErr = fb.Hydrate(ctx)
	}()
	wg.Wait()
	return errors.Join(evErr, fbErr)
}

// Runtime is a started data layer.
type Runtime struct {
	Store    *store.Store
	Persist  *persist.Adapter
	Events   *events.Store
	Feedback *feedback.Store
	Notifier notify.Notifier
	Logger   *slog.Logger

	app *fx.App
}

// Start builds and starts the graph. Call Stop when done.
func Start(ctx context.Context, opts Options) (*Runtime, error) {
	opts = opts.withDefaults()
	rt := &Runtime{Notifier: opts.Notifier, Logger: opts.Logger}

	rt.app = fx.New(
		fx.Supply(opts, opts.Config),
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: opts.Logger}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
		Module,
		fx.Populate(&rt.Store, &rt.Persist, &rt.Events, &rt.Feedback),
	)
	if err := rt.app.Err(); err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	if err := rt.app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return rt, nil
}

// Stop runs the shutdown hooks.
func (r *Runtime) Stop(ctx context.Context) error {
	if err := r.app.Stop(ctx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}
