package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/feedbackflow/internal/model"
)

// Keys under which the collections are stored.
const (
	KeyEvents      = "feedbackflow_events"
	KeyFeedback    = "feedbackflow_feedback"
	KeyInitialized = "feedbackflow_initialized"
)

// Medium is the key-value store the adapter writes to. *store.Store satisfies it.
type Medium interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Adapter maps collections onto a Medium.
type Adapter struct {
	kv       Medium
	log      *slog.Logger
	fixtures Document
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for soft failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithFixtures replaces the embedded seed data.
func WithFixtures(doc Document) Option {
	return func(a *Adapter) { a.fixtures = doc }
}

// New creates an Adapter over kv seeded with the embedded fixtures.
func New(kv Medium, opts ...Option) *Adapter {
	a := &Adapter{
		kv:       kv,
		log:      slog.Default(),
		fixtures: MustFixtures(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load returns the collection stored under key. An absent or malformed value
// yields a copy of fallback; malformed values are logged. Load never fails.
func Load[T any](ctx context.Context, a *Adapter, key string, fallback []T) []T {
	raw, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		a.log.Error("load collection", "key", key, "error", err)
		return clone(fallback)
	}
	if !ok {
		return clone(fallback)
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		a.log.Warn("malformed collection, using fallback", "key", key, "error", err)
		return clone(fallback)
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// Save overwrites the collection stored under key. Failures are logged and
// swallowed.
func Save[T any](ctx context.Context, a *Adapter, key string, items []T) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		a.log.Error("encode collection", "key", key, "error", err)
		return
	}
	if err := a.kv.Put(ctx, key, string(data)); err != nil {
		a.log.Error("save collection", "key", key, "error", err)
	}
}

// LoadEvents loads the event catalog, falling back to the fixtures.
func (a *Adapter) LoadEvents(ctx context.Context) []model.Event {
	return Load(ctx, a, KeyEvents, a.fixtures.Events)
}

// SaveEvents overwrites the event catalog.
func (a *Adapter) SaveEvents(ctx context.Context, events []model.Event) {
	Save(ctx, a, KeyEvents, events)
}

// LoadFeedback loads all feedback, falling back to the fixtures.
func (a *Adapter) LoadFeedback(ctx context.Context) []model.Feedback {
	return Load(ctx, a, KeyFeedback, a.fixtures.Feedback)
}

// SaveFeedback overwrites the feedback collection.
func (a *Adapter) SaveFeedback(ctx context.Context, feedback []model.Feedback) {
	Save(ctx, a, KeyFeedback, feedback)
}

// Initialized reports whether the medium has been seeded.
func (a *Adapter) Initialized(ctx context.Context) (bool, error) {
	ok, err := a.kv.Has(ctx, KeyInitialized)
	if err != nil {
		return false, fmt.Errorf("check initialized: %w", err)
	}
	return ok, nil
}

// Initialize seeds every collection that has never been written, then sets
// the marker. Once the marker exists it does nothing, so calling it again
// after the user has emptied a collection leaves that collection empty.
func (a *Adapter) Initialize(ctx context.Context) error {
	done, err := a.Initialized(ctx)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	if err := a.seed(ctx, KeyEvents, func() { a.SaveEvents(ctx, a.fixtures.Events) }); err != nil {
		return err
	}
	if err := a.seed(ctx, KeyFeedback, func() { a.SaveFeedback(ctx, a.fixtures.Feedback) }); err != nil {
		return err
	}

	if err := a.kv.Put(ctx, KeyInitialized, "true"); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	a.log.Info("storage initialized", "events", len(a.fixtures.Events), "feedback", len(a.fixtures.Feedback))
	return nil
}

func (a *Adapter) seed(ctx context.Context, key string, write func()) error {
	exists, err := a.kv.Has(ctx, key)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", key, err)
	}
	if !exists {
		write()
	}
	return nil
}

// Reset removes both collections and the marker; the next Initialize reseeds.
func (a *Adapter) Reset(ctx context.Context) error {
	for _, key := range []string{KeyEvents, KeyFeedback, KeyInitialized} {
		if err := a.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	a.log.Info("storage reset")
	return nil
}

// Snapshot returns both stored collections as a Document.
func (a *Adapter) Snapshot(ctx context.Context) Document {
	return Document{
		Events:   a.LoadEvents(ctx),
		Feedback: a.LoadFeedback(ctx),
	}
}

// Restore validates doc and overwrites both collections with it. The medium
// is marked initialized so fixtures are not layered on top.
func (a *Adapter) Restore(ctx context.Context, doc Document) error {
	if err := ValidateDocument(doc); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	a.SaveEvents(ctx, doc.Events)
	a.SaveFeedback(ctx, doc.Feedback)
	if err := a.kv.Put(ctx, KeyInitialized, "true"); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	a.log.Info("storage restored", "events", len(doc.Events), "feedback", len(doc.Feedback))
	return nil
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
