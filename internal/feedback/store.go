// Package feedback holds feedback records in memory, persists them on every
// mutation, and keeps each event's derived rating aggregate in step.
//
// The store is built on top of an event catalog it is handed at construction;
// it never reaches for the catalog any other way.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/feedbackflow/internal/clock"
	"github.com/roach88/feedbackflow/internal/ids"
	"github.com/roach88/feedbackflow/internal/model"
	"github.com/roach88/feedbackflow/internal/notify"
)

// Catalog is the part of the event store feedback needs. *events.Store satisfies it.
type Catalog interface {
	List(ctx context.Context) []model.Event
	SetAggregate(ctx context.Context, id string, count int, avg float64) bool
}

// Persister is the slice of persist.Adapter the store needs.
type Persister interface {
	LoadFeedback(ctx context.Context) []model.Feedback
	SaveFeedback(ctx context.Context, feedback []model.Feedback)
}

// Config holds optional collaborators. Zero values get defaults.
type Config struct {
	IDs       ids.Generator
	Clock     clock.Clock
	Notifier  notify.Notifier
	Logger    *slog.Logger
	LoadDelay time.Duration
}

// Store is the feedback collection. It is safe for concurrent use.
//
// mu guards items for readers. writeMu serializes whole mutations, so the
// in-memory change, the save and the aggregate push of one call complete
// before the next call starts and saves land in mutation order.
// Lock order: writeMu, then the catalog's locks.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	items   []model.Feedback
	catalog Catalog
	persist Persister
	ids     ids.Generator
	clock   clock.Clock
	notify  notify.Notifier
	log     *slog.Logger
	delay   time.Duration
}

// NewStore creates an empty feedback store that pushes aggregates into catalog.
// Call Hydrate to load it.
func NewStore(catalog Catalog, p Persister, cfg Config) *Store {
	s := &Store{
		items:   []model.Feedback{},
		catalog: catalog,
		persist: p,
		ids:     cfg.IDs,
		clock:   cfg.Clock,
		notify:  cfg.Notifier,
		log:     cfg.Logger,
		delay:   cfg.LoadDelay,
	}
	if s.ids == nil {
		s.ids = ids.UUIDv7Generator{}
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.notify == nil {
		s.notify = notify.Discard
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Hydrate waits out the configured load delay and then replaces the in-memory
// collection with the persisted one.
func (s *Store) Hydrate(ctx context.Context) error {
	if err := clock.Sleep(ctx, s.delay); err != nil {
		return fmt.Errorf("hydrate feedback: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	loaded := s.persist.LoadFeedback(ctx)

	s.mu.Lock()
	s.items = loaded
	s.mu.Unlock()

	s.log.Debug("feedback hydrated", "count", len(loaded))
	return nil
}

// List returns every feedback record.
func (s *Store) List(ctx context.Context) []model.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// ListByEvent returns the feedback referencing eventID. No order is promised.
func (s *Store) ListByEvent(ctx context.Context, eventID string) []model.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Feedback{}
	for _, f := range s.items {
		if f.EventID == eventID {
			out = append(out, f)
		}
	}
	return out
}

// Get returns the feedback with the given id.
func (s *Store) Get(ctx context.Context, id string) (model.Feedback, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], true
	}
	return model.Feedback{}, false
}

// Submit stores a new record and refreshes its event's aggregate. Input is
// trusted; callers validate beforehand. If the event is gone the record is
// still kept but no aggregate is pushed. Submit cannot fail.
func (s *Store) Submit(ctx context.Context, in model.FeedbackInput) model.Feedback {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	f := model.Feedback{
		ID:          s.ids.Generate(),
		EventID:     in.EventID,
		UserID:      in.UserID,
		UserName:    in.UserName,
		Rating:      in.Rating,
		Comment:     in.Comment,
		Timestamp:   s.clock.Now(),
		IsAnonymous: in.IsAnonymous,
	}

	s.mu.Lock()
	s.items = append(s.items, f)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist.SaveFeedback(ctx, snapshot)
	s.push(ctx, snapshot, f.EventID)
	notify.Success(ctx, s.notify, "Feedback submitted successfully!")
	return f
}

// Delete removes a record and refreshes its former event's aggregate. An
// unknown id is a silent no-op.
func (s *Store) Delete(ctx context.Context, id string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	eventID := s.items[i].EventID
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist.SaveFeedback(ctx, snapshot)
	s.push(ctx, snapshot, eventID)
	notify.Success(ctx, s.notify, "Feedback deleted successfully!")
}

// DeleteByEvent removes every record referencing eventID. It is the cascade
// half of an event delete and pushes no aggregate.
func (s *Store) DeleteByEvent(ctx context.Context, eventID string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	kept := make([]model.Feedback, 0, len(s.items))
	for _, f := range s.items {
		if f.EventID != eventID {
			kept = append(kept, f)
		}
	}
	removed := len(s.items) - len(kept)
	if removed == 0 {
		s.mu.Unlock()
		return
	}
	s.items = kept
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist.SaveFeedback(ctx, snapshot)
	s.log.Debug("feedback cascaded", "event_id", eventID, "removed", removed)
}

// Recompute re-derives the aggregate of every catalog event from the current
// feedback and pushes the ones that drifted. It returns how many changed.
func (s *Store) Recompute(ctx context.Context) int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	items := s.List(ctx)
	changed := 0
	for _, e := range s.catalog.List(ctx) {
		count, avg := AggregateFor(items, e.ID)
		if count == e.FeedbackCount && avg == e.AverageRating {
			continue
		}
		if s.catalog.SetAggregate(ctx, e.ID, count, avg) {
			changed++
		}
	}
	if changed > 0 {
		s.log.Info("event aggregates recomputed", "changed", changed)
	}
	return changed
}

func (s *Store) push(ctx context.Context, items []model.Feedback, eventID string) {
	count, avg := AggregateFor(items, eventID)
	if !s.catalog.SetAggregate(ctx, eventID, count, avg) {
		s.log.Debug("aggregate skipped, event missing", "event_id", eventID)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []model.Feedback {
	out := make([]model.Feedback, len(s.items))
	copy(out, s.items)
	return out
}
