// Package events holds the event catalog in memory and persists it on every
// mutation.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/feedbackflow/internal/clock"
	"github.com/roach88/feedbackflow/internal/ids"
	"github.com/roach88/feedbackflow/internal/model"
	"github.com/roach88/feedbackflow/internal/notify"
)

// ErrInvalidSchedule is returned when an event would end before it starts.
var ErrInvalidSchedule = errors.New("end date precedes start date")

// Persister is the slice of persist.Adapter the store needs.
type Persister interface {
	LoadEvents(ctx context.Context) []model.Event
	SaveEvents(ctx context.Context, events []model.Event)
}

// DeleteHook runs after an event is removed. The feedback store registers
// one to cascade the delete.
type DeleteHook func(ctx context.Context, eventID string)

// Config holds optional collaborators. Zero values get defaults.
type Config struct {
	IDs       ids.Generator
	Notifier  notify.Notifier
	Logger    *slog.Logger
	LoadDelay time.Duration
}

// Store is the event catalog. It is safe for concurrent use.
//
// mu guards the slice for readers. writeMu serializes whole mutations so
// saves land in mutation order. Delete releases writeMu before running its
// hooks, which take the feedback store's locks.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	events  []model.Event
	persist Persister
	ids     ids.Generator
	notify  notify.Notifier
	log     *slog.Logger
	delay   time.Duration
	hooks   []DeleteHook
}

// NewStore creates an empty catalog backed by p. Call Hydrate to load it.
func NewStore(p Persister, cfg Config) *Store {
	s := &Store{
		persist: p,
		ids:     cfg.IDs,
		notify:  cfg.Notifier,
		log:     cfg.Logger,
		delay:   cfg.LoadDelay,
		events:  []model.Event{},
	}
	if s.ids == nil {
		s.ids = ids.UUIDv7Generator{}
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
// catalog with the persisted one. It returns early only if ctx is done.
func (s *Store) Hydrate(ctx context.Context) error {
	if err := clock.Sleep(ctx, s.delay); err != nil {
		return fmt.Errorf("hydrate events: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	loaded := s.persist.LoadEvents(ctx)

	s.mu.Lock()
	s.events = loaded
	s.mu.Unlock()

	s.log.Debug("events hydrated", "count", len(loaded))
	return nil
}

// OnDelete registers a hook that runs after every successful Delete.
func (s *Store) OnDelete(h DeleteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// List returns all events in insertion order.
func (s *Store) List(ctx context.Context) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Get returns the event with the given id.
func (s *Store) Get(ctx context.Context, id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.events[i], true
	}
	return model.Event{}, false
}

// Create adds a new event with a fresh id and zeroed aggregates.
func (s *Store) Create(ctx context.Context, in model.EventInput) (model.Event, error) {
	if !model.ScheduleValid(in.StartDate, in.EndDate) {
		notify.Error(ctx, s.notify, "Event end date must not be before its start date")
		return model.Event{}, fmt.Errorf("create event: %w", ErrInvalidSchedule)
	}

	e := model.Event{
		ID:          s.ids.Generate(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Location:    in.Location,
		Organizer:   in.Organizer,
		ImageURL:    in.ImageURL,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.events = append(s.events, e)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist.SaveEvents(ctx, snapshot)
	s.log.Debug("event created", "id", e.ID)
	notify.Success(ctx, s.notify, fmt.Sprintf("Event %q created successfully!", e.Title))
	return e, nil
}

// Update merges patch into the event with the given id. An unknown id is a
// silent no-op.
func (s *Store) Update(ctx context.Context, id string, patch model.EventPatch) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}

	updated := s.events[i]
	patch.Apply(&updated)
	if !model.ScheduleValid(updated.StartDate, updated.EndDate) {
		s.mu.Unlock()
		notify.Error(ctx, s.notify, "Event end date must not be before its start date")
		return fmt.Errorf("update event %s: %w", id, ErrInvalidSchedule)
	}
	s.events[i] = updated
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist.SaveEvents(ctx, snapshot)
	notify.Success(ctx, s.notify, "Event updated successfully!")
	return nil
}

// SetAggregate overwrites the derived feedback count and average of an event.
// It reports false, and persists nothing, if the event does not exist.
func (s *Store) SetAggregate(ctx context.Context, id string, count int, avg float64) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	model.EventPatch{FeedbackCount: &count, AverageRating: &avg}.Apply(&s.events[i])
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist.SaveEvents(ctx, snapshot)
	return true
}

// Delete removes the event and runs the registered delete hooks. An unknown
// id is a silent no-op.
func (s *Store) Delete(ctx context.Context, id string) {
	hooks, ok := s.remove(ctx, id)
	if !ok {
		return
	}
	for _, h := range hooks {
		h(ctx, id)
	}
	s.log.Debug("event deleted", "id", id)
	notify.Success(ctx, s.notify, "Event deleted successfully!")
}

// remove deletes and persists the event under writeMu and returns the hooks
// to run once the lock is released.
func (s *Store) remove(ctx context.Context, id string) ([]DeleteHook, bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, false
	}
	s.events = append(s.events[:i:i], s.events[i+1:]...)
	snapshot := s.snapshotLocked()
	hooks := append([]DeleteHook(nil), s.hooks...)
	s.mu.Unlock()

	s.persist.SaveEvents(ctx, snapshot)
	return hooks, true
}

func (s *Store) indexOf(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []model.Event {
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}
