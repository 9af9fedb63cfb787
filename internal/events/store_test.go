package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedbackflow/internal/ids"
	"github.com/roach88/feedbackflow/internal/model"
	"github.com/roach88/feedbackflow/internal/notify"
)

// memPersister records every save.
type memPersister struct {
	mu     sync.Mutex
	stored []model.Event
	saves  int

	// firstSaveDelay stalls the next SaveEvents call once, outside mu.
	firstSaveDelay time.Duration
}

func (m *memPersister) LoadEvents(context.Context) []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Event{}, m.stored...)
}

func (m *memPersister) SaveEvents(_ context.Context, events []model.Event) {
	m.mu.Lock()
	delay := m.firstSaveDelay
	m.firstSaveDelay = 0
	m.mu.Unlock()
	time.Sleep(delay)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append([]model.Event{}, events...)
	m.saves++
}

func newTestStore(t *testing.T, seed ...model.Event) (*Store, *memPersister, *notify.Recorder) {
	t.Helper()
	p := &memPersister{stored: seed}
	rec := &notify.Recorder{}
	s := NewStore(p, Config{
		IDs:      ids.NewSequenceGenerator("event"),
		Notifier: rec,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, s.Hydrate(context.Background()))
	return s, p, rec
}

func conference() model.EventInput {
	return model.EventInput{
		Title:     "GopherCon",
		Status:    model.StatusUpcoming,
		StartDate: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC),
		Location:  "Chicago",
		Organizer: "GopherCon",
	}
}

func TestHydrate_LoadsPersisted(t *testing.T) {
	seed := []model.Event{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}}
	s, _, _ := newTestStore(t, seed...)

	assert.Equal(t, seed, s.List(context.Background()))
}

func TestHydrate_Delay(t *testing.T) {
	s := NewStore(&memPersister{}, Config{LoadDelay: 30 * time.Millisecond})

	start := time.Now()
	require.NoError(t, s.Hydrate(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestHydrate_Cancelled(t *testing.T) {
	p := &memPersister{stored: []model.Event{{ID: "1"}}}
	s := NewStore(p, Config{LoadDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Hydrate(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.List(context.Background()))
}

func TestCreate(t *testing.T) {
	s, p, rec := newTestStore(t)
	ctx := context.Background()

	e, err := s.Create(ctx, conference())
	require.NoError(t, err)

	assert.Equal(t, "event-1", e.ID)
	assert.Zero(t, e.FeedbackCount)
	assert.Zero(t, e.AverageRating)
	assert.Equal(t, "GopherCon", e.Title)

	got, ok := s.Get(ctx, "event-1")
	require.True(t, ok)
	assert.Equal(t, e, got)

	assert.Equal(t, []model.Event{e}, p.stored)
	last, _ := rec.Last()
	assert.Equal(t, notify.LevelSuccess, last.Level)
	assert.Equal(t, `Event "GopherCon" created successfully!`, last.Message)
}

func TestCreate_AppendsInOrder(t *testing.T) {
	s, _, _ := newTestStore(t, model.Event{ID: "seed"})
	ctx := context.Background()

	_, err := s.Create(ctx, conference())
	require.NoError(t, err)
	_, err = s.Create(ctx, conference())
	require.NoError(t, err)

	var got []string
	for _, e := range s.List(ctx) {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"seed", "event-1", "event-2"}, got)
}

func TestCreate_RejectsEndBeforeStart(t *testing.T) {
	s, p, rec := newTestStore(t)
	in := conference()
	in.EndDate = in.StartDate.Add(-time.Hour)

	_, err := s.Create(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSchedule))
	assert.Empty(t, s.List(context.Background()))
	assert.Zero(t, p.saves)

	last, _ := rec.Last()
	assert.Equal(t, notify.LevelError, last.Level)
}

func TestUpdate_MergesFields(t *testing.T) {
	s, p, rec := newTestStore(t)
	ctx := context.Background()
	e, err := s.Create(ctx, conference())
	require.NoError(t, err)

	loc := "Denver"
	status := model.StatusActive
	require.NoError(t, s.Update(ctx, e.ID, model.EventPatch{Location: &loc, Status: &status}))

	got, _ := s.Get(ctx, e.ID)
	assert.Equal(t, "Denver", got.Location)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, got, p.stored[0])

	last, _ := rec.Last()
	assert.Equal(t, "Event updated successfully!", last.Message)
}

func TestUpdate_AnyStatusTransition(t *testing.T) {
	s, _, _ := newTestStore(t, model.Event{ID: "1", Status: model.StatusArchived})
	ctx := context.Background()

	for _, st := range model.Statuses {
		st := st
		require.NoError(t, s.Update(ctx, "1", model.EventPatch{Status: &st}))
		got, _ := s.Get(ctx, "1")
		assert.Equal(t, st, got.Status)
	}
}

func TestUpdate_UnknownIDIsNoop(t *testing.T) {
	s, p, rec := newTestStore(t, model.Event{ID: "1", Title: "A"})
	title := "B"

	err := s.Update(context.Background(), "nonexistent", model.EventPatch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, []model.Event{{ID: "1", Title: "A"}}, s.List(context.Background()))
	assert.Zero(t, p.saves)
	assert.Empty(t, rec.Notices())
}

func TestUpdate_RejectsEndBeforeStart(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	e, err := s.Create(ctx, conference())
	require.NoError(t, err)

	end := e.StartDate.Add(-time.Minute)
	err = s.Update(ctx, e.ID, model.EventPatch{EndDate: &end})
	require.ErrorIs(t, err, ErrInvalidSchedule)

	got, _ := s.Get(ctx, e.ID)
	assert.Equal(t, e.EndDate, got.EndDate)
}

func TestSetAggregate(t *testing.T) {
	s, p, rec := newTestStore(t, model.Event{ID: "1"})
	ctx := context.Background()

	assert.True(t, s.SetAggregate(ctx, "1", 2, 3.5))
	got, _ := s.Get(ctx, "1")
	assert.Equal(t, 2, got.FeedbackCount)
	assert.Equal(t, 3.5, got.AverageRating)
	assert.Equal(t, 1, p.saves)
	assert.Empty(t, rec.Notices())

	assert.False(t, s.SetAggregate(ctx, "missing", 1, 1))
	assert.Equal(t, 1, p.saves)
}

func TestDelete_RunsHooks(t *testing.T) {
	s, p, _ := newTestStore(t, model.Event{ID: "1"}, model.Event{ID: "2"})
	ctx := context.Background()

	var cascaded []string
	s.OnDelete(func(_ context.Context, id string) { cascaded = append(cascaded, id) })

	s.Delete(ctx, "1")

	_, ok := s.Get(ctx, "1")
	assert.False(t, ok)
	assert.Equal(t, []model.Event{{ID: "2"}}, p.stored)
	assert.Equal(t, []string{"1"}, cascaded)
}

func TestDelete_UnknownIDIsNoop(t *testing.T) {
	s, p, rec := newTestStore(t, model.Event{ID: "1"})

	called := false
	s.OnDelete(func(context.Context, string) { called = true })

	assert.NotPanics(t, func() { s.Delete(context.Background(), "nonexistent") })
	assert.Len(t, s.List(context.Background()), 1)
	assert.Zero(t, p.saves)
	assert.False(t, called)
	assert.Empty(t, rec.Notices())
}

func TestList_ReturnsCopy(t *testing.T) {
	s, _, _ := newTestStore(t, model.Event{ID: "1", Title: "A"})
	ctx := context.Background()

	list := s.List(ctx)
	list[0].Title = "changed"

	got, _ := s.Get(ctx, "1")
	assert.Equal(t, "A", got.Title)
}

func TestCreate_ConcurrentSavesMatchMemory(t *testing.T) {
	s, p, _ := newTestStore(t)
	ctx := context.Background()
	p.firstSaveDelay = 20 * time.Millisecond

	const writers = 6
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, conference())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, s.List(ctx), writers)
	assert.ElementsMatch(t, s.List(ctx), p.LoadEvents(ctx))
	assert.Equal(t, writers, p.saves)
}
