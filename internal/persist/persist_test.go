package persist

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedbackflow/internal/model"
	"github.com/roach88/feedbackflow/internal/store"
)

func newTestAdapter(t *testing.T, opts ...Option) (*Adapter, *store.Store) {
	t.Helper()
	kv, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(kv, opts...), kv
}

func sampleEvents() []model.Event {
	return []model.Event{
		{
			ID:        "e1",
			Title:     "First",
			Status:    model.StatusActive,
			StartDate: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC),
		},
		{
			ID:            "e2",
			Title:         "Second",
			Status:        model.StatusArchived,
			ImageURL:      "https://example.com/x.png",
			FeedbackCount: 2,
			AverageRating: 3.5,
		},
	}
}

func TestLoad_AbsentReturnsFixtures(t *testing.T) {
	a, _ := newTestAdapter(t)

	events := a.LoadEvents(context.Background())
	assert.Equal(t, MustFixtures().Events, events)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	events := sampleEvents()
	a.SaveEvents(ctx, events)
	assert.Equal(t, events, a.LoadEvents(ctx))

	user := "u1"
	feedback := []model.Feedback{
		{ID: "f2", EventID: "e1", UserID: &user, UserName: "Ann", Rating: 5, Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "f1", EventID: "e2", UserName: "Anonymous", Rating: 1, IsAnonymous: true},
	}
	a.SaveFeedback(ctx, feedback)
	assert.Equal(t, feedback, a.LoadFeedback(ctx))
}

func TestSaveLoad_EmptyCollectionIsNotFallback(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	a.SaveEvents(ctx, nil)

	events := a.LoadEvents(ctx)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	buf := &bytes.Buffer{}
	a, kv := newTestAdapter(t, WithLogger(slog.New(slog.NewTextHandler(buf, nil))))
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, KeyEvents, "not json at all"))

	var events []model.Event
	assert.NotPanics(t, func() { events = a.LoadEvents(ctx) })
	assert.Equal(t, MustFixtures().Events, events)
	assert.Contains(t, buf.String(), "malformed collection")
}

func TestLoad_FallbackIsACopy(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	first := a.LoadEvents(ctx)
	first[0].Title = "mutated"

	assert.NotEqual(t, "mutated", a.LoadEvents(ctx)[0].Title)
}

func TestInitialize_SeedsOnce(t *testing.T) {
	a, kv := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx))
	done, err := a.Initialized(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	eventsOnce, _, _ := kv.Get(ctx, KeyEvents)
	feedbackOnce, _, _ := kv.Get(ctx, KeyFeedback)

	require.NoError(t, a.Initialize(ctx))

	eventsTwice, _, _ := kv.Get(ctx, KeyEvents)
	feedbackTwice, _, _ := kv.Get(ctx, KeyFeedback)
	assert.Equal(t, eventsOnce, eventsTwice)
	assert.Equal(t, feedbackOnce, feedbackTwice)
	assert.Len(t, a.LoadEvents(ctx), 6)
	assert.Len(t, a.LoadFeedback(ctx), 6)
}

func TestInitialize_EmptiedCollectionStaysEmpty(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx))
	a.SaveFeedback(ctx, []model.Feedback{})

	require.NoError(t, a.Initialize(ctx))
	assert.Empty(t, a.LoadFeedback(ctx))
}

func TestInitialize_KeepsExistingCollections(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	events := sampleEvents()
	a.SaveEvents(ctx, events)

	require.NoError(t, a.Initialize(ctx))

	assert.Equal(t, events, a.LoadEvents(ctx))
	assert.Len(t, a.LoadFeedback(ctx), 6)
}

func TestReset(t *testing.T) {
	a, kv := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx))
	require.NoError(t, a.Reset(ctx))

	for _, key := range []string{KeyEvents, KeyFeedback, KeyInitialized} {
		ok, err := kv.Has(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestRestore(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	doc := Document{Events: sampleEvents(), Feedback: []model.Feedback{}}
	require.NoError(t, a.Restore(ctx, doc))

	assert.Equal(t, doc, a.Snapshot(ctx))

	// Restored data is not overwritten by fixtures.
	require.NoError(t, a.Initialize(ctx))
	assert.Equal(t, doc.Events, a.LoadEvents(ctx))
}

func TestRestore_RejectsInvalid(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	doc := Document{Feedback: []model.Feedback{{ID: "f1", EventID: "e1", Rating: 9}}}
	err := a.Restore(ctx, doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}

// failingMedium fails every operation.
type failingMedium struct{}

var errMedium = errors.New("disk on fire")

func (failingMedium) Get(context.Context, string) (string, bool, error) { return "", false, errMedium }
func (failingMedium) Put(context.Context, string, string) error         { return errMedium }
func (failingMedium) Has(context.Context, string) (bool, error)         { return false, errMedium }
func (failingMedium) Delete(context.Context, string) error              { return errMedium }

func TestSoftFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	a := New(failingMedium{}, WithLogger(slog.New(slog.NewTextHandler(buf, nil))))
	ctx := context.Background()

	assert.NotPanics(t, func() { a.SaveEvents(ctx, sampleEvents()) })
	assert.Contains(t, buf.String(), "save collection")

	assert.Equal(t, MustFixtures().Feedback, a.LoadFeedback(ctx))

	err := a.Initialize(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errMedium))
}
