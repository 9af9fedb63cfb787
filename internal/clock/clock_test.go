package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem_UTCMillis(t *testing.T) {
	now := System{}.Now()

	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%int(time.Millisecond))
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestFunc(t *testing.T) {
	fixed := time.Date(2023, 11, 10, 15, 23, 0, 0, time.UTC)
	c := Func(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}

func TestSleep_Elapses(t *testing.T) {
	start := time.Now()
	err := Sleep(context.Background(), 20*time.Millisecond)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSleep_ZeroReturnsImmediately(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
