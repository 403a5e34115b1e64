package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)

	require.NoError(t, f.Sleep(context.Background(), time.Second))
	require.NoError(t, f.Sleep(context.Background(), 0))
	f.Advance(time.Minute)

	assert.Equal(t, start.Add(61*time.Second), f.Now())
	assert.Equal(t, []time.Duration{time.Second}, f.Sleeps())
}

func TestSystemSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, System{}.Sleep(ctx, time.Hour), context.Canceled)
}
