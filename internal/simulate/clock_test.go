package simulate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestClockNotStarted(t *testing.T) {
	c := NewClock(nil, 0, nil)
	_, ok := c.Now()
	assert.False(t, ok)
	assert.False(t, c.Running())
}

func TestClockMonotonicAndConverges(t *testing.T) {
	epoch := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	c := NewClock(nil, 5*time.Millisecond, nil)
	wallStart := time.Now()
	c.Start(epoch)
	defer c.Stop()

	var last time.Time
	for i := 0; i < 10; i++ {
		time.Sleep(10 * time.Millisecond)
		now, ok := c.Now()
		require.True(t, ok)
		assert.False(t, now.Before(last), "simulated time went backwards")
		last = now
	}

	// At speed 1 the clock tracks wall time within one poll interval.
	wallElapsed := time.Since(wallStart)
	simElapsed := last.Sub(epoch)
	assert.Greater(t, simElapsed, 50*time.Millisecond)
	assert.LessOrEqual(t, simElapsed, wallElapsed+5*time.Millisecond)
}

func TestClockPauseFreezes(t *testing.T) {
	cfg := NewClockConfig()
	c := NewClock(cfg, 5*time.Millisecond, nil)
	c.Start(time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC))
	defer c.Stop()

	time.Sleep(30 * time.Millisecond)
	cfg.SetPaused(true)
	time.Sleep(15 * time.Millisecond) // let an in-flight tick land
	frozen, ok := c.Now()
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	still, ok := c.Now()
	require.True(t, ok)
	assert.Equal(t, frozen, still, "paused clock must not advance")
}

func TestClockSpeedMultiplier(t *testing.T) {
	cfg := NewClockConfig()
	require.NoError(t, cfg.SetSpeed(10))
	epoch := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	c := NewClock(cfg, 5*time.Millisecond, nil)
	wallStart := time.Now()
	c.Start(epoch)
	defer c.Stop()

	time.Sleep(60 * time.Millisecond)
	now, ok := c.Now()
	require.True(t, ok)
	simElapsed := now.Sub(epoch)
	wallElapsed := time.Since(wallStart)
	assert.Greater(t, simElapsed, wallElapsed, "at speed 10 simulated time outruns wall time")
}

func TestClockConfigRejectsBadSpeed(t *testing.T) {
	cfg := NewClockConfig()
	assert.Error(t, cfg.SetSpeed(0))
	assert.Error(t, cfg.SetSpeed(-2))
	assert.Equal(t, 1.0, cfg.Speed())
}

func TestClockStopIsIdempotent(t *testing.T) {
	c := NewClock(nil, 5*time.Millisecond, nil)
	c.Start(time.Now())
	c.Stop()
	c.Stop()
	_, ok := c.Now()
	assert.True(t, ok, "a stopped clock still reports its last time")
	assert.False(t, c.Running())
}

func TestClockStopRetainsLastTime(t *testing.T) {
	epoch := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	c := NewClock(nil, 5*time.Millisecond, nil)
	c.Start(epoch)
	time.Sleep(30 * time.Millisecond)
	c.Stop()

	frozen, ok := c.Now()
	require.True(t, ok)
	assert.False(t, frozen.Before(epoch))

	time.Sleep(30 * time.Millisecond)
	still, ok := c.Now()
	require.True(t, ok)
	assert.Equal(t, frozen, still, "stopped clock must not advance")
}

func TestClockRestartReplacesUpdater(t *testing.T) {
	// goleak's TestMain check fails this test if the first updater leaks.
	c := NewClock(nil, 5*time.Millisecond, nil)
	c.Start(time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC))
	c.Start(time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC))
	defer c.Stop()

	now, ok := c.Now()
	require.True(t, ok)
	assert.False(t, now.Before(time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC)))
}

func TestClockForceProgress(t *testing.T) {
	epoch := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	c := NewClock(nil, 5*time.Millisecond, nil)
	c.Start(epoch)
	defer c.Stop()

	before, ok := c.Now()
	require.True(t, ok)
	require.NoError(t, c.ForceProgress(30*time.Minute))

	after, ok := c.Now()
	require.True(t, ok)
	assert.False(t, after.Before(before.Add(30*time.Minute)), "jump must land at least 30m ahead")
	assert.True(t, after.Before(before.Add(31*time.Minute)), "jump overshot by more than a minute")
}

func TestClockForceProgressRejectsNonPositive(t *testing.T) {
	c := NewClock(nil, 5*time.Millisecond, nil)
	c.Start(time.Now())
	defer c.Stop()

	assert.Error(t, c.ForceProgress(0))
	assert.Error(t, c.ForceProgress(-time.Minute))
}

func TestClockForceProgressNeverStarted(t *testing.T) {
	c := NewClock(nil, 5*time.Millisecond, nil)
	assert.Error(t, c.ForceProgress(time.Minute))
}

func TestClockForceProgressAfterStop(t *testing.T) {
	epoch := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	c := NewClock(nil, 5*time.Millisecond, nil)
	c.Start(epoch)
	c.Stop()

	before, ok := c.Now()
	require.True(t, ok)
	require.NoError(t, c.ForceProgress(10*time.Minute))
	defer c.Stop()

	assert.True(t, c.Running(), "advancing a stopped clock restarts it")
	after, ok := c.Now()
	require.True(t, ok)
	assert.False(t, after.Before(before.Add(10*time.Minute)))
}
