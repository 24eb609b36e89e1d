package simulate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often a clock recomputes its derived time when
// no interval is given. Readers may observe up to one interval of drift.
const DefaultPollInterval = 100 * time.Millisecond

// Clock is a virtual time source. While running, one background updater
// recomputes
//
//	current = epoch + speed * (wallNow - realStart)
//
// at the poll interval, skipping ticks while the config is paused. Stop
// waits for the updater to exit, so no write can land after it returns.
type Clock struct {
	cfg  *ClockConfig
	poll time.Duration
	log  *zap.Logger

	mu        sync.Mutex
	running   bool
	started   bool
	epoch     time.Time
	realStart time.Time
	current   time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func NewClock(cfg *ClockConfig, poll time.Duration, log *zap.Logger) *Clock {
	if cfg == nil {
		cfg = NewClockConfig()
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Clock{cfg: cfg, poll: poll, log: log.Named("clock")}
}

// Start anchors the clock at epoch and launches the updater. A running
// clock is stopped first, so there is never more than one updater.
func (c *Clock) Start(epoch time.Time) {
	c.Stop()

	c.mu.Lock()
	c.epoch = epoch
	c.realStart = time.Now()
	c.current = epoch
	c.running = true
	c.started = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	stop, done := c.stopCh, c.doneCh
	c.mu.Unlock()

	go c.run(stop, done)
	c.log.Debug("Clock started", zap.Time("epoch", epoch))
}

func (c *Clock) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Clock) tick() {
	speed, paused := c.cfg.snapshot()
	if paused {
		return
	}
	c.mu.Lock()
	elapsed := time.Since(c.realStart)
	c.current = c.epoch.Add(time.Duration(float64(elapsed) * speed))
	c.mu.Unlock()
}

// Stop halts the updater and waits for it to exit. Stopping a stopped
// clock is a no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stop, done := c.stopCh, c.doneCh
	c.mu.Unlock()

	close(stop)
	<-done
	c.log.Debug("Clock stopped")
}

// Now returns the current simulated time. After Stop the last computed
// time keeps being reported; ok is false only for a clock that was
// never started.
func (c *Clock) Now() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return time.Time{}, false
	}
	return c.current, true
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ForceProgress jumps the simulated time forward by d, implemented as a
// stop and restart anchored at current+d.
func (c *Clock) ForceProgress(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("progress must be positive, got %s", d)
	}
	current, ok := c.Now()
	if !ok {
		return errors.New("clock was never started")
	}
	c.Stop()
	c.Start(current.Add(d))
	c.log.Debug("Clock advanced", zap.Duration("by", d))
	return nil
}
