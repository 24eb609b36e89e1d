// Package simulate replays recorded run telemetry against a virtual clock
// that maps real elapsed time to simulated elapsed time.
package simulate

import (
	"fmt"
	"sync"
)

// ClockConfig carries the mutable speed and pause controls shared with a
// running clock. Setters are safe to call from any goroutine; a change
// takes effect on the clock's next tick.
type ClockConfig struct {
	mu     sync.Mutex
	speed  float64
	paused bool
}

func NewClockConfig() *ClockConfig {
	return &ClockConfig{speed: 1.0}
}

// SetSpeed changes the simulated-to-real time ratio. The multiplier must be
// positive.
func (c *ClockConfig) SetSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("speed multiplier must be positive, got %v", speed)
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
	return nil
}

func (c *ClockConfig) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

func (c *ClockConfig) SetPaused(paused bool) {
	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()
}

func (c *ClockConfig) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// snapshot reads both controls under one lock so a tick sees a consistent
// pair.
func (c *ClockConfig) snapshot() (speed float64, paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed, c.paused
}
