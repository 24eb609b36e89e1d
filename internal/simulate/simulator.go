package simulate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Snapshot is the prefix of the telemetry table covered by the simulated
// time so far, as parallel sequences in chart order.
type Snapshot struct {
	Timestamps []string  `json:"timestamp"`
	Paces      []float64 `json:"pace_min_per_km"`
	Elevations []float64 `json:"elevation_meters"`
	HeartRates []int     `json:"heart_rate_bpm"`
}

const snapshotTimeLayout = "2006-01-02T15:04:05"

// Simulator binds one Clock to an immutable telemetry table and answers
// point-in-time queries against the prefix of rows the clock has reached.
type Simulator struct {
	table *Telemetry
	clock *Clock
	log   *zap.Logger
}

func NewSimulator(table *Telemetry, clock *Clock, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{table: table, clock: clock, log: log.Named("simulator")}
}

// Start anchors the clock at the first telemetry timestamp. An empty table
// leaves the clock stopped.
func (s *Simulator) Start() {
	if s.table.Len() == 0 {
		s.log.Warn("No telemetry loaded, simulation not started")
		return
	}
	s.clock.Start(s.table.Timestamps[0])
	s.log.Info("Simulation started",
		zap.Time("epoch", s.table.Timestamps[0]),
		zap.Int("rows", s.table.Len()))
}

func (s *Simulator) Stop() {
	s.clock.Stop()
}

// TotalPoints is the size of the loaded telemetry table.
func (s *Simulator) TotalPoints() int {
	return s.table.Len()
}

// prefixEnd returns the count of rows with timestamp at or before the
// current simulated time, or 0 when the clock never started, the table
// is empty, or the clock has not reached the first row.
func (s *Simulator) prefixEnd() int {
	now, ok := s.clock.Now()
	if !ok || s.table.Len() == 0 {
		return 0
	}
	// First index strictly after now; everything before it is the prefix.
	return sort.Search(s.table.Len(), func(i int) bool {
		return s.table.Timestamps[i].After(now)
	})
}

// SnapshotData returns the covered prefix, or nil when there is no data
// yet.
func (s *Simulator) SnapshotData() *Snapshot {
	end := s.prefixEnd()
	if end == 0 {
		return nil
	}
	snap := &Snapshot{
		Timestamps: make([]string, end),
		Paces:      make([]float64, end),
		Elevations: make([]float64, end),
		HeartRates: make([]int, end),
	}
	for i := 0; i < end; i++ {
		snap.Timestamps[i] = s.table.Timestamps[i].Format(snapshotTimeLayout)
		snap.Paces[i] = math.Round(s.table.Paces[i]*100) / 100
		snap.Elevations[i] = math.Round(s.table.Elevations[i]*10) / 10
		snap.HeartRates[i] = s.table.HeartRates[i]
	}
	return snap
}

// Distance integrates speed over the per-row time deltas of the covered
// prefix and returns cumulative kilometers. The first row contributes
// nothing since no time has elapsed at that point.
func (s *Simulator) Distance() (float64, bool) {
	end := s.prefixEnd()
	if end == 0 {
		return 0, false
	}
	var km float64
	for i := 1; i < end; i++ {
		deltaHours := s.table.Timestamps[i].Sub(s.table.Timestamps[i-1]).Hours()
		km += (60 / s.table.Paces[i]) * deltaHours
	}
	return km, true
}

// Pace returns the pace of the latest covered row in min/km.
func (s *Simulator) Pace() (float64, bool) {
	end := s.prefixEnd()
	if end == 0 {
		return 0, false
	}
	return s.table.Paces[end-1], true
}

// Elapsed returns the simulated time since the first row as HH:MM:SS.
func (s *Simulator) Elapsed() (string, bool) {
	now, ok := s.clock.Now()
	if !ok || s.table.Len() == 0 {
		return "", false
	}
	total := int(now.Sub(s.table.Timestamps[0]).Seconds())
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60), true
}

// Reset restarts the clock at the first telemetry timestamp, discarding
// all progress.
func (s *Simulator) Reset() {
	s.clock.Stop()
	s.Start()
}

// ForceProgress advances the simulation by the given number of minutes.
func (s *Simulator) ForceProgress(minutes int) error {
	if s.table.Len() == 0 {
		return errors.New("no telemetry loaded")
	}
	return s.clock.ForceProgress(time.Duration(minutes) * time.Minute)
}
