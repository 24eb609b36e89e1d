package simulate

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// metersPerSecToPace converts a speed column (m/s) into pace (min/km):
// 1000 / 60 / speed.
const metersPerSecToPace = 16.666667

// Telemetry is an immutable, timestamp-ascending table of recorded run
// samples.
type Telemetry struct {
	Timestamps []time.Time
	Paces      []float64
	Elevations []float64
	HeartRates []int
}

func (t *Telemetry) Len() int { return len(t.Timestamps) }

type telemetryRow struct {
	ts        time.Time
	pace      float64
	elevation float64
	heartRate int
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// LoadTelemetry reads a CSV export with columns timestamp, elevation_meters,
// heart_rate_bpm and either pace_min_per_km or speed (m/s, converted to
// pace). Rows come back sorted by timestamp.
func LoadTelemetry(path string) (*Telemetry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading telemetry csv: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("telemetry csv %s has no header", path)
	}

	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	tsCol, ok := col["timestamp"]
	if !ok {
		return nil, fmt.Errorf("telemetry csv %s has no timestamp column", path)
	}
	paceCol, hasPace := col["pace_min_per_km"]
	speedCol, hasSpeed := col["speed"]
	if !hasPace && !hasSpeed {
		return nil, fmt.Errorf("telemetry csv %s has neither pace_min_per_km nor speed", path)
	}
	elevCol, hasElev := col["elevation_meters"]
	hrCol, hasHR := col["heart_rate_bpm"]

	rows := make([]telemetryRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		ts, err := parseTimestamp(rec[tsCol])
		if err != nil {
			return nil, fmt.Errorf("telemetry row %d: %w", i+1, err)
		}
		row := telemetryRow{ts: ts}

		if hasPace {
			row.pace, err = strconv.ParseFloat(rec[paceCol], 64)
		} else {
			var speed float64
			speed, err = strconv.ParseFloat(rec[speedCol], 64)
			if err == nil {
				if speed <= 0 {
					err = fmt.Errorf("non-positive speed %v", speed)
				} else {
					row.pace = metersPerSecToPace / speed
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("telemetry row %d: %w", i+1, err)
		}

		if hasElev {
			if row.elevation, err = strconv.ParseFloat(rec[elevCol], 64); err != nil {
				return nil, fmt.Errorf("telemetry row %d: %w", i+1, err)
			}
		}
		if hasHR {
			hr, err := strconv.ParseFloat(rec[hrCol], 64)
			if err != nil {
				return nil, fmt.Errorf("telemetry row %d: %w", i+1, err)
			}
			row.heartRate = int(hr + 0.5)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	t := &Telemetry{
		Timestamps: make([]time.Time, len(rows)),
		Paces:      make([]float64, len(rows)),
		Elevations: make([]float64, len(rows)),
		HeartRates: make([]int, len(rows)),
	}
	for i, row := range rows {
		t.Timestamps[i] = row.ts
		t.Paces[i] = row.pace
		t.Elevations[i] = row.elevation
		t.HeartRates[i] = row.heartRate
	}
	return t, nil
}
