package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const noDataMessage = "Simulation not running or no data available"

func (s *Server) handleActivityData(w http.ResponseWriter, r *http.Request) {
	snap := s.sim.SnapshotData()
	if snap == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": noDataMessage})
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleActivityStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.sim.SnapshotData()
	if snap == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":         "no_data",
			"total_points":   0,
			"current_points": 0,
		})
		return
	}
	total := s.sim.TotalPoints()
	current := len(snap.Timestamps)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":           "running",
		"total_points":     total,
		"current_points":   current,
		"progress_percent": math.Round(float64(current)/float64(total)*1000) / 10,
	})
}

func (s *Server) handleActivityReset(w http.ResponseWriter, r *http.Request) {
	s.sim.Reset()
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "Simulation reset successfully"})
}

func (s *Server) handleActivityDistance(w http.ResponseWriter, r *http.Request) {
	distance, ok := s.sim.Distance()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": noDataMessage})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"distance_km": distance})
}

func (s *Server) handleActivityPace(w http.ResponseWriter, r *http.Request) {
	pace, ok := s.sim.Pace()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": noDataMessage})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pace_min_per_km": pace})
}

func (s *Server) handleActivityTime(w http.ResponseWriter, r *http.Request) {
	elapsed, ok := s.sim.Elapsed()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": noDataMessage})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"time": elapsed})
}

func (s *Server) handleActivityAddTime(w http.ResponseWriter, r *http.Request) {
	minutes, err := strconv.Atoi(r.PathValue("minutes"))
	if err != nil || minutes <= 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Minutes must be positive"})
		return
	}
	if err := s.sim.ForceProgress(minutes); err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Simulation progressed by %d minutes", minutes),
	})
}

// streamInterval is the cadence of distance frames on the live stream.
const streamInterval = 2 * time.Second

type streamFrame struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// handleDistanceStream pushes the cumulative distance every streamInterval
// as server-sent events until the client disconnects.
func (s *Server) handleDistanceStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sendFrame := func(frame streamFrame) bool {
		payload, err := json.Marshal(frame)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !sendFrame(streamFrame{
		Type:      "connection",
		Data:      map[string]any{"status": "connected"},
		Timestamp: time.Now().UnixMilli(),
	}) {
		return
	}

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			s.log.Debug("Distance stream closed", zap.Error(r.Context().Err()))
			return
		case <-ticker.C:
			distance, ok := s.sim.Distance()
			if !ok {
				continue
			}
			if !sendFrame(streamFrame{
				Type:      "data",
				Data:      map[string]any{"distance_km": distance},
				Timestamp: time.Now().UnixMilli(),
			}) {
				return
			}
		}
	}
}
