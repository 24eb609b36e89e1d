// Package server exposes the coaching and activity subsystems over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stride/internal/coach"
	"stride/internal/config"
	"stride/internal/plan"
	"stride/internal/simulate"
	"stride/internal/store"
)

type Server struct {
	cfg   *config.Config
	log   *zap.Logger
	coach *coach.Coach
	store *store.ProgramStore
	sim   *simulate.Simulator

	listener net.Listener
	server   *http.Server
}

func New(cfg *config.Config, c *coach.Coach, s *store.ProgramStore, sim *simulate.Simulator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &Server{
		cfg:   cfg,
		log:   log.Named("server"),
		coach: c,
		store: s,
		sim:   sim,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", srv.handleChat)
	mux.HandleFunc("POST /api/chat-suggestions", srv.handleChatSuggestions)
	mux.HandleFunc("GET /api/program", srv.handleGetProgram)
	mux.HandleFunc("GET /api/init-program", srv.handleInitProgram)
	mux.HandleFunc("DELETE /api/program", srv.handleDeleteProgram)
	mux.HandleFunc("GET /api/profile", srv.handleGetProfile)
	mux.HandleFunc("POST /api/profile", srv.handleUpdateProfile)

	mux.HandleFunc("GET /api/activity/data", srv.handleActivityData)
	mux.HandleFunc("GET /api/activity/status", srv.handleActivityStatus)
	mux.HandleFunc("GET /api/activity/reset", srv.handleActivityReset)
	mux.HandleFunc("GET /api/activity/distance", srv.handleActivityDistance)
	mux.HandleFunc("GET /api/activity/pace", srv.handleActivityPace)
	mux.HandleFunc("GET /api/activity/time", srv.handleActivityTime)
	mux.HandleFunc("GET /api/activity/add_time/{minutes}", srv.handleActivityAddTime)
	mux.HandleFunc("GET /api/stream/distance", srv.handleDistanceStream)

	mux.HandleFunc("GET /api/calendar/{token}/calendar.ics", srv.handleCalendar)
	mux.HandleFunc("GET /api/calendar-url", srv.handleCalendarURL)

	srv.server = &http.Server{
		Handler:           srv.withRequestLog(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured budget. The activity simulation starts with the listener and
// stops with it.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.ListenAddr, err)
	}
	s.listener = listener
	s.sim.Start()
	defer s.sim.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	s.log.Info("Server listening", zap.String("address", listener.Addr().String()))
	return g.Wait()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// writeDomainError maps domain failures to status codes: rejected input is
// the caller's fault, everything else is ours.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr *plan.ValidationError
	var overlap *plan.OverlapError
	switch {
	case errors.As(err, &verr), errors.As(err, &overlap):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
