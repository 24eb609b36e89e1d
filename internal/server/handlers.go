package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"stride/internal/perception"
)

type chatRequest struct {
	Message string               `json:"message"`
	History []perception.Message `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "missing message")
		return
	}

	reply, err := s.coach.ProcessMessage(r.Context(), user, req.Message, req.History)
	if err != nil {
		s.log.Warn("Chat exchange failed", zap.String("user", user), zap.Error(err))
		s.writeDomainError(w, err)
		return
	}

	if !reply.Changed {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"response":     reply.Response,
			"changes_made": false,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"response":     reply.Response,
		"program":      reply.Program.Sessions,
		"changes_made": true,
	})
}

func (s *Server) handleChatSuggestions(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "missing message")
		return
	}

	suggestions, err := s.coach.Suggest(r.Context(), user, req.Message, req.History)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"suggestions": suggestions,
	})
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from != "" || to != "" {
		sessions, err := s.store.FilterByDate(user, from, to)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "program": sessions})
		return
	}

	sessions, err := s.store.GetSorted(user, r.URL.Query().Get("order"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "program": sessions})
}

func (s *Server) handleInitProgram(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	program, generated, err := s.coach.InitializeProgram(r.Context(), user, nil)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"generated": generated,
		"program":   program.Sessions,
	})
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(user); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	profile, err := s.store.GetProfile(user)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "profile": profile})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var profile map[string]any
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	program, err := s.store.UpdateProfile(profile, user)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "profile": program.Profile})
}
