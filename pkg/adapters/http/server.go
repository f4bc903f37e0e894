// Package http exposes the agent host over a small REST surface:
// turn execution, state inspection and key deletion per session.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/loop"
)

// Service is the session-facing surface the server needs. The
// session.Host satisfies it.
type Service interface {
	RunTurn(ctx context.Context, sessionID, input string) (*loop.TurnResult, error)
	State(ctx context.Context, sessionID string) (map[string]*domain.StateEntry, error)
	DeleteKey(ctx context.Context, sessionID, key string) (bool, error)
	Sessions() []string
}

// Server routes session requests to a Service.
type Server struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates the HTTP handler for the host.
func NewHandler(service Service, logger *slog.Logger) http.Handler {
	s := &Server{service: service, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/sessions", s.listSessions)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/turns", s.runTurn)
		r.Get("/state", s.getState)
		r.Delete("/state/{key}", s.deleteKey)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type turnRequest struct {
	Input string `json:"input"`
}

type deleteResponse struct {
	Deleted bool   `json:"deleted"`
	Key     string `json:"key"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.service.Sessions()})
}

// runTurn handles POST /sessions/{sessionID}/turns.
func (s *Server) runTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body turnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("RunTurn: invalid request body", "err", err)
		return
	}
	if body.Input == "" {
		http.Error(w, "Field \"input\" is required", http.StatusBadRequest)
		return
	}

	result, err := s.service.RunTurn(r.Context(), sessionID, body.Input)
	if err != nil {
		// An aborted turn still carries a result worth returning: the
		// client sees the outcome and the failure trail.
		if errors.Is(err, domain.ErrTurnAborted) && result != nil {
			writeJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		http.Error(w, "Turn failed: "+err.Error(), http.StatusInternalServerError)
		s.logger.Error("RunTurn failed", "session_id", sessionID, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// getState handles GET /sessions/{sessionID}/state.
func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	state, err := s.service.State(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Failed to read state: "+err.Error(), http.StatusInternalServerError)
		s.logger.Error("State read failed", "session_id", sessionID, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

// deleteKey handles DELETE /sessions/{sessionID}/state/{key}.
func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	key := chi.URLParam(r, "key")

	existed, err := s.service.DeleteKey(r.Context(), sessionID, key)
	if err != nil {
		http.Error(w, "Failed to delete key: "+err.Error(), http.StatusInternalServerError)
		s.logger.Error("Key delete failed", "session_id", sessionID, "key", key, "err", err)
		return
	}
	if !existed {
		writeJSON(w, http.StatusNotFound, deleteResponse{Deleted: false, Key: key})
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true, Key: key})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
