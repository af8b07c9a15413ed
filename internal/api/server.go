// Package api provides the HTTP server for the cookie engine: JSON
// endpoints for state, actions and the event journal, the WebSocket
// upgrade and the metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/infra/storage"
	"github.com/MRamiBalles/CookieClicker/internal/network"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/metrics"
	"github.com/MRamiBalles/CookieClicker/internal/presentation"
)

// Version is reported by /health.
var Version = "dev"

// RecapSource rebuilds a session from the journal.
type RecapSource interface {
	Recap(ctx context.Context, sessionID string) (*storage.Recap, error)
}

// Server is the HTTP API server.
type Server struct {
	game      network.ActionHandler
	eventLog  *events.EventLog
	sessionID string
	logger    *logger.Logger

	hub      *network.Hub              // nil disables /ws
	metrics  *metrics.Collector        // nil disables /metrics
	recaps   RecapSource               // nil disables recaps
	sessions storage.SessionRepository // nil disables session listing
}

// NewServer creates a new API server.
func NewServer(game network.ActionHandler, eventLog *events.EventLog, sessionID string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{game: game, eventLog: eventLog, sessionID: sessionID, logger: log}
}

// SetHub mounts the WebSocket endpoint.
func (s *Server) SetHub(h *network.Hub) { s.hub = h }

// SetMetrics mounts /metrics and /metrics/json.
func (s *Server) SetMetrics(c *metrics.Collector) { s.metrics = c }

// SetJournal enables the session endpoints.
func (s *Server) SetJournal(recaps RecapSource, sessions storage.SessionRepository) {
	s.recaps = recaps
	s.sessions = sessions
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":     "ok",
			"version":    Version,
			"session_id": s.sessionID,
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Route("/api", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Post("/click", s.handleAction(network.ActionClick))
			r.Post("/upgrade", s.handleAction(network.ActionUpgrade))
			r.Post("/auto", s.handleAction(network.ActionAuto))
			r.Get("/events", s.handleEvents)
			r.Get("/sessions", s.handleSessions)
			r.Get("/sessions/{id}/recap", s.handleRecap)
		})

		if s.metrics != nil {
			r.Handle("/metrics", s.metrics.Handler())
			r.Get("/metrics/json", s.metrics.JSONHandler())
		}
	})

	// No timeout: the connection outlives the handler.
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeWS)
	}

	return r
}

// StateResponse is returned by /api/state and the action endpoints.
type StateResponse struct {
	SessionID string                `json:"session_id"`
	View      presentation.View     `json:"view"`
	Result    *network.ActionResult `json:"result,omitempty"`
	Snapshot  progression.Snapshot  `json:"snapshot"`
}

func (s *Server) stateResponse(snap progression.Snapshot) StateResponse {
	return StateResponse{
		SessionID: s.sessionID,
		View:      presentation.Render(snap),
		Snapshot:  snap,
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse(s.game.Snapshot()))
}

func (s *Server) handleAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, snap, err := network.Apply(s.game, action)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp := s.stateResponse(snap)
		resp.Result = &res
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.sessions.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Errorf("Failed to list sessions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if list == nil {
		list = []storage.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": list})
}

func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	if s.recaps == nil {
		writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	id := chi.URLParam(r, "id")
	recap, err := s.recaps.Recap(r.Context(), id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "recap timed out")
			return
		}
		s.logger.Errorf("Failed to build recap for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to build recap")
		return
	}
	if recap == nil {
		writeError(w, http.StatusNotFound, "unknown session "+id)
		return
	}
	writeJSON(w, http.StatusOK, recap)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
