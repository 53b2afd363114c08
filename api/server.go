package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/wricardo/rpsls/game/engine"
	"github.com/wricardo/rpsls/game/protocol"
	"github.com/wricardo/rpsls/game/service"
	"github.com/wricardo/rpsls/transport/websocket"
)

// How long a request may wait on the game event loop
const requestTimeout = 5 * time.Second

// Server represents the local control API
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  zerolog.Logger
}

// StateResponse is the body of GET /api/state
type StateResponse struct {
	State   engine.State `json:"state"`
	Status  string       `json:"status"`
	Waiting bool         `json:"waiting"`
}

// PlayRequest is the body of POST /api/play
type PlayRequest struct {
	Play string `json:"play"`
}

// PlayResponse is returned for accepted and locked plays
type PlayResponse struct {
	Accepted bool          `json:"accepted"`
	Play     protocol.Play `json:"play,omitempty"`
	Message  string        `json:"message"`
	State    engine.State  `json:"state"`
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger zerolog.Logger) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Game state
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/session", s.handleGetSession).Methods("GET")
	api.HandleFunc("/plays", s.handleListPlays).Methods("GET")

	// Game operations
	api.HandleFunc("/play", s.handlePlay).Methods("POST")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// Observers
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("api request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// State Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	state, err := s.service.State(ctx)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, StateResponse{
		State:   state,
		Status:  state.Status(),
		Waiting: state.Waiting(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Info())
}

func (s *Server) handleListPlays(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"plays": protocol.Plays(),
	})
}

// Play Handler

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	play, err := protocol.ParsePlay(req.Play)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	accepted, err := s.service.Play(ctx, play)
	switch {
	case errors.Is(err, protocol.ErrInvalidPlay):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrNoSession):
		respondError(w, http.StatusConflict, "no game session yet; wait for the server to assign one")
		return
	case err != nil:
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	state, _ := s.service.State(ctx)

	if !accepted {
		respondJSON(w, http.StatusConflict, PlayResponse{
			Accepted: false,
			Message:  "a play is already outstanding; wait for the server",
			State:    state,
		})
		return
	}

	s.logger.Info().Str("play", play.String()).Int("round", state.Round).Msg("play submitted over api")

	respondJSON(w, http.StatusAccepted, PlayResponse{
		Accepted: true,
		Play:     play,
		Message:  "play sent",
		State:    state,
	})
}

// Health

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.service.Info()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"connection": info.Status,
	})
}
