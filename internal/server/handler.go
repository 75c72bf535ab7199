package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/soar/remopad/internal/hub"
	"github.com/soar/remopad/internal/ruleset"
	"github.com/soar/remopad/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local use
	},
}

func handleWebSocket(h *hub.Hub, b *hub.Broadcaster, controls hub.Controls, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}

		client := hub.NewClient(h, conn)
		h.Register(client)

		// Send current state to the new client
		b.SendInitialState(r.Context(), client)

		go client.WritePump()
		go client.ReadPumpWithHandler(controls)
	}
}

type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps session and ruleset errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *ruleset.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid game configuration", Problems: verr.Problems})
	case errors.Is(err, session.ErrNoController),
		errors.Is(err, session.ErrMappingInProgress),
		errors.Is(err, session.ErrMappingUnknown),
		errors.Is(err, session.ErrGameRunning),
		errors.Is(err, session.ErrNoWizard):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.controls.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRulesets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ruleset.Kinds())
}

// handleControl runs a session command and answers with the new status.
func (s *Server) handleControl(fn func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			s.log.Info("Request rejected", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, err)
			return
		}
		s.handleStatus(w, r)
	}
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Visible *bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Visible == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `body must be {"visible": bool}`})
		return
	}
	if err := s.controls.SetVisible(r.Context(), *body.Visible); err != nil {
		writeError(w, err)
		return
	}
	s.handleStatus(w, r)
}
