package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/soar/remopad/internal/hub"
)

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	controls    hub.Controls
	addr        string
	httpServer  *http.Server
	log         *zap.Logger
}

func New(h *hub.Hub, b *hub.Broadcaster, controls hub.Controls, addr string, log *zap.Logger) *Server {
	return &Server{
		hub:         h,
		broadcaster: b,
		controls:    controls,
		addr:        addr,
		log:         log.Named("http"),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("GET /ws", handleWebSocket(s.hub, s.broadcaster, s.controls, s.log))

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/rulesets", s.handleRulesets)
	mux.HandleFunc("POST /api/game/start", s.handleControl(s.controls.StartGame))
	mux.HandleFunc("POST /api/game/stop", s.handleControl(s.controls.StopGame))
	mux.HandleFunc("POST /api/wizard/skip", s.handleControl(s.controls.SkipSlot))
	mux.HandleFunc("POST /api/visibility", s.handleVisibility)
	return mux
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.log.Info("HTTP server listening", zap.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Shutting down HTTP server...")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
