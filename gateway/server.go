package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"syncpad/contract"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server upgrades HTTP requests into sessions. CORS and TLS termination are
// the front door's concern, so any origin is accepted here.
type Server struct {
	log                  *slog.Logger
	registry             contract.IRegistry
	clk                  clock.Clock
	throttleWindow       time.Duration
	connectionBufferSize int
	upgrader             websocket.Upgrader
}

func NewServer(log *slog.Logger, registry contract.IRegistry, clk clock.Clock,
	throttleWindow time.Duration, connectionBufferSize int) *Server {
	return &Server{
		log:                  log,
		registry:             registry,
		clk:                  clk,
		throttleWindow:       throttleWindow,
		connectionBufferSize: connectionBufferSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	session := newSession(uuid.NewString(), conn, s.registry,
		s.log, s.clk, s.throttleWindow, s.connectionBufferSize)
	session.run(r.Context())
}
