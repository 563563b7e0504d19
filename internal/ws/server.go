package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests to WebSocket connections and hands each
// one to the gateway under a fresh connection id.
type Server struct {
	gw       *Gateway
	upgrader *websocket.Upgrader
	log      *zap.Logger
}

func NewServer(gw *Gateway, allowedOrigins []string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Server{
		gw:  gw,
		log: log,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// No configured origins means any origin is accepted.
				if len(origins) == 0 {
					return true
				}
				return origins[r.Header.Get("Origin")]
			},
		},
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	s.log.Info("connection opened", zap.String("connId", connID))

	conn := NewConnection(s.gw, ws, connID)
	if err := conn.Handle(r.Context()); err != nil {
		// Transport errors end this connection only; they are never
		// escalated past the logging hook.
		s.log.Warn("connection closed with error",
			zap.String("connId", connID), zap.Error(err))
		return
	}
	s.log.Info("connection closed", zap.String("connId", connID))
}
