// Package ws binds live WebSocket connections to the world: one registration
// per socket, a writer goroutine draining the world's outbox, and a reader
// loop feeding client events into the world inbox.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"foxhollow.gg/internal/protocol"
	"foxhollow.gg/internal/world"
)

const (
	writeWait  = 5 * time.Second
	readWait   = 60 * time.Second
	outboxSize = 64
)

type Server struct {
	world *world.World
	log   *zap.SugaredLogger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *zap.SugaredLogger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, outboxSize)
		respCh := make(chan world.ConnectResponse, 1)
		s.world.Connect() <- world.ConnectRequest{Out: out, Resp: respCh}
		resp := <-respCh
		connID := resp.ID

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		conn.SetReadLimit(32 * 1024)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readWait))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if !protocol.IsClientEvent(base.Type) {
				continue
			}
			s.world.Inbox() <- world.EventEnvelope{ConnID: connID, Type: base.Type, Data: msg}
		}

		// Cleanup. Events already in flight for this id become no-ops.
		s.world.Leave() <- connID
	}
}
