package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"isoforge.dev/internal/protocol"
	"isoforge.dev/internal/session"
)

type Server struct {
	engine *session.Engine
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(e *session.Engine, logger *log.Logger) *Server {
	s := &Server{
		engine: e,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine: frames and results share the out channel.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				continue
			}
			s.engine.Inbox() <- session.CmdEnvelope{Cmd: cmd, Out: out}
		}

		// Cleanup.
		s.engine.Detach() <- struct{}{}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (chan []byte, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, false
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	// Frames queue here; the engine drops rather than blocks when full.
	out := make(chan []byte, 16)

	respCh := make(chan protocol.WelcomeMsg, 1)
	s.engine.Attach() <- session.AttachRequest{Out: out, Resp: respCh}
	welcome := <-respCh

	if err := writeJSON(conn, welcome); err != nil {
		return nil, false
	}
	s.log.Printf("client %q attached", hello.ClientName)
	return out, true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
