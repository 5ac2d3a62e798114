package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentcontest/massim-2022/internal/protocol"
	"github.com/agentcontest/massim-2022/internal/sim/world"
)

// outQueue is the per-agent send buffer; the world drops the oldest
// message when it is full.
const outQueue = 8

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
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

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		name, out := s.handshake(ctx, conn)
		if name == "" {
			return
		}
		s.log.Printf("agent %s joined from %s", name, r.RemoteAddr)

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
			act, ok := decodeAction(msg)
			if !ok {
				continue
			}
			select {
			case s.world.Inbox() <- world.ActionEnvelope{Agent: name, Act: act}:
			case <-s.world.Done():
			case <-ctx.Done():
			}
		}

		// Cleanup.
		select {
		case s.world.Leave() <- name:
		case <-time.After(time.Second):
		}
		s.log.Printf("agent %s left", name)
	}
}

// decodeAction accepts ACTION messages of the current protocol version.
// Everything else (BYE included) is ignored.
func decodeAction(msg []byte) (protocol.ActionMsg, bool) {
	var act protocol.ActionMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeAction {
		return act, false
	}
	if err := json.Unmarshal(msg, &act); err != nil {
		return act, false
	}
	if act.ProtocolVersion != protocol.Version || act.Action == "" {
		return act, false
	}
	return act, true
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (name string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return "", nil
	}

	out = make(chan []byte, outQueue)
	respCh := make(chan world.JoinResponse, 1)
	select {
	case s.world.Join() <- world.JoinRequest{Name: hello.AgentName, Out: out, Resp: respCh}:
	case <-ctx.Done():
		return "", nil
	}

	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		return "", nil
	}

	if !resp.OK {
		_ = writeJSON(conn, protocol.ErrorMsg{
			Type:            protocol.TypeError,
			ProtocolVersion: protocol.Version,
			Code:            resp.Code,
			Message:         "join rejected for " + hello.AgentName,
		})
		closeWith(conn, websocket.ClosePolicyViolation, resp.Code)
		return "", nil
	}

	// SIM_START goes out before any queued REQUEST_ACTION.
	if err := writeJSON(conn, resp.Start); err != nil {
		select {
		case s.world.Leave() <- hello.AgentName:
		case <-time.After(time.Second):
		}
		return "", nil
	}
	return hello.AgentName, out
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
