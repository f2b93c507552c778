package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"craftworks.ai/internal/protocol"
	"craftworks.ai/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[ws] ", log.LstdFlags)
	}
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
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

		actorID, out := s.handshake(conn)
		if actorID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
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
			req, ok := decodeRequest(msg)
			if !ok {
				continue
			}
			req.ActorID = actorID
			select {
			case s.world.Inbox() <- req:
			case <-ctx.Done():
			}
		}

		// Cleanup.
		s.world.Leave() <- actorID
	}
}

// decodeRequest routes one client frame into a world request. Frames with an
// unknown type or a mismatched protocol version are ignored.
func decodeRequest(msg []byte) (world.Request, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.ProtocolVersion != protocol.Version {
		return world.Request{}, false
	}
	switch base.Type {
	case protocol.TypeCraft:
		var m protocol.CraftMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Request{}, false
		}
		return world.Request{Craft: &m}, true
	case protocol.TypeStation:
		var m protocol.StationMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Request{}, false
		}
		return world.Request{Station: &m}, true
	case protocol.TypePreview:
		var m protocol.PreviewMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Request{}, false
		}
		return world.Request{Preview: &m}, true
	default:
		return world.Request{}, false
	}
}

func (s *Server) handshake(conn *websocket.Conn) (actorID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.closeWith(conn, "expected HELLO")
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.closeWith(conn, "bad HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		s.closeWith(conn, "bad protocol_version")
		return "", nil
	}

	maxQ := hello.MaxQueue
	if maxQ < 8 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	resume := ""
	if hello.Auth != nil {
		resume = strings.TrimSpace(hello.Auth.ResumeActorID)
	}

	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		Name:          hello.ActorName,
		ResumeActorID: resume,
		Out:           out,
		Resp:          respCh,
	}
	resp := <-respCh
	resp.Welcome.SessionID = uuid.NewString()

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.Welcome.ActorID
		return "", nil
	}
	s.log.Printf("actor %s joined (resume=%t)", resp.Welcome.ActorID, resume == resp.Welcome.ActorID)
	return resp.Welcome.ActorID, out
}

func (s *Server) closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
