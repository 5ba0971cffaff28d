package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"landguard/internal/claim"
	"landguard/internal/protocol"
	"landguard/internal/rules"
)

// Server is the websocket event feed: one connection per event source
// (typically a game-server bridge), EVENT/COMMAND in, VERDICT/RESULT out.
type Server struct {
	engine     *rules.Engine
	pistonMode claim.PistonMode
	log        *log.Logger

	// Per-connection message budget.
	limit rate.Limit
	burst int

	upgrader websocket.Upgrader
}

func NewServer(engine *rules.Engine, pistonMode claim.PistonMode, msgsPerSec float64, burst int, logger *log.Logger) *Server {
	if msgsPerSec <= 0 {
		msgsPerSec = 2000
	}
	if burst <= 0 {
		burst = 500
	}
	return &Server{
		engine:     engine,
		pistonMode: pistonMode,
		log:        logger,
		limit:      rate.Limit(msgsPerSec),
		burst:      burst,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type session struct {
	id    string
	actor *claim.Actor
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

		sess, out := s.handshake(ctx, conn)
		if sess == nil {
			return
		}
		s.logf("ws: session %s connected", sess.id)

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

		limiter := rate.NewLimiter(s.limit, s.burst)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if !limiter.Allow() {
				send(out, protocol.ErrorMsg{
					Type: protocol.TypeError,
					Code: protocol.ErrRateLimit,
				})
				continue
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				send(out, protocol.ErrorMsg{
					Type:    protocol.TypeError,
					Code:    protocol.ErrProtoBadRequest,
					Message: "malformed message",
				})
				continue
			}
			switch base.Type {
			case protocol.TypeEvent:
				s.handleEvent(ctx, sess, out, msg)
			case protocol.TypeCommand:
				s.handleCommand(ctx, sess, out, msg)
			default:
				send(out, protocol.ErrorMsg{
					Type:    protocol.TypeError,
					Code:    protocol.ErrProtoBadRequest,
					Message: fmt.Sprintf("unexpected message type %q", base.Type),
				})
			}
		}
		s.logf("ws: session %s disconnected", sess.id)
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (*session, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, nil
	}

	sess := &session{
		id: fmt.Sprintf("S%d", time.Now().UnixNano()),
	}
	if hello.ActorID != "" {
		id, err := uuid.Parse(hello.ActorID)
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad actor_id"), time.Now().Add(time.Second))
			return nil, nil
		}
		caps := claim.StaticCaps{}
		for _, node := range hello.Capabilities {
			caps[node] = true
		}
		sess.actor = &claim.Actor{ID: id, IgnoreClaims: hello.IgnoreClaims, Caps: caps}
	}

	count := 0
	if stats, err := s.engine.CurrentStats(ctx); err == nil {
		count = stats.Claims
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		PistonMode:      s.pistonMode.String(),
		ClaimCount:      count,
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return nil, nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return nil, nil
	}

	out := make(chan []byte, 256)
	return sess, out
}

func (s *Server) handleEvent(ctx context.Context, sess *session, out chan []byte, msg []byte) {
	var em protocol.EventMsg
	if err := json.Unmarshal(msg, &em); err != nil {
		send(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: "malformed EVENT"})
		return
	}
	ev, code, reason := eventFromMsg(em, sess.actor)
	if code != "" {
		send(out, protocol.VerdictMsg{
			Type: protocol.TypeVerdict, ProtocolVersion: protocol.Version,
			Ref: em.ID, Allowed: false, Reason: reason,
		})
		return
	}
	v, err := s.engine.Submit(ctx, ev)
	if err != nil {
		return
	}
	vm := protocol.VerdictMsg{
		Type: protocol.TypeVerdict, ProtocolVersion: protocol.Version,
		Ref: em.ID, Allowed: v.Allowed, Reason: v.Reason,
		PistonDestroyed: v.PistonDestroyed,
	}
	if ev.Kind == rules.EventExplosion {
		vm.Blocks = make([][3]int, 0, len(v.Blocks))
		for _, b := range v.Blocks {
			vm.Blocks = append(vm.Blocks, [3]int{b.X, b.Y, b.Z})
		}
	}
	send(out, vm)
}

func (s *Server) handleCommand(ctx context.Context, sess *session, out chan []byte, msg []byte) {
	var cm protocol.CommandMsg
	if err := json.Unmarshal(msg, &cm); err != nil {
		send(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: "malformed COMMAND"})
		return
	}
	cmd, code, reason := commandFromMsg(cm, sess.actor)
	if code != "" {
		send(out, protocol.ResultMsg{
			Type: protocol.TypeResult, ProtocolVersion: protocol.Version,
			Ref: cm.ID, OK: false, Code: code, Message: reason,
		})
		return
	}
	res, err := s.engine.Apply(ctx, cmd)
	if err != nil {
		return
	}
	send(out, protocol.ResultMsg{
		Type: protocol.TypeResult, ProtocolVersion: protocol.Version,
		Ref: cm.ID, OK: res.OK, Code: res.Code, Message: res.Message,
		ClaimID: res.ClaimID, ConflictID: res.ConflictID,
	})
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func send(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		// Backed-up writer; drop rather than block the reader.
	}
}
