package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"hydra/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 256
)

// Session owns the state of one client connection. State machine:
// connected (unauthenticated) -> authenticated -> disconnected. All inbound
// events for the connection run on its readPump goroutine; outbound pushes
// go through the buffered send channel drained by writePump.
type Session struct {
	id   string
	conn *websocket.Conn
	hub  *Hub

	// sendMu orders push against close so a racing publish can never hit
	// a closed channel.
	sendMu sync.Mutex
	closed bool
	send   chan []byte

	authed     atomic.Bool
	identity   string
	lastActive atomic.Int64 // unix milli

	closeOnce sync.Once
}

func newSession(id string, conn *websocket.Conn, hub *Hub) *Session {
	s := &Session{
		id:   id,
		conn: conn,
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
	s.touch()
	return s
}

func (s *Session) touch() { s.lastActive.Store(time.Now().UnixMilli()) }

func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.lastActive.Load()))
}

// push queues an outbound frame without blocking. A full buffer means the
// client is too slow; the frame is dropped for this recipient only.
func (s *Session) push(data []byte) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		log.Warn().Str("conn", s.id).Msg("send buffer full, dropping frame")
		return false
	}
}

// close tears the session down exactly once: drops subscriptions, leaves the
// hub and closes the transport. The closed flag is set before the registry
// drop so a subscribe racing teardown can observe it and undo itself.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		close(s.send)
		s.sendMu.Unlock()
		s.hub.detach(s)
		_ = s.conn.Close()
	})
}

func (s *Session) isClosed() bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.closed
}

func (s *Session) writePump() {
	defer func() { _ = s.conn.Close() }()

	for msg := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	// send channel closed: session is going away
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (s *Session) readPump() {
	defer s.close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Str("conn", s.id).Err(err).Msg("websocket read error")
			}
			return
		}
		s.handleMessage(data)
	}
}

// handleMessage processes one inbound frame. Malformed frames get an error
// event and never crash the handler for other sessions.
func (s *Session) handleMessage(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.push(marshalError("malformed message"))
		return
	}

	switch msg.Type {
	case "auth":
		s.handleAuth(msg.Token)
	case "subscribe":
		s.handleSubscribe(msg.Symbols)
	case "unsubscribe":
		s.handleUnsubscribe(msg.Symbols)
	case "heartbeat":
		if s.authed.Load() {
			s.touch()
		}
	default:
		s.push(marshalError("unknown message type"))
	}
}

func (s *Session) handleAuth(token string) {
	identity, err := s.hub.verifier.Verify(token)
	if err != nil {
		// Explicit error event before closure, then disconnect.
		s.push(marshalError("authentication failed"))
		log.Info().Str("conn", s.id).Msg("authentication failed, closing")
		go s.close()
		return
	}

	s.identity = identity
	s.authed.Store(true)
	s.touch()
	s.push(marshalAuthenticated(identity))
	log.Info().Str("conn", s.id).Str("identity", identity).Msg("client authenticated")
}

func (s *Session) handleSubscribe(symbols []string) {
	if !s.authed.Load() {
		s.push(marshalError("not authenticated"))
		return
	}
	s.touch()

	valid := s.hub.filterTracked(symbols)
	if len(valid) == 0 {
		s.push(marshalError("no valid symbols"))
		return
	}
	s.hub.registry.Subscribe(s.id, valid)
	if s.isClosed() {
		// Teardown dropped this session while the subscribe was in flight;
		// its registry drop may predate the entries just added.
		s.hub.registry.Drop(s.id)
		return
	}
	log.Debug().Str("conn", s.id).Strs("symbols", valid).Msg("subscribed")
}

func (s *Session) handleUnsubscribe(symbols []string) {
	if !s.authed.Load() {
		s.push(marshalError("not authenticated"))
		return
	}
	s.touch()

	normalized := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		normalized = append(normalized, domain.NormalizeSymbol(sym))
	}
	// Unsubscribing a never-subscribed symbol is a no-op, not an error.
	s.hub.registry.Unsubscribe(s.id, normalized)
	log.Debug().Str("conn", s.id).Strs("symbols", normalized).Msg("unsubscribed")
}
