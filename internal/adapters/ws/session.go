package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evstream/cdc-service/internal/domain"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 32
)

// Session adapts one websocket connection to the stream.Session contract.
// Send never blocks the broadcaster: a full buffer means the client is too
// slow to keep up and the session reports itself dead so it gets evicted.
type Session struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(id string, conn *websocket.Conn) *Session {
	return &Session{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Send(payload []byte) error {
	select {
	case <-s.closed:
		return domain.ErrSessionClosed
	default:
	}
	select {
	case s.send <- payload:
		return nil
	default:
		return fmt.Errorf("%w: send buffer full", domain.ErrSessionClosed)
	}
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
	return nil
}

// writePump owns all writes on the connection: queued envelopes plus
// keepalive pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Close()
	for {
		select {
		case <-s.closed:
			return
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; clients only listen on this channel. Its
// job is noticing the disconnect.
func (s *Session) readPump(onClose func()) {
	defer func() {
		s.Close()
		onClose()
	}()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
