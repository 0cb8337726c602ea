package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single write to a session's socket
	writeWait = 10 * time.Second

	// pongWait is how long a session may stay silent before it is
	// considered dead; pings go out at pingPeriod to keep it alive
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendQueueSize bounds the per-session outbound queue; a session that
	// falls this far behind is disconnected rather than allowed to stall
	// the room
	sendQueueSize = 32

	// MaxContentBytes bounds the content field of an inbound chat frame
	MaxContentBytes = 4096

	// maxFrameBytes bounds a whole inbound frame, content plus envelope
	maxFrameBytes = MaxContentBytes + 1024
)

// Session wraps one live websocket connection inside a room. The identity is
// bound at upgrade time from the authenticated request, never from frames.
type Session struct {
	ConnectionID string
	UserID       string
	SenderName   string
	JoinedAt     time.Time

	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession wraps an upgraded connection with a bounded send queue
func NewSession(conn *websocket.Conn, userID, senderName string) *Session {
	return &Session{
		ConnectionID: uuid.New().String(),
		UserID:       userID,
		SenderName:   senderName,
		JoinedAt:     time.Now().UTC(),
		conn:         conn,
		send:         make(chan []byte, sendQueueSize),
		done:         make(chan struct{}),
	}
}

// enqueue queues an outbound frame without blocking. A false return means
// the session cannot keep up and must be disconnected.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// Close signals both pumps to stop. Idempotent. The send channel is never
// closed so concurrent enqueues from the room stay safe.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Done is closed once the session is shutting down
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// WritePump owns all writes to the connection: it drains the send queue and
// keeps the connection alive with pings. Run it on its own goroutine.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			// flush queued frames first, so an error frame enqueued just
			// before Close still reaches the client
			for {
				select {
				case frame := <-s.send:
					s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
						return
					}
				default:
					s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = s.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// ReadPump forwards inbound frames to the room until the connection dies,
// then reports the disconnect. It runs on the upgraded request goroutine.
func (s *Session) ReadPump(r *Room) {
	defer r.Leave(s)

	s.conn.SetReadLimit(maxFrameBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		r.Inbound(s, data)
	}
}
