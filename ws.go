package fleettracker

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theoremus-urban-solutions/fleet-tracker/fleet"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	sessionSendBuffer = 32
	writeWait         = 10 * time.Second
)

var errSessionGone = errors.New("session closed or backed up")

// session is one live observer connection. It moves through connecting (snapshot
// delivery), live (subscribed to the dispatcher) and closed; a resync request
// re-runs the snapshot step without leaving the live subscription.
type session struct {
	conn   *websocket.Conn
	send   chan fleet.Event
	mu     sync.Mutex
	closed bool
}

func newSession(conn *websocket.Conn) *session {
	return &session{conn: conn, send: make(chan fleet.Event, sessionSendBuffer)}
}

// Deliver queues ev for the writer goroutine. It never blocks: a session whose
// buffer is full is marked closed and reported to the dispatcher, which drops
// it. Failure here is isolated to this session.
func (s *session) Deliver(ev fleet.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionGone
	}
	select {
	case s.send <- ev:
		return nil
	default:
		s.closed = true
		close(s.send)
		return errSessionGone
	}
}

func (s *session) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
	_ = s.conn.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	sess := newSession(conn)
	go sess.writePump()

	// Snapshot delivery and dispatcher registration happen as one step inside
	// the tracker, so no mutation can be missed or duplicated in between.
	handle, err := s.tracker.Subscribe(sess)
	if err != nil {
		sess.close()
		return
	}
	sess.readPump(s.tracker, handle)
}

// readPump consumes client messages until disconnect. The only recognized
// message is requestPositions, which triggers a fresh snapshot.
func (s *session) readPump(tracker *fleet.Tracker, handle fleet.Handle) {
	defer func() {
		tracker.Unsubscribe(handle)
		s.close()
	}()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == fleet.EventRequestPositions {
			if err := tracker.Resync(s); err != nil {
				return
			}
		}
	}
}

// writePump drains the send channel onto the wire. It exits when the channel
// closes or a write fails; the read side notices the closed conn and tears
// the session down.
func (s *session) writePump() {
	for ev := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteJSON(ev); err != nil {
			_ = s.conn.Close()
			return
		}
	}
	_ = s.conn.Close()
}
