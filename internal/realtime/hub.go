// Package realtime maps authenticated persistent connections to list-scoped
// broadcast rooms and relays mutation events into them. The hub is an
// explicit instance wired at server start; it holds no package state.
package realtime

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Conn is the transport half of a session. The websocket handler passes the
// upgraded connection; tests pass a channel-backed fake.
type Conn interface {
	WriteJSON(value interface{}) error
	Close() error
}

// Event is the wire frame for every server→client message.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

const sessionSendBuffer = 32

// Session is one registered connection. All writes to the underlying
// connection go through the session's writer goroutine, so handler code and
// hub broadcasts never interleave writes.
type Session struct {
	ID     string
	UserID uint

	conn   Conn
	send   chan Event
	closed bool
}

// Hub routes events to rooms. Rooms exist while they have subscribers;
// nothing is persisted and a disconnected client misses events until it
// reconnects and re-fetches canonical state.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
	joins map[*Session]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Session]struct{}),
		joins: make(map[*Session]map[string]struct{}),
	}
}

// Register adopts an authenticated connection, starts its writer, and joins
// it to the principal's personal room for targeted delivery.
func (hub *Hub) Register(conn Conn, userID uint) *Session {
	session := &Session{
		ID:     uuid.New().String(),
		UserID: userID,
		conn:   conn,
		send:   make(chan Event, sessionSendBuffer),
	}

	hub.mu.Lock()
	hub.joins[session] = make(map[string]struct{})
	hub.joinLocked(session, userRoom(userID))
	hub.mu.Unlock()

	go session.writeLoop(hub)
	return session
}

// Unregister releases the session's room memberships and closes it. Safe to
// call more than once.
func (hub *Hub) Unregister(session *Session) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if session.closed {
		return
	}
	session.closed = true

	for room := range hub.joins[session] {
		hub.leaveLocked(session, room)
	}
	delete(hub.joins, session)
	close(session.send)
}

func (hub *Hub) JoinList(session *Session, listID uint) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if session.closed {
		return
	}
	hub.joinLocked(session, listRoom(listID))
}

func (hub *Hub) LeaveList(session *Session, listID uint) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.leaveLocked(session, listRoom(listID))
	delete(hub.joins[session], listRoom(listID))
}

// BroadcastToList delivers to every connection currently subscribed to the
// list's room, at most once per connection, best-effort.
func (hub *Hub) BroadcastToList(listID uint, event string, payload any) {
	hub.broadcast(listRoom(listID), Event{Event: event, Payload: payload})
}

// SendToUser delivers to every connection the principal currently holds,
// regardless of which list rooms those connections are viewing.
func (hub *Hub) SendToUser(userID uint, event string, payload any) {
	hub.broadcast(userRoom(userID), Event{Event: event, Payload: payload})
}

// SendTo queues an event on one session only, used for error replies to the
// originating connection.
func (hub *Hub) SendTo(session *Session, event string, payload any) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if session.closed {
		return
	}
	select {
	case session.send <- Event{Event: event, Payload: payload}:
	default:
	}
}

func (hub *Hub) broadcast(room string, event Event) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for session := range hub.rooms[room] {
		select {
		case session.send <- event:
		default:
			// Slow consumer: drop the event rather than block the room.
			log.Printf("realtime: dropping %s for session %s (send buffer full)", event.Event, session.ID)
		}
	}
}

func (hub *Hub) joinLocked(session *Session, room string) {
	subscribers, exists := hub.rooms[room]
	if !exists {
		subscribers = make(map[*Session]struct{})
		hub.rooms[room] = subscribers
	}
	subscribers[session] = struct{}{}
	hub.joins[session][room] = struct{}{}
}

func (hub *Hub) leaveLocked(session *Session, room string) {
	subscribers, exists := hub.rooms[room]
	if !exists {
		return
	}
	delete(subscribers, session)
	if len(subscribers) == 0 {
		delete(hub.rooms, room)
	}
}

func (session *Session) writeLoop(hub *Hub) {
	defer session.conn.Close()
	for event := range session.send {
		if err := session.conn.WriteJSON(event); err != nil {
			hub.Unregister(session)
			// Drain so the closing side never blocks on the buffer.
			for range session.send {
			}
			return
		}
	}
}

func listRoom(listID uint) string {
	return fmt.Sprintf("list:%d", listID)
}

func userRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}
