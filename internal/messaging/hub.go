package messaging

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InboxUpdate is pushed to a subscriber whenever its inbox changes.
type InboxUpdate struct {
	Unread   int              `json:"unread"`
	Messages []models.Message `json:"messages"`
}

// Sink writes one update to a subscriber.
type Sink interface {
	WriteJSON(v interface{}) error
	Close() error
}

type subscriber struct {
	user        models.User
	sink        Sink
	mu          sync.Mutex
	fingerprint string
}

// Hub fans poller snapshots out to connected clients.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers sink for user. The returned func unregisters it.
func (h *Hub) Subscribe(user models.User, sink Sink) func() {
	return h.add(&subscriber{user: user, sink: sink})
}

func (h *Hub) add(s *subscriber) func() {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish pushes each subscriber its inbox if it differs from the last push.
// Subscribers whose write fails are dropped.
func (h *Hub) Publish(msgs []models.Message) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		inbox := Inbox(s.user, msgs)
		update := InboxUpdate{Unread: UnreadCount(inbox), Messages: inbox}
		fp := fingerprint(update)

		s.mu.Lock()
		if fp == s.fingerprint {
			s.mu.Unlock()
			continue
		}
		err := s.sink.WriteJSON(update)
		if err == nil {
			s.fingerprint = fp
		}
		s.mu.Unlock()

		if err != nil {
			logger.WithUser(s.user.ID, "message_hub").WithError(err).Debug("Dropping websocket subscriber")
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			s.sink.Close()
		}
	}
}

func fingerprint(u InboxUpdate) string {
	if len(u.Messages) == 0 {
		return "0"
	}
	return fmt.Sprintf("%d|%d|%s|%s", len(u.Messages), u.Unread, u.Messages[0].ID, u.Messages[0].Timestamp)
}

type wsSink struct {
	conn *websocket.Conn
}

func (w wsSink) WriteJSON(v interface{}) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}

func (w wsSink) Close() error {
	return w.conn.Close()
}

// ServeWS upgrades the request and keeps user subscribed until the client
// disconnects. snapshot, when non-nil, is sent immediately.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, user models.User, snapshot []models.Message) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sink := wsSink{conn: conn}
	defer conn.Close()

	s := &subscriber{user: user, sink: sink}
	if snapshot != nil {
		inbox := Inbox(user, snapshot)
		update := InboxUpdate{Unread: UnreadCount(inbox), Messages: inbox}
		if err := sink.WriteJSON(update); err != nil {
			return nil
		}
		s.fingerprint = fingerprint(update)
	}
	// Registered only after the first write so pushes never overlap it.
	defer h.add(s)()

	logger.WithUser(user.ID, "message_hub").Debug("Websocket subscriber connected")
	// Clients only listen; reading drives pong handling and detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
