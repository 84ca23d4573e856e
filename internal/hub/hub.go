// Package hub fans room notifications out to connected clients.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"prizeroom/internal/models"

	"github.com/google/logger"
)

// Client is the outbound side of one connection.
type Client struct {
	id   string
	send chan []byte
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Send returns the queue of encoded notifications. It is closed when the
// client is unregistered.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Hub keeps connections grouped by room. Sends never block: a client whose
// buffer is full misses the message.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	rooms      map[string]map[string]struct{}
	watchers   map[string]map[chan []byte]struct{}
	timers     map[string]map[*time.Timer]struct{}
	bufferSize int
}

// New constructs a Hub whose clients buffer up to bufferSize messages.
func New(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]struct{}),
		watchers:   make(map[string]map[chan []byte]struct{}),
		timers:     make(map[string]map[*time.Timer]struct{}),
		bufferSize: bufferSize,
	}
}

// Register creates the client for a connection.
func (h *Hub) Register(connectionID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[connectionID]; ok {
		close(old.send)
	}
	c := &Client{id: connectionID, send: make(chan []byte, h.bufferSize)}
	h.clients[connectionID] = c
	return c
}

// Unregister drops a connection from every room and closes its queue.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connectionID]
	if !ok {
		return
	}
	for roomID, members := range h.rooms {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.clients, connectionID)
	close(c.send)
}

// Subscribe adds a connection to a room's broadcast group.
func (h *Hub) Subscribe(roomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]struct{})
	}
	h.rooms[roomID][connectionID] = struct{}{}
}

// Unsubscribe removes a connection from a room's broadcast group.
func (h *Hub) Unsubscribe(roomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// Members returns the connection ids subscribed to a room.
func (h *Hub) Members(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast sends n to every member and watcher of a room.
func (h *Hub) Broadcast(roomID string, n models.Notification) {
	payload, ok := encode(n)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.rooms[roomID] {
		if c, ok := h.clients[id]; ok {
			h.deliver(c.send, payload, id)
		}
	}
	for ch := range h.watchers[roomID] {
		h.deliver(ch, payload, "watcher of "+roomID)
	}
}

// SendTo sends n to a single connection.
func (h *Hub) SendTo(connectionID string, n models.Notification) {
	payload, ok := encode(n)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[connectionID]; ok {
		h.deliver(c.send, payload, connectionID)
	}
}

func (h *Hub) deliver(ch chan []byte, payload []byte, to string) {
	select {
	case ch <- payload:
	default:
		logger.Warningf("hub: dropped %d byte message for %s, buffer full", len(payload), to)
	}
}

func encode(n models.Notification) ([]byte, bool) {
	payload, err := json.Marshal(n)
	if err != nil {
		logger.Errorf("hub: encode %s notification: %v", n.Type, err)
		return nil, false
	}
	return payload, true
}

// Watch receives every broadcast of a room without joining it. The returned
// function stops the watch and closes the channel.
func (h *Hub) Watch(roomID string) (<-chan []byte, func()) {
	ch := make(chan []byte, h.bufferSize)

	h.mu.Lock()
	if _, ok := h.watchers[roomID]; !ok {
		h.watchers[roomID] = make(map[chan []byte]struct{})
	}
	h.watchers[roomID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.watchers[roomID], ch)
			if len(h.watchers[roomID]) == 0 {
				delete(h.watchers, roomID)
			}
			close(ch)
		})
	}
}

// Schedule broadcasts n to a room after delay. Every scheduled notice is
// delivered unless cancelled through the returned function or Close.
func (h *Hub) Schedule(roomID string, delay time.Duration, n models.Notification) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		// Cancelled after the timer already fired.
		if !h.dropTimer(roomID, t) {
			return
		}
		h.Broadcast(roomID, n)
	})
	if _, ok := h.timers[roomID]; !ok {
		h.timers[roomID] = make(map[*time.Timer]struct{})
	}
	h.timers[roomID][t] = struct{}{}

	return func() {
		if h.dropTimer(roomID, t) {
			t.Stop()
		}
	}
}

// dropTimer forgets t and reports whether it was still pending.
func (h *Hub) dropTimer(roomID string, t *time.Timer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending, ok := h.timers[roomID]
	if !ok {
		return false
	}
	if _, ok := pending[t]; !ok {
		return false
	}
	delete(pending, t)
	if len(pending) == 0 {
		delete(h.timers, roomID)
	}
	return true
}

// Close stops every scheduled notification.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID, pending := range h.timers {
		for t := range pending {
			t.Stop()
		}
		delete(h.timers, roomID)
	}
}
