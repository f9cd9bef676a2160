// Package stream pushes each cycle's opportunity list to websocket
// subscribers. Slow clients are dropped rather than allowed to stall the
// cycle worker.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ge-market-watch/internal/domain"
)

const (
	subscriberBuffer = 8
	writeTimeout     = 10 * time.Second
)

// CycleMessage is the wire shape pushed after every completed cycle.
type CycleMessage struct {
	Type          string                `json:"type"`
	GeneratedAt   int64                 `json:"generated_at"`
	Opportunities []*domain.Opportunity `json:"opportunities,omitempty"`
	Report        *domain.HourlyReport  `json:"report,omitempty"`
}

// Hub fans one publisher out to any number of websocket subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
	logger      *log.Logger
	upgrader    websocket.Upgrader
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		subscribers: make(map[chan []byte]struct{}),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe func. The channel is closed on unsubscribe.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Publish serializes a cycle message and broadcasts it. Subscribers with a
// full buffer miss this message instead of blocking the publisher.
func (h *Hub) Publish(msg CycleMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("[stream] marshal cycle message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- payload:
		default:
			h.logger.Printf("[stream] dropping message for slow subscriber")
		}
	}
}

// SubscriberCount reports the current number of subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request to a websocket and streams cycle messages
// until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[stream] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	for payload := range ch {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Printf("[stream] write failed, closing subscriber: %v", err)
			return
		}
	}
}
