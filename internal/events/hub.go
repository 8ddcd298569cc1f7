// Package events is an in-process pub/sub hub for sync events. The API
// layer bridges it to websocket subscribers so dashboards update
// without polling.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event describes one sync engine outcome.
type Event struct {
	Time      time.Time `json:"time"`
	ProjectID string    `json:"project_id"`
	DocType   string    `json:"doc_type"`
	Action    string    `json:"action"`
	State     string    `json:"state"`
	Detail    string    `json:"detail,omitempty"`
}

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind starts losing events rather than blocking
// the engine.
const subscriberBuffer = 16

// Hub fans events out to subscribers. The zero value is not usable;
// call NewHub.
type Hub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// Publish marshals the event and delivers it to every subscriber.
// Delivery is best-effort: a full subscriber drops the event.
func (h *Hub) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}
