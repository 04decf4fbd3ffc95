// Package stream provides in-process publish/subscribe fan-out for the
// change feed and presence watch endpoints.
package stream

import (
	"sync"
)

// defaultBuffer is the per-subscriber channel depth. Deliveries always carry
// a full snapshot, so a subscriber that lags only needs the latest message;
// older queued snapshots are superseded, not required.
const defaultBuffer = 8

// Hub fans out payloads to subscribers by topic. Publishing never blocks:
// when a subscriber's buffer is full its oldest pending payload is dropped
// in favor of the new one.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan []byte]struct{})}
}

// Subscribe registers a new subscriber on the topic. The returned cancel
// function removes the subscription and closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan []byte, func()) {
	ch := make(chan []byte, defaultBuffer)

	h.mu.Lock()
	subs := h.topics[topic]
	if subs == nil {
		subs = make(map[chan []byte]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.topics[topic]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.topics, topic)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers payload to every subscriber on the topic, including any
// subscriber that originated the mutation. Self-filtering is the
// subscriber's problem, not the hub's.
func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.topics[topic] {
		select {
		case ch <- payload:
		default:
			// Full buffer: drop one stale snapshot, then deliver.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- payload:
			default:
			}
		}
	}
}

// Subscribers returns the number of subscribers on a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
