package sse

import (
	"sync"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	Topic string
	Event string
	Data  interface{}
}

// Hub manages SSE subscribers and event broadcasting
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	closed      bool
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers one channel under every topic and returns it with a
// cleanup function. Cleanup is safe to call more than once.
func (h *Hub) Subscribe(topics ...string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	for _, topic := range topics {
		if h.subscribers[topic] == nil {
			h.subscribers[topic] = make(map[chan Event]struct{})
		}
		h.subscribers[topic][ch] = struct{}{}
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.closed {
				return
			}
			for _, topic := range topics {
				delete(h.subscribers[topic], ch)
				if len(h.subscribers[topic]) == 0 {
					delete(h.subscribers, topic)
				}
			}
			close(ch)
		})
	}

	return ch, cleanup
}

// Publish sends an event to every subscriber of any of the topics. A
// subscriber on several of them receives the event once.
func (h *Hub) Publish(event Event, topics ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[chan Event]struct{})
	delivered := 0
	for _, topic := range topics {
		for ch := range h.subscribers[topic] {
			if _, dup := seen[ch]; dup {
				continue
			}
			seen[ch] = struct{}{}

			e := event
			e.Topic = topic
			select {
			case ch <- e:
				delivered++
			default:
				// Skip if channel is full (non-blocking to prevent deadlock)
			}
		}
	}
	return delivered
}

// SubscriberCount returns the number of active subscribers for a topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	closedCh := make(map[chan Event]struct{})
	for _, subs := range h.subscribers {
		for ch := range subs {
			if _, done := closedCh[ch]; !done {
				close(ch)
				closedCh[ch] = struct{}{}
			}
		}
	}
	h.subscribers = make(map[string]map[chan Event]struct{})
}
