package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
)

// Hub fans messages out to every connected client over server-sent events.
// The registry is append/remove-only; a broadcast carries the full current
// state, so clients need no cross-operation ordering guarantee.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan []byte
}

const subscriberBuffer = 8

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan []byte)}
}

// Broadcast pushes an event with a JSON payload to all connected clients.
// A client whose buffer is full misses the frame; the next mutation
// broadcasts full state again, so nothing needs redelivery.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notify: marshal %s payload: %v", event, err)
		return
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() (int, chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan []byte, subscriberBuffer)
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// ServeHTTP streams events to one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	id, ch := h.subscribe()
	defer h.unsubscribe(id)
	for {
		select {
		case frame := <-ch:
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
