package events

import (
	"bufio"
	"io"
	"sync"
)

// Hub fans events out to subscribers. Slow subscribers lose events rather
// than stall the run. A nil *Hub discards everything.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	runID   string
}

func NewHub(runID string) *Hub {
	return &Hub{clients: make(map[chan string]struct{}), runID: runID}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Close unsubscribes everyone, ending their range loops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *Hub) Publish(evt string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}

// Emit encodes data as a version 1 event of type typ and publishes it.
func (h *Hub) Emit(typ string, data any) {
	if h == nil {
		return
	}
	h.Publish(MakeEvent(h.runID, typ, 1, data))
}

// WriteLines copies events from ch to w, one per line, until ch is closed.
func WriteLines(w io.Writer, ch <-chan string) error {
	bw := bufio.NewWriter(w)
	for evt := range ch {
		if _, err := bw.WriteString(evt + "\n"); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
	return bw.Flush()
}
