package search

import "sync"

// Default bound for the outcome history ring.
const defaultHistorySize = 50

// History is a bounded in-memory ring of recent search outcomes. Oldest
// entries are evicted first. Not durable.
type History struct {
	mu      sync.Mutex
	entries []Outcome
	max     int
}

// NewHistory builds a history bounded at max entries (<= 0 uses the default).
func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistorySize
	}
	return &History{max: max}
}

// Add records an outcome, evicting the oldest when full.
func (h *History) Add(o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, o)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Recent returns the stored outcomes, newest first.
func (h *History) Recent() []Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Outcome, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Len reports the number of stored outcomes.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear discards all stored outcomes.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}
