package engine

// HistoryCapacity is the number of ticks kept for charting
const HistoryCapacity = 150

// History is a bounded FIFO; pushing past capacity evicts the oldest entry.
type History[T any] struct {
	buf   []T
	start int
	size  int
}

// NewHistory creates a history holding at most capacity entries
func NewHistory[T any](capacity int) *History[T] {
	return &History[T]{buf: make([]T, capacity)}
}

// Push appends v
func (h *History[T]) Push(v T) {
	if len(h.buf) == 0 {
		return
	}
	end := (h.start + h.size) % len(h.buf)
	h.buf[end] = v
	if h.size < len(h.buf) {
		h.size++
		return
	}
	h.start = (h.start + 1) % len(h.buf)
}

// Len is the number of stored entries
func (h *History[T]) Len() int { return h.size }

// Cap is the maximum number of entries
func (h *History[T]) Cap() int { return len(h.buf) }

// Values returns the entries oldest first. The slice is a copy.
func (h *History[T]) Values() []T {
	out := make([]T, h.size)
	for i := range out {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Clear drops every entry
func (h *History[T]) Clear() {
	clear(h.buf)
	h.start, h.size = 0, 0
}
