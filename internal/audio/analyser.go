package audio

import "sync"

// Analyser keeps the most recent samples of the graph output in a ring
// buffer so the frame loop can read a fixed-size time-domain window.
type Analyser struct {
	mu     sync.Mutex
	buf    []float32
	pos    int
	filled int
}

// NewAnalyser creates an analyser holding size samples
func NewAnalyser(size int) *Analyser {
	return &Analyser{buf: make([]float32, size)}
}

// Size is the analysis window length
func (a *Analyser) Size() int {
	return len(a.buf)
}

// Write appends samples, overwriting the oldest
func (a *Analyser) Write(samples []float32) {
	a.mu.Lock()
	for _, s := range samples {
		a.buf[a.pos] = s
		a.pos = (a.pos + 1) % len(a.buf)
	}
	a.filled = min(a.filled+len(samples), len(a.buf))
	a.mu.Unlock()
}

// Read copies the latest len(dst) samples into dst in chronological order
// and returns how many were available. Missing history reads as silence.
func (a *Analyser) Read(dst []float32) int {
	n := min(len(dst), len(a.buf))
	a.mu.Lock()
	defer a.mu.Unlock()

	start := (a.pos - n + len(a.buf)) % len(a.buf)
	for i := 0; i < n; i++ {
		dst[i] = a.buf[(start+i)%len(a.buf)]
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return min(n, a.filled)
}

// Reset clears history
func (a *Analyser) Reset() {
	a.mu.Lock()
	clear(a.buf)
	a.pos = 0
	a.filled = 0
	a.mu.Unlock()
}
