package audio

import (
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

const (
	// PreFilterCutoff removes sub-audio rumble before any other stage
	PreFilterCutoff = 40.0

	butterworthQ = 0.7071
)

// Node is one processing stage. Process transforms buf in place.
type Node interface {
	Process(buf []float32)
}

// Disconnecter is implemented by nodes holding state that must be released
// when they leave the graph.
type Disconnecter interface {
	Disconnect()
}

// Passthrough leaves audio untouched
type Passthrough struct{}

// Process does nothing
func (Passthrough) Process([]float32) {}

// Highpass is a second-order high-pass filter
type Highpass struct {
	section *biquad.Section
}

// NewHighpass designs a Butterworth high-pass at cutoff Hz
func NewHighpass(cutoff float64, sampleRate int) *Highpass {
	return &Highpass{
		section: biquad.NewSection(design.Highpass(cutoff, butterworthQ, float64(sampleRate))),
	}
}

// Process filters buf in place
func (h *Highpass) Process(buf []float32) {
	for i, x := range buf {
		buf[i] = float32(h.section.ProcessSample(float64(x)))
	}
}

// Graph is the capture chain:
//
//	[Source] -> [High-pass pre-filter] -> [Noise stage] -> [Analyser]
//
// Only the noise stage is swappable; swapping disconnects the old stage
// before the next block is processed.
type Graph struct {
	mu         sync.Mutex
	sampleRate int
	pre        Node
	stage      Node
	analyser   *Analyser
	scratch    []float32
	closed     bool
}

// NewGraph builds a graph with a pass-through noise stage
func NewGraph(sampleRate, analyserSize int) *Graph {
	return &Graph{
		sampleRate: sampleRate,
		pre:        NewHighpass(PreFilterCutoff, sampleRate),
		stage:      Passthrough{},
		analyser:   NewAnalyser(analyserSize),
	}
}

// SampleRate returns the graph's sample rate
func (g *Graph) SampleRate() int {
	return g.sampleRate
}

// Analyser returns the terminal analysis node
func (g *Graph) Analyser() *Analyser {
	return g.analyser
}

// Push runs one captured block through the chain. It is called from the
// capture goroutine.
func (g *Graph) Push(in []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}

	if cap(g.scratch) < len(in) {
		g.scratch = make([]float32, len(in))
	}
	buf := g.scratch[:len(in)]
	copy(buf, in)

	g.pre.Process(buf)
	g.stage.Process(buf)
	g.analyser.Write(buf)
}

// SetStage replaces the noise stage. The previous stage is disconnected and
// never sees another block.
func (g *Graph) SetStage(n Node) error {
	if n == nil {
		n = Passthrough{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		if d, ok := n.(Disconnecter); ok {
			d.Disconnect()
		}
		return ErrAlreadyClosed
	}

	old := g.stage
	g.stage = n
	if d, ok := old.(Disconnecter); ok {
		d.Disconnect()
	}
	g.analyser.Reset()
	return nil
}

// Close disconnects every stage. Further pushes are dropped.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrAlreadyClosed
	}
	g.closed = true
	if d, ok := g.stage.(Disconnecter); ok {
		d.Disconnect()
	}
	g.stage = Passthrough{}
	g.analyser.Reset()
	return nil
}

// Closed reports whether Close has been called
func (g *Graph) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
