package playback

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/0xlemi/vocalcoach/internal/render"
	"github.com/gopxl/beep/v2"
)

// fakeOutput pulls samples on demand instead of from a device
type fakeOutput struct {
	mu      sync.Mutex
	streams []beep.Streamer
}

func (o *fakeOutput) Play(s ...beep.Streamer) {
	o.mu.Lock()
	o.streams = append(o.streams, s...)
	o.mu.Unlock()
}

func (o *fakeOutput) Clear() {
	o.mu.Lock()
	o.streams = nil
	o.mu.Unlock()
}

func (o *fakeOutput) Lock()   { o.mu.Lock() }
func (o *fakeOutput) Unlock() { o.mu.Unlock() }

func (o *fakeOutput) pull(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	buf := make([][2]float64, n)
	alive := o.streams[:0]
	for _, s := range o.streams {
		if _, ok := s.Stream(buf); ok {
			alive = append(alive, s)
		}
	}
	o.streams = alive
}

func pcm(n, sr int) *render.PCM {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.5
	}
	return &render.PCM{Samples: s, SampleRate: sr}
}

func TestSourceStreamsMonoToStereo(t *testing.T) {
	format := beep.Format{SampleRate: 1000, NumChannels: 1, Precision: 2}
	src := newSource(format, []float32{0.1, 0.2, 0.3})
	if src.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", src.Len())
	}
	out := make([][2]float64, 2)
	n, ok := src.Stream(out)
	if n != 2 || !ok || out[1][0] != out[1][1] || math.Abs(out[1][0]-0.2) > 1e-3 {
		t.Fatalf("unexpected stream result %d %v %v", n, ok, out)
	}
	n, ok = src.Stream(out)
	if n != 1 || !ok {
		t.Fatalf("expected final sample, got %d %v", n, ok)
	}
	if n, _ := src.Stream(out); n != 0 {
		t.Fatalf("expected drained source, got %d samples", n)
	}
	if err := src.Seek(4); err == nil {
		t.Fatalf("expected out of range seek to fail")
	}
	if err := src.Seek(1); err != nil || src.Position() != 1 {
		t.Fatalf("seek failed: %v", err)
	}
}

func TestPlayerTransport(t *testing.T) {
	out := &fakeOutput{}
	p := NewWithOutput(beep.SampleRate(1000), out)

	if err := p.Play(); !errors.Is(err, ErrNothingLoaded) {
		t.Fatalf("expected ErrNothingLoaded, got %v", err)
	}

	p.Load(pcm(1000, 1000))
	if p.Duration() != time.Second {
		t.Fatalf("expected 1s duration, got %v", p.Duration())
	}
	if err := p.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	out.pull(250)
	if p.Position() != 250*time.Millisecond {
		t.Fatalf("expected 250ms position, got %v", p.Position())
	}
	if !p.Playing() {
		t.Fatalf("expected playing")
	}

	p.TogglePause()
	out.pull(250)
	if p.Position() != 250*time.Millisecond || p.Playing() || !p.Paused() {
		t.Fatalf("paused playback must not advance, at %v", p.Position())
	}
	p.TogglePause()

	out.pull(750)
	out.pull(10)
	if !p.Ended() || p.Playing() {
		t.Fatalf("expected playback to end")
	}

	if err := p.Play(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if p.Position() != 0 || p.Ended() {
		t.Fatalf("expected restart from zero, got %v", p.Position())
	}
}

func TestPlayerLoadEmpty(t *testing.T) {
	p := NewWithOutput(beep.SampleRate(1000), &fakeOutput{})
	p.Load(nil)
	if p.Loaded() || p.Position() != 0 || p.Duration() != 0 {
		t.Fatalf("expected nothing loaded")
	}
}

func TestStopRewinds(t *testing.T) {
	out := &fakeOutput{}
	p := NewWithOutput(beep.SampleRate(1000), out)
	p.Load(pcm(3000, 1000))
	if err := p.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	out.pull(600)
	if p.Position() != 600*time.Millisecond {
		t.Fatalf("expected 600ms position, got %v", p.Position())
	}

	p.Stop()
	if p.Position() != 0 || p.Playing() || p.Paused() {
		t.Fatalf("stop must rewind, at %v", p.Position())
	}
	out.pull(100)
	if p.Position() != 0 {
		t.Fatalf("stopped player must not advance, at %v", p.Position())
	}
}
