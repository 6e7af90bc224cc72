package audio

import (
	"errors"
	"math"
	"testing"
)

type countingNode struct {
	blocks       int
	disconnected bool
}

func (c *countingNode) Process([]float32) { c.blocks++ }
func (c *countingNode) Disconnect()        { c.disconnected = true }

func TestAnalyserReadsChronologically(t *testing.T) {
	a := NewAnalyser(4)
	a.Write([]float32{1, 2, 3})
	a.Write([]float32{4, 5})

	dst := make([]float32, 4)
	if n := a.Read(dst); n != 4 {
		t.Fatalf("expected 4 samples available, got %d", n)
	}
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, dst[i], want[i])
		}
	}
}

func TestAnalyserPartialFill(t *testing.T) {
	a := NewAnalyser(8)
	a.Write([]float32{1, 1})
	dst := make([]float32, 8)
	if n := a.Read(dst); n != 2 {
		t.Fatalf("expected 2 filled samples, got %d", n)
	}
	a.Reset()
	if n := a.Read(dst); n != 0 {
		t.Fatalf("expected empty analyser after reset, got %d", n)
	}
}

func TestSetStageDisconnectsPrevious(t *testing.T) {
	g := NewGraph(48000, 256)
	first := &countingNode{}
	second := &countingNode{}

	if err := g.SetStage(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.Push(make([]float32, 64))
	if first.blocks != 1 {
		t.Fatalf("expected first stage to process one block, got %d", first.blocks)
	}

	if err := g.SetStage(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.disconnected {
		t.Fatalf("expected first stage to be disconnected")
	}
	g.Push(make([]float32, 64))
	g.Push(make([]float32, 64))
	if first.blocks != 1 {
		t.Fatalf("disconnected stage kept receiving audio: %d blocks", first.blocks)
	}
	if second.blocks != 2 {
		t.Fatalf("expected second stage to process two blocks, got %d", second.blocks)
	}
}

func TestCloseDropsAudio(t *testing.T) {
	g := NewGraph(48000, 64)
	stage := &countingNode{}
	_ = g.SetStage(stage)
	if err := g.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stage.disconnected {
		t.Fatalf("expected stage disconnected on close")
	}
	g.Push(make([]float32, 32))
	if stage.blocks != 0 {
		t.Fatalf("closed graph delivered audio")
	}
	if err := g.Close(); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
	if err := g.SetStage(&countingNode{}); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestPreFilterRemovesDC(t *testing.T) {
	g := NewGraph(48000, 1024)
	block := make([]float32, 1024)
	for i := range block {
		block[i] = 0.5
	}
	for i := 0; i < 20; i++ {
		g.Push(block)
	}

	out := make([]float32, 1024)
	g.Analyser().Read(out)
	for i, v := range out {
		if math.Abs(float64(v)) > 0.01 {
			t.Fatalf("expected DC removed, sample %d = %v", i, v)
		}
	}
}

func TestPushDoesNotMutateInput(t *testing.T) {
	g := NewGraph(48000, 64)
	in := []float32{1, 1, 1, 1}
	g.Push(in)
	for _, v := range in {
		if v != 1 {
			t.Fatalf("input block was modified: %v", in)
		}
	}
}
