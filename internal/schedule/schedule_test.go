package schedule

import (
	"math"
	"sync"
	"testing"
)

func mustBuild(t *testing.T, events []Event, bpm, gap float64) *Schedule {
	t.Helper()
	s, err := Build(events, bpm, gap)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

func TestBuildLaysOutSegments(t *testing.T) {
	s := mustBuild(t, []Event{
		{Pitch: "C4", Duration: "q"},
		{Pitch: "D4", Duration: "half"},
		{Pitch: "E4", Duration: "mystery"},
	}, 120, 0.1)

	want := []struct{ start, end float64 }{
		{0, 0.5},
		{0.6, 1.6},
		{1.7, 2.2},
	}
	if len(s.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(s.Segments))
	}
	for i, w := range want {
		seg := s.Segments[i]
		if math.Abs(seg.Start-w.start) > 1e-9 || math.Abs(seg.End-w.end) > 1e-9 {
			t.Errorf("segment %d: got [%v, %v] want [%v, %v]", i, seg.Start, seg.End, w.start, w.end)
		}
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if i > 0 && seg.Start < s.Segments[i-1].End {
			t.Errorf("segment %d overlaps previous", i)
		}
	}
	if math.Abs(s.Duration()-2.3) > 1e-9 {
		t.Fatalf("expected duration 2.3, got %v", s.Duration())
	}
}

func TestBuildHonoursLaterStartOffsets(t *testing.T) {
	s := mustBuild(t, []Event{
		{Pitch: "C4", Duration: "q"},
		{Pitch: "G4", Duration: "q", Start: 4},
		{Pitch: "E4", Duration: "q", Start: 1},
	}, 60, 0)

	if s.Segments[1].Start != 4 {
		t.Fatalf("expected second note at 4s, got %v", s.Segments[1].Start)
	}
	if s.Segments[2].Start != 5 {
		t.Fatalf("earlier offset must not overlap, got %v", s.Segments[2].Start)
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	if _, err := Build([]Event{{Pitch: "X9"}}, 90, 0); err == nil {
		t.Fatalf("expected error for invalid pitch")
	}
	if _, err := Build(nil, 0, 0); err == nil {
		t.Fatalf("expected error for zero tempo")
	}
}

func TestResolveActiveSegment(t *testing.T) {
	s := mustBuild(t, FromNames([]string{"C4", "D4", "E4"}, "q"), 60, 0.5)
	a := NewAligner(s)

	r := a.Resolve(1.7)
	if !r.Active || r.Note != "D4" || r.Index != 1 {
		t.Fatalf("expected active D4 at 1.7s, got %+v", r)
	}
}

func TestResolveHoldsDuringGap(t *testing.T) {
	s := mustBuild(t, FromNames([]string{"C4", "D4", "E4"}, "q"), 60, 0.5)
	a := NewAligner(s)

	a.Resolve(0.5)
	r := a.Resolve(1.2) // between C4 [0,1] and D4 [1.5,2.5]
	if r.Note != "C4" || r.Index != -1 || r.Active {
		t.Fatalf("expected held C4 with no index, got %+v", r)
	}
	if r.Hz <= 0 {
		t.Fatalf("held note must keep its frequency")
	}

	a.Resolve(4.0)
	r = a.Resolve(10)
	if r.Note != "E4" || r.Index != -1 {
		t.Fatalf("expected E4 held past the end, got %+v", r)
	}
}

func TestResolveDefaultsToFirstNote(t *testing.T) {
	s := mustBuild(t, FromNames([]string{"G3", "A3"}, "q"), 60, 0.5)
	a := NewAligner(s)
	r := a.Resolve(-1)
	if r.Note != "G3" || r.Index != -1 {
		t.Fatalf("expected default first note, got %+v", r)
	}
}

func TestResolveEmpty(t *testing.T) {
	a := NewAligner(nil)
	if r := a.Resolve(1); r.Note != "" || r.Index != -1 {
		t.Fatalf("expected empty resolution, got %+v", r)
	}
}

func TestReplaceDropsHeldNote(t *testing.T) {
	a := NewAligner(mustBuild(t, FromNames([]string{"C4", "D4"}, "q"), 60, 0.5))
	a.Resolve(0.2)

	a.Replace(mustBuild(t, FromNames([]string{"F4", "G4"}, "q"), 60, 0.5))
	r := a.Resolve(1.2)
	if r.Note != "F4" {
		t.Fatalf("expected new schedule's first note, got %+v", r)
	}
}

func TestReplaceIsAtomicForReaders(t *testing.T) {
	first := mustBuild(t, FromNames([]string{"C4", "D4", "E4"}, "q"), 60, 0)
	second := mustBuild(t, FromNames([]string{"A3", "B3", "C#4"}, "q"), 60, 0)
	a := NewAligner(first)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				a.Replace(second)
			} else {
				a.Replace(first)
			}
		}
	}()
	for i := 0; i < 1000; i++ {
		s := a.Schedule()
		if len(s.Segments) != 3 {
			t.Fatalf("observed partial schedule")
		}
		if s != first && s != second {
			t.Fatalf("observed unknown schedule")
		}
	}
	wg.Wait()
}

func TestRenderEvents(t *testing.T) {
	s := mustBuild(t, FromNames([]string{"C4", "E4"}, "h"), 120, 0.25)
	events := s.RenderEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Note != "E4" || events[1].DurationSeconds != 1 || events[1].StartSeconds != 1.25 {
		t.Fatalf("unexpected event %+v", events[1])
	}
}
