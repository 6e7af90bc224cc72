// Package schedule maps the reference audio's transport time to the note
// that should be sounding.
package schedule

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/0xlemi/vocalcoach/internal/note"
	"github.com/0xlemi/vocalcoach/internal/render"
)

// Event is one inbound note of an exercise
type Event struct {
	Pitch    string  // scientific pitch name
	Duration string  // symbolic duration code ("q", "half", ...)
	Start    float64 // optional beat offset; zero means "after the previous note"
}

// Segment is the time window of one note in the reference audio
type Segment struct {
	Note  string
	Hz    float64
	Start float64 // seconds
	End   float64 // seconds
	Index int
}

// Schedule is the immutable timeline for one rendered sequence
type Schedule struct {
	Segments []Segment
	BPM      float64
	Gap      float64 // seconds of silence after each note
}

// Duration is the end of the last segment plus its trailing gap
func (s *Schedule) Duration() float64 {
	if s == nil || len(s.Segments) == 0 {
		return 0
	}
	return s.Segments[len(s.Segments)-1].End + s.Gap
}

// FromNames turns a plain note list into events of equal duration
func FromNames(names []string, duration string) []Event {
	events := make([]Event, len(names))
	for i, n := range names {
		events[i] = Event{Pitch: n, Duration: duration}
	}
	return events
}

// Build lays events out back to back at bpm with gap seconds between notes.
// An explicit Start beat offset later than the running position moves the
// note later; earlier offsets are ignored so segments never overlap.
func Build(events []Event, bpm, gap float64) (*Schedule, error) {
	if bpm <= 0 {
		return nil, fmt.Errorf("tempo must be positive, got %v bpm", bpm)
	}
	if gap < 0 {
		gap = 0
	}

	secondsPerBeat := 60 / bpm
	s := &Schedule{BPM: bpm, Gap: gap, Segments: make([]Segment, 0, len(events))}
	t := 0.0
	for i, ev := range events {
		hz, err := note.Frequency(ev.Pitch)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if offset := ev.Start * secondsPerBeat; ev.Start > 0 && offset > t {
			t = offset
		}
		length := note.Beats(ev.Duration) * secondsPerBeat
		s.Segments = append(s.Segments, Segment{
			Note:  ev.Pitch,
			Hz:    hz,
			Start: t,
			End:   t + length,
			Index: i,
		})
		t += length + gap
	}
	return s, nil
}

// Resolution is the aligner's answer for one frame
type Resolution struct {
	Note   string
	Hz     float64
	Index  int  // active segment, -1 when between notes or stopped
	Active bool // a segment contains the queried time
}

// Aligner resolves playback time against the current schedule. Replace
// swaps the whole schedule; readers never see a partial update.
type Aligner struct {
	current atomic.Pointer[Schedule]

	mu       sync.Mutex
	held     *Segment
	heldFrom *Schedule
}

// NewAligner creates an aligner with an optional initial schedule
func NewAligner(s *Schedule) *Aligner {
	a := &Aligner{}
	a.current.Store(s)
	return a
}

// Replace installs a new schedule and drops the held note
func (a *Aligner) Replace(s *Schedule) {
	a.current.Store(s)
	a.mu.Lock()
	a.held, a.heldFrom = nil, nil
	a.mu.Unlock()
}

// Schedule returns the installed schedule
func (a *Aligner) Schedule() *Schedule {
	return a.current.Load()
}

// Resolve finds the segment containing t. Between notes, or past the end,
// the last matched note is held but Index is -1. Before anything has
// matched, the first note is the target.
func (a *Aligner) Resolve(t float64) Resolution {
	s := a.current.Load()
	if s == nil || len(s.Segments) == 0 {
		return Resolution{Index: -1}
	}

	if seg, ok := s.find(t); ok {
		a.mu.Lock()
		a.held, a.heldFrom = seg, s
		a.mu.Unlock()
		return Resolution{Note: seg.Note, Hz: seg.Hz, Index: seg.Index, Active: true}
	}

	a.mu.Lock()
	held := a.held
	if a.heldFrom != s {
		held = nil
	}
	a.mu.Unlock()

	if held == nil {
		held = &s.Segments[0]
	}
	return Resolution{Note: held.Note, Hz: held.Hz, Index: -1}
}

// find binary-searches the ordered segments
func (s *Schedule) find(t float64) (*Segment, bool) {
	lo, hi := 0, len(s.Segments)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		seg := &s.Segments[mid]
		switch {
		case t < seg.Start:
			hi = mid - 1
		case t > seg.End:
			lo = mid + 1
		default:
			return seg, true
		}
	}
	return nil, false
}

// RenderEvents converts the schedule to piano renderer input
func (s *Schedule) RenderEvents() []render.Event {
	events := make([]render.Event, len(s.Segments))
	for i, seg := range s.Segments {
		events[i] = render.Event{
			Note:            seg.Note,
			StartSeconds:    seg.Start,
			DurationSeconds: seg.End - seg.Start,
		}
	}
	return events
}
