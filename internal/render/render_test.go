package render

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	meltysynth "github.com/sinshu/go-meltysynth/meltysynth"
)

type noteAction struct {
	key int
	on  bool
	pos int
}

type mockSynth struct {
	events  []noteAction
	program int32
	cur     int
	active  int
}

func (m *mockSynth) ProcessMidiMessage(channel int32, command int32, data1, data2 int32) {
	if command == 0xC0 {
		m.program = data1
	}
}

func (m *mockSynth) NoteOn(channel, key, vel int32) {
	m.events = append(m.events, noteAction{int(key), true, m.cur})
	m.active++
}

func (m *mockSynth) NoteOff(channel, key int32) {
	m.events = append(m.events, noteAction{int(key), false, m.cur})
	m.active--
}

func (m *mockSynth) Render(left, right []float32) {
	for i := range left {
		v := float32(0)
		if m.active > 0 {
			v = 0.25
		}
		left[i], right[i] = v, v
	}
	m.cur += len(left)
}

func testRenderer(ms *mockSynth) *SoundFontRenderer {
	r := NewSoundFontRenderer("piano.sf2", 48000, nil)
	r.newSynth = func(*meltysynth.SoundFont, *meltysynth.SynthesizerSettings) (synthesizer, error) {
		return ms, nil
	}
	return r
}

func TestSoundFontSchedulesNotes(t *testing.T) {
	ms := &mockSynth{}
	r := testRenderer(ms)
	blockSec := float64(block) / 48000

	pcm, err := r.renderWith(context.Background(), ms, []Event{
		{Note: "C4", StartSeconds: 0, DurationSeconds: 2 * blockSec},
		{Note: "E4", StartSeconds: 3 * blockSec, DurationSeconds: 2 * blockSec},
	}, 0.1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(ms.events) != 4 {
		t.Fatalf("expected 4 note events, got %d", len(ms.events))
	}
	if !ms.events[0].on || ms.events[0].key != 60 || ms.events[0].pos != 0 {
		t.Fatalf("unexpected first event %+v", ms.events[0])
	}
	if ms.events[2].key != 64 || !ms.events[2].on || ms.events[2].pos != 3*block {
		t.Fatalf("unexpected E4 note-on %+v", ms.events[2])
	}
	if ms.program != acousticGrandPiano {
		t.Fatalf("expected piano program, got %d", ms.program)
	}

	// 5 blocks of notes plus 0.1s of tail
	if n := len(pcm.Samples); n < 5*block+4800 || n > 5*block+4801 {
		t.Fatalf("unexpected sample count %d", n)
	}
	if pcm.Samples[0] < 0.98 {
		t.Fatalf("expected normalized output, got %v", pcm.Samples[0])
	}
}

func TestSoundFontRetriggersRepeatedKey(t *testing.T) {
	ms := &mockSynth{}
	r := testRenderer(ms)
	blockSec := float64(block) / 48000

	_, err := r.renderWith(context.Background(), ms, []Event{
		{Note: "A4", StartSeconds: 0, DurationSeconds: blockSec},
		{Note: "A4", StartSeconds: blockSec, DurationSeconds: blockSec},
	}, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	ons := 0
	for _, ev := range ms.events {
		if ev.on {
			ons++
		}
	}
	if ons != 2 {
		t.Fatalf("expected the repeated key to sound twice, got %d note-ons", ons)
	}
}

func TestSoundFontErrors(t *testing.T) {
	r := NewSoundFontRenderer("", 48000, nil)
	if pcm, err := r.Render(context.Background(), nil, 0); pcm != nil || err != nil {
		t.Fatalf("empty input should render nothing, got %v %v", pcm, err)
	}
	if _, err := r.Render(context.Background(), []Event{{Note: "C4", DurationSeconds: 1}}, 0); !errors.Is(err, ErrNoSoundFont) {
		t.Fatalf("expected ErrNoSoundFont, got %v", err)
	}

	r.Path = filepath.Join(t.TempDir(), "missing.sf2")
	r.Fonts = NewSoundFontCache()
	if _, err := r.Render(context.Background(), []Event{{Note: "C4", DurationSeconds: 1}}, 0); !errors.Is(err, ErrNoSoundFont) {
		t.Fatalf("expected ErrNoSoundFont for missing file, got %v", err)
	}

	ms := &mockSynth{}
	if _, err := testRenderer(ms).renderWith(context.Background(), ms, []Event{{Note: "H2", DurationSeconds: 1}}, 0); err == nil {
		t.Fatalf("expected invalid note error")
	}
}

func TestToneRendererPlacesNotes(t *testing.T) {
	r := &ToneRenderer{SampleRate: 8000}
	pcm, err := r.Render(context.Background(), []Event{
		{Note: "A4", StartSeconds: 0, DurationSeconds: 0.5},
		{Note: "A5", StartSeconds: 1, DurationSeconds: 0.5},
	}, 0.25)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(pcm.Samples) != 14000 {
		t.Fatalf("expected 1.75s of audio, got %d samples", len(pcm.Samples))
	}
	if pcm.Duration().Seconds() != 1.75 {
		t.Fatalf("unexpected duration %v", pcm.Duration())
	}
	// the silence between notes must stay silent
	for _, v := range pcm.Samples[4400:7600] {
		if v != 0 {
			t.Fatalf("expected silence between notes")
		}
	}
	peak := float32(0)
	for _, v := range pcm.Samples {
		peak = max(peak, v, -v)
	}
	if peak > 1 || peak < 0.9 {
		t.Fatalf("expected normalized peak, got %v", peak)
	}
}

type failingRenderer struct{ err error }

func (f failingRenderer) Render(context.Context, []Event, float64) (*PCM, error) {
	return nil, f.err
}

func TestFallbackRenderer(t *testing.T) {
	f := &Fallback{Primary: failingRenderer{ErrNoSoundFont}, Secondary: &ToneRenderer{SampleRate: 8000}}
	pcm, err := f.Render(context.Background(), []Event{{Note: "C4", DurationSeconds: 0.1}}, 0)
	if err != nil || pcm.Empty() {
		t.Fatalf("expected fallback audio, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Render(ctx, []Event{{Note: "C4", DurationSeconds: 0.1}}, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to win, got %v", err)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	pcm, err := (&ToneRenderer{SampleRate: 16000}).Render(context.Background(), []Event{{Note: "G4", DurationSeconds: 0.25}}, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ref.wav")
	if err := WriteWAV(path, pcm); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if back.SampleRate != 16000 || len(back.Samples) != len(pcm.Samples) {
		t.Fatalf("unexpected decoded shape: %d Hz, %d samples", back.SampleRate, len(back.Samples))
	}
	for i := range pcm.Samples {
		if math.Abs(float64(back.Samples[i]-pcm.Samples[i])) > 1e-3 {
			t.Fatalf("sample %d differs: %v vs %v", i, back.Samples[i], pcm.Samples[i])
		}
	}

	if err := WriteWAV(path, nil); err == nil {
		t.Fatalf("expected error for empty pcm")
	}
}
