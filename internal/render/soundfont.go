package render

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/0xlemi/vocalcoach/internal/loader"
	"github.com/0xlemi/vocalcoach/internal/note"
	meltysynth "github.com/sinshu/go-meltysynth/meltysynth"
)

const (
	// Render in fixed blocks to keep the synth's effect buffers aligned
	block = 1024

	acousticGrandPiano = 0
	defaultVelocity    = 100
)

// synthesizer abstracts the subset of meltysynth.Synthesizer we drive
type synthesizer interface {
	ProcessMidiMessage(channel int32, command int32, data1, data2 int32)
	NoteOn(channel, key, vel int32)
	NoteOff(channel, key int32)
	Render(left, right []float32)
}

// SoundFontRenderer plays events through a General MIDI SoundFont
type SoundFontRenderer struct {
	Path       string
	SampleRate int
	Program    int
	Velocity   int
	Fonts      *loader.Cache[*meltysynth.SoundFont]

	// newSynth is swapped in tests
	newSynth func(sf *meltysynth.SoundFont, settings *meltysynth.SynthesizerSettings) (synthesizer, error)
}

// NewSoundFontCache returns the shared SoundFont cache
func NewSoundFontCache() *loader.Cache[*meltysynth.SoundFont] {
	return loader.New(ReadSoundFont)
}

// ReadSoundFont parses an .sf2 file
func ReadSoundFont(_ context.Context, path string) (*meltysynth.SoundFont, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSoundFont, err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse soundfont %s: %w", path, err)
	}
	return sf, nil
}

// NewSoundFontRenderer creates a piano renderer for the SoundFont at path
func NewSoundFontRenderer(path string, sampleRate int, fonts *loader.Cache[*meltysynth.SoundFont]) *SoundFontRenderer {
	return &SoundFontRenderer{
		Path:       path,
		SampleRate: sampleRate,
		Program:    acousticGrandPiano,
		Velocity:   defaultVelocity,
		Fonts:      fonts,
	}
}

// Render implements Renderer
func (r *SoundFontRenderer) Render(ctx context.Context, events []Event, gapSeconds float64) (*PCM, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if r.Path == "" {
		return nil, ErrNoSoundFont
	}

	var (
		sf  *meltysynth.SoundFont
		err error
	)
	if r.Fonts != nil {
		sf, err = r.Fonts.Get(ctx, r.Path)
	} else {
		sf, err = ReadSoundFont(ctx, r.Path)
	}
	if err != nil {
		return nil, err
	}

	newSynth := r.newSynth
	if newSynth == nil {
		newSynth = func(sf *meltysynth.SoundFont, settings *meltysynth.SynthesizerSettings) (synthesizer, error) {
			return meltysynth.NewSynthesizer(sf, settings)
		}
	}
	// A fresh synth per render keeps concurrent renders independent
	syn, err := newSynth(sf, meltysynth.NewSynthesizerSettings(int32(r.SampleRate)))
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}
	return r.renderWith(ctx, syn, events, gapSeconds)
}

type midiEvent struct {
	key        int
	start, end int
}

func (r *SoundFontRenderer) renderWith(ctx context.Context, syn synthesizer, events []Event, gapSeconds float64) (*PCM, error) {
	const ch = 0
	syn.ProcessMidiMessage(ch, 0xC0, int32(r.Program), 0)

	var scheduled []midiEvent
	for _, ev := range events {
		key, err := note.MIDI(ev.Note)
		if err != nil {
			return nil, err
		}
		start := int(ev.StartSeconds * float64(r.SampleRate))
		end := start + int(ev.DurationSeconds*float64(r.SampleRate))
		if end <= start {
			continue
		}
		scheduled = append(scheduled, midiEvent{key: key, start: start, end: end})
	}
	if len(scheduled) == 0 {
		return nil, nil
	}

	total := totalLength(events, gapSeconds, r.SampleRate)
	mono := make([]float32, 0, total)
	left := make([]float32, block)
	right := make([]float32, block)
	active := map[int]bool{}

	for pos := 0; pos < total; pos += block {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := pos + block

		// Note-offs first so a retriggered key sounds again
		for _, ev := range scheduled {
			if ev.end >= pos && ev.end < end && active[ev.key] {
				syn.NoteOff(ch, int32(ev.key))
				active[ev.key] = false
			}
		}
		for _, ev := range scheduled {
			if ev.start >= pos && ev.start < end && !active[ev.key] {
				syn.NoteOn(ch, int32(ev.key), int32(r.Velocity))
				active[ev.key] = true
			}
		}

		syn.Render(left, right)
		n := min(block, total-pos)
		for i := 0; i < n; i++ {
			mono = append(mono, 0.5*(left[i]+right[i]))
		}
	}

	normalize(mono)
	return &PCM{Samples: mono, SampleRate: r.SampleRate}, nil
}
