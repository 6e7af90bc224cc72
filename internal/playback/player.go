// Package playback plays the rendered reference audio and reports its
// transport position.
//
//	[PCM] -> [Resample] -> [Ctrl] -> [Speaker]
package playback

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xlemi/vocalcoach/internal/render"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// ErrNothingLoaded is returned by Play before Load
var ErrNothingLoaded = errors.New("no reference audio loaded")

// Output is the audio sink; the speaker package in production
type Output interface {
	Play(s ...beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Clear()                  { speaker.Clear() }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }

// InitSpeaker opens the default output device at sr
func InitSpeaker(sr beep.SampleRate) error {
	return speaker.Init(sr, sr.N(time.Second/10))
}

// Player owns one reference buffer at a time
type Player struct {
	out Output
	sr  beep.SampleRate

	mu      sync.Mutex
	source  beep.StreamSeeker
	format  beep.Format
	ctrl    *beep.Ctrl
	playing bool
	paused  bool
	ended   atomic.Bool
}

// New creates a player that mixes at sr. The speaker must be initialised
// with InitSpeaker first.
func New(sr beep.SampleRate) *Player {
	return NewWithOutput(sr, speakerOutput{})
}

// NewWithOutput creates a player writing to out
func NewWithOutput(sr beep.SampleRate, out Output) *Player {
	return &Player{out: out, sr: sr}
}

// Load replaces the current buffer. Playback is stopped.
func (p *Player) Load(pcm *render.PCM) {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if pcm.Empty() {
		p.source = nil
		return
	}
	p.format = beep.Format{SampleRate: beep.SampleRate(pcm.SampleRate), NumChannels: 1, Precision: 2}
	p.source = newSource(p.format, pcm.Samples)
}

// Loaded reports whether there is a buffer to play
func (p *Player) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source != nil
}

// Play starts the loaded buffer from the beginning
func (p *Player) Play() error {
	p.out.Clear()

	p.mu.Lock()
	if p.source == nil {
		p.mu.Unlock()
		return ErrNothingLoaded
	}
	p.out.Lock()
	err := p.source.Seek(0)
	p.out.Unlock()
	if err != nil {
		p.mu.Unlock()
		return err
	}

	var s beep.Streamer = p.source
	if p.format.SampleRate != p.sr {
		s = beep.Resample(4, p.format.SampleRate, p.sr, s)
	}
	p.ctrl = &beep.Ctrl{Streamer: s}
	p.playing = true
	p.paused = false
	p.ended.Store(false)
	ctrl := p.ctrl
	p.mu.Unlock()

	p.out.Play(beep.Seq(ctrl, beep.Callback(func() {
		p.ended.Store(true)
	})))
	return nil
}

// TogglePause pauses or resumes playback
func (p *Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	p.out.Lock()
	p.ctrl.Paused = !p.ctrl.Paused
	p.paused = p.ctrl.Paused
	p.out.Unlock()
}

// Stop halts playback and rewinds
func (p *Player) Stop() {
	p.out.Clear()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctrl = nil
	p.playing = false
	p.paused = false
	p.ended.Store(false)
	if p.source != nil {
		p.out.Lock()
		_ = p.source.Seek(0)
		p.out.Unlock()
	}
}

// Position is the transport time of the loaded buffer
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return 0
	}
	p.out.Lock()
	defer p.out.Unlock()
	return p.format.SampleRate.D(p.source.Position())
}

// Duration is the length of the loaded buffer
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return 0
	}
	return p.format.SampleRate.D(p.source.Len())
}

// Playing reports whether audio is currently advancing
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.paused && !p.ended.Load()
}

// Paused reports whether playback is paused
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Ended reports whether the buffer played to the end
func (p *Player) Ended() bool {
	return p.ended.Load()
}

// Close stops playback
func (p *Player) Close() {
	p.Stop()
}

// newSource copies mono samples into a seekable beep buffer that plays on
// both channels.
func newSource(format beep.Format, samples []float32) beep.StreamSeeker {
	buf := beep.NewBuffer(format)
	rest := samples
	buf.Append(beep.StreamerFunc(func(dst [][2]float64) (int, bool) {
		if len(rest) == 0 {
			return 0, false
		}
		n := min(len(dst), len(rest))
		for i, v := range rest[:n] {
			dst[i][0], dst[i][1] = float64(v), float64(v)
		}
		rest = rest[n:]
		return n, true
	}))
	return buf.Streamer(0, buf.Len())
}
