// Package render turns a note sequence into reference piano audio.
package render

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

// ErrNoSoundFont means the SoundFont renderer has nothing to play with
var ErrNoSoundFont = errors.New("soundfont not available")

// Event is one note to render
type Event struct {
	Note            string
	StartSeconds    float64
	DurationSeconds float64
}

// PCM is rendered mono audio
type PCM struct {
	Samples    []float32
	SampleRate int
}

// Duration is the playing time of the buffer
func (p *PCM) Duration() time.Duration {
	if p == nil || p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(p.Samples)) / float64(p.SampleRate) * float64(time.Second))
}

// Empty reports whether there is anything to play
func (p *PCM) Empty() bool {
	return p == nil || len(p.Samples) == 0
}

// Renderer produces reference audio. A nil PCM with a nil error means
// there is nothing to play.
type Renderer interface {
	Render(ctx context.Context, events []Event, gapSeconds float64) (*PCM, error)
}

// Fallback tries Primary and, if it fails, renders with Secondary
type Fallback struct {
	Primary   Renderer
	Secondary Renderer
	Logger    *slog.Logger
}

// Render implements Renderer
func (f *Fallback) Render(ctx context.Context, events []Event, gapSeconds float64) (*PCM, error) {
	pcm, err := f.Primary.Render(ctx, events, gapSeconds)
	if err == nil {
		return pcm, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if f.Logger != nil {
		f.Logger.Warn("primary renderer failed, using fallback", "err", err)
	}
	return f.Secondary.Render(ctx, events, gapSeconds)
}

// totalLength is the sample count covering every event plus the trailing gap
func totalLength(events []Event, gapSeconds float64, sampleRate int) int {
	end := 0.0
	for _, ev := range events {
		end = math.Max(end, ev.StartSeconds+ev.DurationSeconds)
	}
	return int(math.Ceil((end + math.Max(gapSeconds, 0)) * float64(sampleRate)))
}

// normalize scales samples so the peak sits just under full scale
func normalize(samples []float32) {
	var peak float32
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	if peak == 0 {
		return
	}
	g := float32(0.99) / peak
	for i := range samples {
		samples[i] *= g
	}
}
