package render

import (
	"context"
	"math"

	"github.com/0xlemi/vocalcoach/internal/note"
)

// ToneRenderer is a SoundFont-free piano approximation: a few decaying
// harmonics per note with a short attack and release.
type ToneRenderer struct {
	SampleRate int
}

var harmonics = []struct{ ratio, amp, decay float64 }{
	{1, 1.0, 1.2},
	{2, 0.45, 1.8},
	{3, 0.25, 2.6},
	{4, 0.12, 3.4},
	{5, 0.06, 4.2},
}

const (
	attackSeconds  = 0.005
	releaseSeconds = 0.08
)

// Render implements Renderer
func (r *ToneRenderer) Render(ctx context.Context, events []Event, gapSeconds float64) (*PCM, error) {
	if len(events) == 0 {
		return nil, nil
	}
	sr := float64(r.SampleRate)
	out := make([]float32, totalLength(events, gapSeconds, r.SampleRate))

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hz, err := note.Frequency(ev.Note)
		if err != nil {
			return nil, err
		}
		start := int(ev.StartSeconds * sr)
		n := int(ev.DurationSeconds * sr)
		for i := 0; i < n && start+i < len(out); i++ {
			t := float64(i) / sr
			env := math.Min(1, t/attackSeconds)
			if rem := ev.DurationSeconds - t; rem < releaseSeconds {
				env *= rem / releaseSeconds
			}
			v := 0.0
			for _, h := range harmonics {
				if hz*h.ratio >= sr/2 {
					break
				}
				v += h.amp * math.Exp(-h.decay*t) * math.Sin(2*math.Pi*hz*h.ratio*t)
			}
			out[start+i] += float32(env * v)
		}
	}

	normalize(out)
	return &PCM{Samples: out, SampleRate: r.SampleRate}, nil
}
