package denoise

import (
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// spectralFloor keeps a little of every bin to avoid musical noise
const spectralFloor = 0.05

// SpectralGate subtracts a learned noise spectrum using a 50% overlap-add
// STFT. Output lags input by one frame.
type SpectralGate struct {
	mu           sync.Mutex
	model        *Model
	frameSize    int
	hop          int
	win          []float64
	in           []float64 // last frameSize input samples
	fill         int       // valid samples in in
	ola          []float64
	out          []float64 // completed output samples awaiting delivery
	disconnected bool
}

// NewSpectralGate creates a gate for model; the model must be valid.
func NewSpectralGate(m *Model) *SpectralGate {
	n := m.FrameSize
	return &SpectralGate{
		model:     m,
		frameSize: n,
		hop:       n / 2,
		win:       periodicHann(n),
		in:        make([]float64, n),
		ola:       make([]float64, n),
		out:       make([]float64, 0, 4*n),
	}
}

// periodicHann sums to one at 50% overlap
func periodicHann(n int) []float64 {
	return window.Hann(n + 1)[:n]
}

// Process denoises buf in place
func (g *SpectralGate) Process(buf []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disconnected {
		return
	}

	for _, s := range buf {
		g.in[g.fill] = float64(s)
		g.fill++
		if g.fill == g.frameSize {
			g.processFrame()
			copy(g.in, g.in[g.hop:])
			g.fill = g.frameSize - g.hop
		}
	}

	n := min(len(buf), len(g.out))
	pad := len(buf) - n
	for i := 0; i < pad; i++ {
		buf[i] = 0
	}
	for i := 0; i < n; i++ {
		buf[pad+i] = float32(g.out[i])
	}
	g.out = append(g.out[:0], g.out[n:]...)
}

func (g *SpectralGate) processFrame() {
	frame := make([]float64, g.frameSize)
	for i := range frame {
		frame[i] = g.in[i] * g.win[i]
	}

	spectrum := fft.FFTReal(frame)
	half := g.frameSize / 2
	for k := 0; k <= half; k++ {
		mag := cmplx.Abs(spectrum[k])
		if mag == 0 {
			continue
		}
		clean := mag - g.model.Reduction*g.model.Noise[k]
		gain := max(clean/mag, spectralFloor)
		spectrum[k] *= complex(gain, 0)
		if k != 0 && k != half {
			spectrum[g.frameSize-k] *= complex(gain, 0)
		}
	}

	frameOut := fft.IFFT(spectrum)
	for i, c := range frameOut {
		g.ola[i] += real(c)
	}

	g.out = append(g.out, g.ola[:g.hop]...)
	copy(g.ola, g.ola[g.hop:])
	clear(g.ola[g.frameSize-g.hop:])
}

// Disconnect releases the gate; later blocks pass through untouched
func (g *SpectralGate) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnected = true
	g.in, g.ola, g.out = nil, nil, nil
}

// Learn builds a noise model from a recording of room noise
func Learn(noise []float32, sampleRate, frameSize int, reduction float64) *Model {
	win := periodicHann(frameSize)
	bins := make([]float64, frameSize/2+1)
	frames := 0

	frame := make([]float64, frameSize)
	for start := 0; start+frameSize <= len(noise); start += frameSize / 2 {
		for i := range frame {
			frame[i] = float64(noise[start+i]) * win[i]
		}
		spectrum := fft.FFTReal(frame)
		for k := range bins {
			bins[k] += cmplx.Abs(spectrum[k])
		}
		frames++
	}
	if frames > 0 {
		for k := range bins {
			bins[k] /= float64(frames)
		}
	}

	return &Model{
		SampleRate: sampleRate,
		FrameSize:  frameSize,
		Noise:      bins,
		Reduction:  reduction,
	}
}
