package pitch

import (
	"math"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/mjibson/go-dsp/fft"
)

// MPMEstimator implements the McLeod pitch method: peaks of the normalized
// square difference function (NSDF) give the period, and the height of the
// chosen peak is the clarity.
type MPMEstimator struct {
	frameSize int
	cutoff    float64 // key maxima below cutoff*highest are ignored
	padded    []float64
	nsdf      []float64
	maxima    []int
}

// NewMPMEstimator creates an estimator for frames of frameSize samples
func NewMPMEstimator(frameSize int) *MPMEstimator {
	return &MPMEstimator{
		frameSize: frameSize,
		cutoff:    0.9,
		padded:    make([]float64, nextPow2(2*frameSize)),
		nsdf:      make([]float64, frameSize),
	}
}

// Estimate returns the fundamental frequency and clarity of frame
func (d *MPMEstimator) Estimate(frame *audio.Frame) (Estimate, error) {
	if frame == nil || len(frame.Samples) == 0 || frame.SampleRate <= 0 {
		return Estimate{}, ErrEmptyBuffer
	}

	n := min(len(frame.Samples), d.frameSize)
	samples := frame.Samples[:n]
	d.computeNSDF(samples)
	nsdf := d.nsdf[:n]

	d.maxima = keyMaxima(nsdf, d.maxima[:0])
	if len(d.maxima) == 0 {
		return Estimate{}, ErrNoPitch
	}

	highest := 0.0
	for _, i := range d.maxima {
		highest = max(highest, nsdf[i])
	}
	if highest <= 0 {
		return Estimate{}, ErrNoPitch
	}

	threshold := d.cutoff * highest
	for _, i := range d.maxima {
		if nsdf[i] < threshold {
			continue
		}

		tau, clarity := parabolicPeak(nsdf, i)
		if tau <= 0 {
			return Estimate{}, ErrNoPitch
		}
		return Estimate{
			Frequency: float64(frame.SampleRate) / tau,
			Clarity:   math.Min(clarity, 1),
		}, nil
	}

	return Estimate{}, ErrNoPitch
}

// computeNSDF fills d.nsdf with n'(tau) = 2 r(tau) / m(tau), using an FFT
// for the autocorrelation r.
func (d *MPMEstimator) computeNSDF(samples []float32) {
	n := len(samples)
	clear(d.padded)
	for i, s := range samples {
		d.padded[i] = float64(s)
	}

	spectrum := fft.FFTReal(d.padded)
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		spectrum[i] = complex(re*re+im*im, 0)
	}
	acf := fft.IFFT(spectrum)

	// m(tau) = sum x[j]^2 + x[j+tau]^2, updated incrementally
	m := 2 * real(acf[0])
	for tau := 0; tau < n; tau++ {
		if m > 0 {
			d.nsdf[tau] = 2 * real(acf[tau]) / m
		} else {
			d.nsdf[tau] = 0
		}
		head := float64(samples[tau])
		tail := float64(samples[n-1-tau])
		m -= head*head + tail*tail
	}
}

// keyMaxima returns the highest point between each positive-going and
// negative-going zero crossing, skipping the lobe around lag zero.
func keyMaxima(nsdf []float64, out []int) []int {
	pos := 0
	for pos < len(nsdf)-1 && nsdf[pos] > 0 {
		pos++
	}
	for pos < len(nsdf)-1 && nsdf[pos] <= 0 {
		pos++
	}

	best := -1
	for ; pos < len(nsdf)-1; pos++ {
		if nsdf[pos] > 0 {
			if best < 0 || nsdf[pos] > nsdf[best] {
				best = pos
			}
			continue
		}
		if best >= 0 {
			out = append(out, best)
			best = -1
		}
	}
	if best >= 0 {
		out = append(out, best)
	}
	return out
}

// parabolicPeak refines the peak at i to sub-sample precision
func parabolicPeak(y []float64, i int) (x, height float64) {
	if i <= 0 || i >= len(y)-1 {
		return float64(i), y[i]
	}
	a, b, c := y[i-1], y[i], y[i+1]
	denom := a - 2*b + c
	if denom == 0 {
		return float64(i), b
	}
	delta := 0.5 * (a - c) / denom
	return float64(i) + delta, b - 0.25*(a-c)*delta
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
