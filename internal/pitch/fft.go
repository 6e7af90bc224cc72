package pitch

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FFTEstimator picks the strongest spectral peak in the vocal band. It is
// cheaper than MPM but prone to octave errors on voices with weak
// fundamentals.
type FFTEstimator struct {
	windowSize    int
	minFrequency  float64 // Lowest frequency to detect (Hz)
	maxFrequency  float64 // Highest frequency to detect (Hz)
	peakThreshold float64 // Minimum peak height as fraction of highest peak
	hann          []float64
}

// NewFFTEstimator creates a new FFT-based estimator
func NewFFTEstimator(windowSize int) *FFTEstimator {
	return &FFTEstimator{
		windowSize:    windowSize,
		minFrequency:  MinPlausibleHz,
		maxFrequency:  MaxPlausibleHz,
		peakThreshold: 0.2,
		hann:          window.Hann(windowSize),
	}
}

// Peak represents a peak in the frequency spectrum
type Peak struct {
	Bin       int
	Magnitude float64
	Frequency float64
}

// Estimate analyzes a frame and returns the dominant frequency. Clarity is
// one minus the spectral flatness of the searched band.
func (d *FFTEstimator) Estimate(frame *audio.Frame) (Estimate, error) {
	if frame == nil || len(frame.Samples) == 0 || frame.SampleRate <= 0 {
		return Estimate{}, ErrEmptyBuffer
	}

	n := min(len(frame.Samples), d.windowSize)
	windowed := make([]float64, d.windowSize)
	for i := 0; i < n; i++ {
		windowed[i] = float64(frame.Samples[i]) * d.hann[i]
	}

	spectrum := fft.FFTReal(windowed)
	peaks, flatness := d.findPeaks(spectrum, frame.SampleRate)
	if len(peaks) == 0 {
		return Estimate{}, ErrNoPitch
	}

	// Sort peaks by magnitude (descending)
	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})

	return Estimate{
		Frequency: peaks[0].Frequency,
		Clarity:   1 - flatness,
	}, nil
}

// findPeaks returns interpolated local maxima within the band together with
// the band's spectral flatness.
func (d *FFTEstimator) findPeaks(spectrum []complex128, sampleRate int) ([]Peak, float64) {
	// Only the first half carries information for real input
	half := spectrum[:len(spectrum)/2]
	binSizeHz := float64(sampleRate) / float64(len(spectrum))

	minBin := max(int(d.minFrequency/binSizeHz), 1)
	maxBin := min(int(d.maxFrequency/binSizeHz), len(half)-1)
	if maxBin-minBin < 2 {
		return nil, 1
	}

	mags := make([]float64, maxBin+1)
	maxMagnitude := 0.0
	logSum, sum := 0.0, 0.0
	for i := minBin; i <= maxBin; i++ {
		mags[i] = cmplx.Abs(half[i])
		maxMagnitude = max(maxMagnitude, mags[i])
		logSum += math.Log(mags[i] + 1e-12)
		sum += mags[i]
	}
	if maxMagnitude == 0 {
		return nil, 1
	}
	bins := float64(maxBin - minBin + 1)
	flatness := math.Exp(logSum/bins) / (sum / bins)

	var peaks []Peak
	for i := minBin + 1; i < maxBin; i++ {
		prev, current, next := mags[i-1], mags[i], mags[i+1]
		if current <= prev || current <= next || current < maxMagnitude*d.peakThreshold {
			continue
		}

		// Quadratic interpolation of the peak location
		freq := float64(i) * binSizeHz
		if denom := prev - 2*current + next; denom != 0 {
			delta := 0.5 * (prev - next) / denom
			freq = (float64(i) + delta) * binSizeHz
		}
		peaks = append(peaks, Peak{Bin: i, Magnitude: current, Frequency: freq})
	}
	return peaks, flatness
}
