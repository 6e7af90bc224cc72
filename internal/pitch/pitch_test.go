package pitch

import (
	"errors"
	"math"
	"testing"

	"github.com/0xlemi/vocalcoach/internal/audio"
)

func sineFrame(freq float64, sampleRate, n int, amp float64) *audio.Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return &audio.Frame{Samples: samples, SampleRate: sampleRate}
}

// voiceFrame adds a few harmonics so the fundamental is not the only peak
func voiceFrame(freq float64, sampleRate, n int) *audio.Frame {
	samples := make([]float32, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		v := 0.5*math.Sin(2*math.Pi*freq*t) +
			0.3*math.Sin(2*math.Pi*2*freq*t) +
			0.15*math.Sin(2*math.Pi*3*freq*t)
		samples[i] = float32(v)
	}
	return &audio.Frame{Samples: samples, SampleRate: sampleRate}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		target, voice float64
		want          Verdict
	}{
		{440, 470, SingLower},
		{440, 410, SingHigher},
		{440, 440.4, InTune},
		{440, 440, InTune},
		{0, 440, NoVerdict},
		{440, 0, NoVerdict},
		{-440, 440, NoVerdict},
		{math.NaN(), 440, NoVerdict},
		{440, math.Inf(1), NoVerdict},
	}
	for _, tt := range tests {
		if got := Compare(tt.target, tt.voice); got != tt.want {
			t.Errorf("Compare(%v, %v) = %q want %q", tt.target, tt.voice, got, tt.want)
		}
	}
}

func TestSplDB(t *testing.T) {
	ones := make([]float32, 512)
	for i := range ones {
		ones[i] = 1
	}
	if db := SplDB(ones); math.Abs(db) > 1e-6 {
		t.Fatalf("expected ~0 dB for unit RMS, got %v", db)
	}

	silent := make([]float32, 512)
	db := SplDB(silent)
	if math.IsInf(db, -1) || math.IsNaN(db) {
		t.Fatalf("expected finite level for silence, got %v", db)
	}
	if !BelowNoiseFloor(db, ThresholdCutoffDB(0)) {
		t.Fatalf("silence (%v dB) should be below the most permissive cutoff", db)
	}
}

func TestNoiseFloorGate(t *testing.T) {
	if !BelowNoiseFloor(-80, -70) {
		t.Fatalf("-80 dB should be gated by a -70 dB cutoff")
	}
	if BelowNoiseFloor(-80, -90) {
		t.Fatalf("-80 dB should pass a -90 dB cutoff")
	}
	if got := ThresholdCutoffDB(30); got != -70 {
		t.Fatalf("expected -70 dB cutoff for threshold 30, got %v", got)
	}
	if got := ThresholdCutoffDB(150); got != 0 {
		t.Fatalf("expected clamp to 0 dB, got %v", got)
	}
}

func TestMPMDetectsSine(t *testing.T) {
	d := NewMPMEstimator(2048)
	for _, freq := range []float64{110, 220, 440, 880} {
		est, err := d.Estimate(sineFrame(freq, 44100, 2048, 0.5))
		if err != nil {
			t.Fatalf("%v Hz: unexpected error: %v", freq, err)
		}
		if math.Abs(est.Frequency-freq) > freq*0.005 {
			t.Errorf("%v Hz: got %.2f", freq, est.Frequency)
		}
		if est.Clarity < 0.9 {
			t.Errorf("%v Hz: expected high clarity, got %.3f", freq, est.Clarity)
		}
	}
}

func TestMPMPrefersFundamental(t *testing.T) {
	d := NewMPMEstimator(2048)
	est, err := d.Estimate(voiceFrame(196, 48000, 2048))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(est.Frequency-196) > 2 {
		t.Fatalf("expected fundamental near 196 Hz, got %.2f", est.Frequency)
	}
}

func TestMPMSilence(t *testing.T) {
	d := NewMPMEstimator(1024)
	_, err := d.Estimate(&audio.Frame{Samples: make([]float32, 1024), SampleRate: 44100})
	if !errors.Is(err, ErrNoPitch) {
		t.Fatalf("expected ErrNoPitch for silence, got %v", err)
	}
	if _, err := d.Estimate(nil); !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("expected ErrEmptyBuffer, got %v", err)
	}
}

func TestFFTEstimatorDetectsSine(t *testing.T) {
	d := NewFFTEstimator(4096)
	est, err := d.Estimate(sineFrame(440, 44100, 4096, 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(est.Frequency-440) > 3 {
		t.Fatalf("expected ~440 Hz, got %.2f", est.Frequency)
	}
	if est.Clarity < 0.5 {
		t.Fatalf("expected tonal clarity, got %.3f", est.Clarity)
	}
}

func TestNewEstimator(t *testing.T) {
	if _, err := NewEstimator("mpm", 1024); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewEstimator("fft", 1024); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewEstimator("crepe", 1024); err == nil {
		t.Fatalf("expected error for unknown estimator")
	}
}

func TestDescribe(t *testing.T) {
	n, ok := Describe(466.16)
	if !ok {
		t.Fatalf("expected a note")
	}
	if n.Name != "A#" || n.Octave != 4 {
		t.Fatalf("expected A#4, got %s", n)
	}
	if math.Abs(n.Cents) > 1 {
		t.Fatalf("expected near-zero cents, got %v", n.Cents)
	}

	n, _ = Describe(452)
	if n.String() != "A4" || n.Cents <= 0 {
		t.Fatalf("expected sharp A4, got %s %+.1f", n, n.Cents)
	}

	if _, ok := Describe(0); ok {
		t.Fatalf("expected no note for 0 Hz")
	}
}

func TestPlausible(t *testing.T) {
	if (Estimate{Frequency: 20}).Plausible() {
		t.Fatalf("20 Hz should not be plausible")
	}
	if (Estimate{Frequency: 2500}).Plausible() {
		t.Fatalf("2500 Hz should not be plausible")
	}
	if !(Estimate{Frequency: 300}).Plausible() {
		t.Fatalf("300 Hz should be plausible")
	}
}
