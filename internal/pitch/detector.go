// Package pitch estimates the fundamental frequency of sung audio and
// compares it against a target.
package pitch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/0xlemi/vocalcoach/internal/note"
)

// Errors
var (
	ErrEmptyBuffer = errors.New("empty audio buffer")
	ErrNoPitch     = errors.New("no periodic signal found")
)

// Plausible singing range; anything outside is treated as no detection
const (
	MinPlausibleHz = 30.0
	MaxPlausibleHz = 2000.0
)

// Estimate is one analysis result
type Estimate struct {
	Frequency float64 // Hz
	Clarity   float64 // 0..1 confidence that the periodicity is a real pitch
}

// Plausible reports whether the estimate is a usable vocal pitch
func (e Estimate) Plausible() bool {
	return e.Frequency >= MinPlausibleHz && e.Frequency <= MaxPlausibleHz
}

// Estimator defines the interface for pitch estimation
type Estimator interface {
	// Estimate analyzes a frame and returns the candidate pitch
	Estimate(frame *audio.Frame) (Estimate, error)
}

// NewEstimator returns the estimator registered under name ("mpm" or "fft").
func NewEstimator(name string, frameSize int) (Estimator, error) {
	switch name {
	case "", "mpm":
		return NewMPMEstimator(frameSize), nil
	case "fft":
		return NewFFTEstimator(frameSize), nil
	default:
		return nil, fmt.Errorf("unknown pitch estimator %q", name)
	}
}

// Note describes a sung pitch relative to the nearest tempered note
type Note struct {
	Name      string  // e.g., "A", "A#", "B"
	Octave    int     // e.g., 4 for middle C (C4)
	Frequency float64 // Frequency in Hz
	Cents     float64 // Cents deviation from perfect pitch (-50 to +50)
}

// String returns the scientific pitch name, e.g. "A#3"
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// Describe converts a frequency to its nearest note and cents offset. It
// reports false for non-positive or non-finite input.
func Describe(frequency float64) (Note, bool) {
	name, ok := note.Nearest(frequency)
	if !ok {
		return Note{}, false
	}

	midi, err := note.MIDI(name)
	if err != nil {
		return Note{}, false
	}

	// Cents relative to the (possibly clamped) nearest note
	cents := 1200 * math.Log2(frequency/note.FrequencyOf(midi))

	octave := midi/12 - 1
	return Note{
		Name:      strings.TrimSuffix(name, strconv.Itoa(octave)),
		Octave:    octave,
		Frequency: frequency,
		Cents:     cents,
	}, true
}
