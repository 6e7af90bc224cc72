// Package note maps between pitch names, MIDI numbers and frequencies
// (equal temperament, A4 = 440Hz) and builds practice sequences.
package note

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidNote is returned for names that cannot be parsed.
var ErrInvalidNote = errors.New("invalid note name")

const (
	// Reference tuning
	A4Frequency = 440.0
	A4MIDI      = 69

	// Supported keyboard range (A0..C8)
	LowestMIDI  = 21
	HighestMIDI = 108
)

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Semitone offset of each natural letter from C
var letterOffsets = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// Major scale walk in semitones
var majorSteps = []int{2, 2, 1, 2, 2, 2, 1}

// MIDI parses a scientific pitch name ("C4", "F#3", "Bb2") into a MIDI number.
func MIDI(name string) (int, error) {
	s := strings.TrimSpace(name)
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}

	offset, ok := letterOffsets[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		offset++
		rest = rest[1:]
	case 'b':
		offset--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, name)
	}

	return (octave+1)*12 + offset, nil
}

// Name returns the sharp-spelled name of a MIDI number.
func Name(midi int) string {
	idx := midi % 12
	if idx < 0 {
		idx += 12
	}
	octave := midi/12 - 1
	if midi < 0 && midi%12 != 0 {
		octave--
	}
	return noteNames[idx] + strconv.Itoa(octave)
}

// FrequencyOf returns the equal-tempered frequency of a MIDI number.
func FrequencyOf(midi int) float64 {
	return A4Frequency * math.Pow(2, float64(midi-A4MIDI)/12)
}

// Frequency converts a pitch name to Hz.
func Frequency(name string) (float64, error) {
	midi, err := MIDI(name)
	if err != nil {
		return 0, err
	}
	return FrequencyOf(midi), nil
}

// Nearest rounds a frequency to the closest supported note name. It reports
// false for non-finite or non-positive input.
func Nearest(hz float64) (string, bool) {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return "", false
	}
	midi := int(math.Round(A4MIDI + 12*math.Log2(hz/A4Frequency)))
	midi = min(max(midi, LowestMIDI), HighestMIDI)
	return Name(midi), true
}

// Transpose shifts a note by semitones. It reports false when the result
// would leave the supported keyboard range.
func Transpose(name string, semitones int) (string, bool) {
	midi, err := MIDI(name)
	if err != nil {
		return name, false
	}
	next := midi + semitones
	if next < LowestMIDI || next > HighestMIDI {
		return name, false
	}
	return Name(next), true
}

// AscendingRun walks the major scale upward from start for count notes,
// stopping early at the top of the keyboard.
func AscendingRun(start string, count int) []string {
	midi, err := MIDI(start)
	if err != nil || count <= 0 || midi < LowestMIDI || midi > HighestMIDI {
		return nil
	}

	run := make([]string, 0, count)
	run = append(run, Name(midi))
	for i := 0; len(run) < count; i++ {
		midi += majorSteps[i%len(majorSteps)]
		if midi > HighestMIDI {
			break
		}
		run = append(run, Name(midi))
	}
	return run
}

// PracticeSequence is the ascending run followed by its mirror without the
// peak: C4,3 gives C4 D4 E4 D4 C4.
func PracticeSequence(start string, count int) []string {
	run := AscendingRun(start, count)
	if len(run) <= 1 {
		return run
	}

	seq := make([]string, 0, 2*len(run)-1)
	seq = append(seq, run...)
	for i := len(run) - 2; i >= 0; i-- {
		seq = append(seq, run[i])
	}
	return seq
}

// ToleranceHz is the width of the in-tune window around freq. A
// fractionOfTone of 4 gives a quarter tone.
func ToleranceHz(freq, fractionOfTone float64) float64 {
	return freq * (math.Pow(2, (2/fractionOfTone)/12) - 1)
}
