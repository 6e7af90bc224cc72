package pitch

import (
	"math"

	"github.com/0xlemi/vocalcoach/internal/note"
)

// Verdict is the comparison shown to the singer
type Verdict string

const (
	NoVerdict  Verdict = ""
	InTune     Verdict = "✅"
	SingHigher Verdict = "⬆️"
	SingLower  Verdict = "⬇️"
)

// comparisonFraction selects a quarter-tone tolerance band
const comparisonFraction = 4

// Compare judges voiceHz against targetHz. Missing, non-finite or
// non-positive input yields NoVerdict.
func Compare(targetHz, voiceHz float64) Verdict {
	if !validHz(targetHz) || !validHz(voiceHz) {
		return NoVerdict
	}

	delta := targetHz - voiceHz
	if math.Abs(delta) <= note.ToleranceHz(targetHz, comparisonFraction) {
		return InTune
	}
	if delta > 0 {
		return SingHigher
	}
	return SingLower
}

func validHz(hz float64) bool {
	return hz > 0 && !math.IsInf(hz, 0) && !math.IsNaN(hz)
}
