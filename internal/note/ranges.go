package note

import (
	"sort"
	"strings"
)

// VocalRange is a named singing range bounded by two note names.
type VocalRange struct {
	Min string
	Max string
}

// RangeFrequencies are the bounds of a vocal range in Hz.
type RangeFrequencies struct {
	Min float64
	Max float64
}

// Contains reports whether hz lies within the range, inclusive.
func (r RangeFrequencies) Contains(hz float64) bool {
	return hz >= r.Min && hz <= r.Max
}

// DefaultRange is used for unknown or missing range keys.
var DefaultRange = VocalRange{Min: "C3", Max: "C5"}

// Ranges holds the selectable vocal ranges.
var Ranges = map[string]VocalRange{
	"soprano":       {Min: "C4", Max: "C6"},
	"mezzo-soprano": {Min: "A3", Max: "A5"},
	"contralto":     {Min: "F3", Max: "F5"},
	"tenor":         {Min: "C3", Max: "C5"},
	"baritone":      {Min: "A2", Max: "A4"},
	"bass":          {Min: "E2", Max: "E4"},
}

// RangeKeys returns the known range keys in sorted order.
func RangeKeys() []string {
	keys := make([]string, 0, len(Ranges))
	for k := range Ranges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RangeFor looks up a range by key, falling back to DefaultRange.
func RangeFor(key string) VocalRange {
	if r, ok := Ranges[strings.ToLower(strings.TrimSpace(key))]; ok {
		return r
	}
	return DefaultRange
}

// Frequencies resolves the range bounds to Hz.
func (v VocalRange) Frequencies() (RangeFrequencies, error) {
	lo, err := Frequency(v.Min)
	if err != nil {
		return RangeFrequencies{}, err
	}
	hi, err := Frequency(v.Max)
	if err != nil {
		return RangeFrequencies{}, err
	}
	return RangeFrequencies{Min: lo, Max: hi}, nil
}

// Symbolic note durations in beats
var durationBeats = map[string]float64{
	"whole":     4,
	"w":         4,
	"half":      2,
	"h":         2,
	"quarter":   1,
	"q":         1,
	"eighth":    0.5,
	"e":         0.5,
	"8":         0.5,
	"sixteenth": 0.25,
	"s":         0.25,
	"16":        0.25,
}

// Beats converts a symbolic duration code to beats. Unknown codes count as
// a quarter note.
func Beats(code string) float64 {
	if b, ok := durationBeats[strings.ToLower(strings.TrimSpace(code))]; ok {
		return b
	}
	return 1
}
