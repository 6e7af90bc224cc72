// Package denoise builds the swappable noise-processing stage that sits
// between the microphone pre-filter and the analyser.
package denoise

import (
	"fmt"
	"strings"
)

// Mode selects the noise-processing stage
type Mode string

const (
	ModeNone Mode = "none"
	ModeDSP  Mode = "dsp"
	ModeML   Mode = "ml"
)

// Modes in the order the UI cycles through them
var Modes = []Mode{ModeNone, ModeDSP, ModeML}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeNone, ModeDSP, ModeML:
		return m, nil
	case "":
		return ModeNone, nil
	}
	return ModeNone, fmt.Errorf("unknown denoiser mode %q (want none, dsp or ml)", s)
}

// Next returns the mode after m in Modes
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeNone
}

// Status is the lifecycle of the noise stage
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is the published processor state. Effective may differ from
// Requested when the ml module failed to load.
type State struct {
	Status    Status
	Requested Mode
	Effective Mode
	Err       string
}
