package audio

import (
	"context"
	"errors"
)

// Errors
var (
	ErrUnsupported   = errors.New("audio input not supported on this host")
	ErrNoDevice      = errors.New("microphone unavailable or access denied")
	ErrNotCapturing  = errors.New("audio capture not started")
	ErrAlreadyClosed = errors.New("audio graph closed")
)

// Frame is a block of mono samples
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Constraints are the processing options requested from the input device.
type Constraints struct {
	NoiseSuppression bool
	EchoCancellation bool
	AutoGainControl  bool
}

// VoiceConstraints asks the host for noise suppression and echo
// cancellation but keeps gain fixed; automatic gain fights the denoiser.
var VoiceConstraints = Constraints{
	NoiseSuppression: true,
	EchoCancellation: true,
	AutoGainControl:  false,
}

// Handler receives each captured block on the capture goroutine. The slice
// is only valid for the duration of the call.
type Handler func(samples []float32)

// Microphone grants access to an input device
type Microphone interface {
	// Open starts capture and delivers mono blocks to h
	Open(ctx context.Context, c Constraints, h Handler) (Stream, error)

	// SampleRate is the rate blocks are delivered at
	SampleRate() int
}

// Stream is a live capture that must be stopped to release the device.
type Stream interface {
	// Stop ends capture and releases the device
	Stop() error

	// IsCapturing returns true until Stop is called
	IsCapturing() bool
}
