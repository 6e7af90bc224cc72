package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioMicrophone captures from the default input device using PortAudio
type PortAudioMicrophone struct {
	bufferSize int
	sampleRate int
	channels   int
	gain       float32 // fixed input gain, never adjusted automatically
}

// NewPortAudioMicrophone creates a microphone for the default input device
func NewPortAudioMicrophone(bufferSize, sampleRate, channels int) *PortAudioMicrophone {
	if channels < 1 {
		channels = 1
	}
	return &PortAudioMicrophone{
		bufferSize: bufferSize,
		sampleRate: sampleRate,
		channels:   channels,
		gain:       1,
	}
}

// SampleRate returns the capture sample rate
func (m *PortAudioMicrophone) SampleRate() int {
	return m.sampleRate
}

// Open initializes PortAudio and starts the default input stream
func (m *PortAudioMicrophone) Open(ctx context.Context, c Constraints, h Handler) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	// PortAudio exposes raw device input; host-side suppression is best effort
	if c.NoiseSuppression || c.EchoCancellation {
		slog.Debug("host noise suppression/echo cancellation not available through PortAudio",
			"noiseSuppression", c.NoiseSuppression, "echoCancellation", c.EchoCancellation)
	}
	if c.AutoGainControl {
		slog.Debug("automatic gain control requested but gain stays fixed", "gain", m.gain)
	}

	s := &portAudioStream{
		channels: m.channels,
		gain:     m.gain,
		handler:  h,
		mono:     make([]float32, m.bufferSize),
	}

	var err error
	s.stream, err = portaudio.OpenDefaultStream(
		m.channels, // input channels
		0,          // output channels
		float64(m.sampleRate),
		m.bufferSize/m.channels, // frames per buffer
		s.process,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	s.capturing = true
	return s, nil
}

type portAudioStream struct {
	mu        sync.Mutex
	stream    *portaudio.Stream
	channels  int
	gain      float32
	handler   Handler
	mono      []float32
	capturing bool
}

// process is the PortAudio callback; it downmixes to mono and forwards
func (s *portAudioStream) process(in, _ []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.capturing {
		return
	}

	n := len(in) / s.channels
	if cap(s.mono) < n {
		s.mono = make([]float32, n)
	}
	mono := s.mono[:n]

	if s.channels > 1 {
		for i := range mono {
			sum := float32(0)
			for ch := 0; ch < s.channels; ch++ {
				sum += in[i*s.channels+ch]
			}
			mono[i] = (sum / float32(s.channels)) * s.gain
		}
	} else {
		for i, sample := range in {
			mono[i] = sample * s.gain
		}
	}

	s.handler(mono)
}

// Stop ends capture and terminates PortAudio
func (s *portAudioStream) Stop() error {
	s.mu.Lock()
	if !s.capturing {
		s.mu.Unlock()
		return ErrNotCapturing
	}
	s.capturing = false
	s.mu.Unlock()

	if err := s.stream.Stop(); err != nil {
		return err
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// IsCapturing returns true if the stream is live
func (s *portAudioStream) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}
