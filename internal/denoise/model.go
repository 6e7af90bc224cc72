package denoise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/0xlemi/vocalcoach/internal/loader"
)

// ErrNoModel means no ml denoiser model is configured
var ErrNoModel = errors.New("no denoiser model configured")

// LoadPanicError wraps a panic raised while loading the ml module
type LoadPanicError struct {
	Value any
}

func (e *LoadPanicError) Error() string {
	return fmt.Sprintf("denoiser module panicked while loading: %v", e.Value)
}

// Model is a learned noise profile for the spectral denoiser
type Model struct {
	SampleRate int       `json:"sampleRate"`
	FrameSize  int       `json:"frameSize"`
	Noise      []float64 `json:"noise"`     // mean magnitude per bin, FrameSize/2+1 entries
	Reduction  float64   `json:"reduction"` // over-subtraction factor
}

// Validate checks the model shape
func (m *Model) Validate() error {
	if m.SampleRate <= 0 {
		return fmt.Errorf("model sample rate %d is invalid", m.SampleRate)
	}
	if m.FrameSize < 64 || m.FrameSize&(m.FrameSize-1) != 0 {
		return fmt.Errorf("model frame size %d must be a power of two >= 64", m.FrameSize)
	}
	if len(m.Noise) != m.FrameSize/2+1 {
		return fmt.Errorf("model has %d noise bins, want %d", len(m.Noise), m.FrameSize/2+1)
	}
	if m.Reduction <= 0 {
		m.Reduction = 1
	}
	return nil
}

// ReadModelFile loads and validates a model from a JSON file. It has the
// loader.LoadFunc shape so it can back a loader.Cache.
func ReadModelFile(_ context.Context, path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read denoiser model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse denoiser model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("denoiser model %s: %w", path, err)
	}
	return &m, nil
}

// WriteModelFile saves a model as JSON
func WriteModelFile(path string, m *Model) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ModelLoader loads the spectral denoiser from a model file through a
// shared cache.
type ModelLoader struct {
	Path  string
	Cache *loader.Cache[*Model]
}

// NewModelCache returns the cache used by ModelLoader
func NewModelCache() *loader.Cache[*Model] {
	return loader.New(ReadModelFile)
}

// Load returns a spectral gate for the configured model
func (l *ModelLoader) Load(ctx context.Context, sampleRate int) (audio.Node, error) {
	if l.Path == "" {
		return nil, ErrNoModel
	}

	var (
		m   *Model
		err error
	)
	if l.Cache != nil {
		m, err = l.Cache.Get(ctx, l.Path)
	} else {
		m, err = ReadModelFile(ctx, l.Path)
	}
	if err != nil {
		return nil, err
	}

	if m.SampleRate != sampleRate {
		return nil, fmt.Errorf("denoiser model recorded at %d Hz, session runs at %d Hz", m.SampleRate, sampleRate)
	}
	return NewSpectralGate(m), nil
}
