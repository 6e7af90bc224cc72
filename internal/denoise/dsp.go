package denoise

import (
	"fmt"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/cwbudde/algo-dsp/dsp/effects"
)

// Fixed settings of the dsp stage
const (
	DSPHighpassCutoff = 80.0

	CompressorThresholdDB = -50.0
	CompressorKneeDB      = 24.0 // widest knee the compressor accepts
	CompressorRatio       = 12.0
	CompressorAttackMs    = 3.0
	CompressorReleaseMs   = 250.0
)

// DSPChain is a high-pass filter followed by a dynamics compressor
type DSPChain struct {
	highpass   *audio.Highpass
	compressor *effects.Compressor
	scratch    []float64
}

// NewDSPChain builds the deterministic dsp stage
func NewDSPChain(sampleRate int) (*DSPChain, error) {
	comp, err := NewCompressor(sampleRate)
	if err != nil {
		return nil, err
	}
	return &DSPChain{
		highpass:   audio.NewHighpass(DSPHighpassCutoff, sampleRate),
		compressor: comp,
	}, nil
}

// NewCompressor configures the dsp stage compressor. Makeup gain stays at
// 0 dB so the noise gate sees the attenuated level.
func NewCompressor(sampleRate int) (*effects.Compressor, error) {
	c, err := effects.NewCompressor(float64(sampleRate))
	if err != nil {
		return nil, err
	}
	if err := c.SetThreshold(CompressorThresholdDB); err != nil {
		return nil, err
	}
	if err := c.SetRatio(CompressorRatio); err != nil {
		return nil, err
	}
	if err := c.SetKnee(CompressorKneeDB); err != nil {
		return nil, err
	}
	if err := c.SetAttack(CompressorAttackMs); err != nil {
		return nil, err
	}
	if err := c.SetRelease(CompressorReleaseMs); err != nil {
		return nil, err
	}
	if err := c.SetMakeupGain(0); err != nil {
		return nil, fmt.Errorf("compressor makeup: %w", err)
	}
	return c, nil
}

// Process filters then compresses buf in place
func (c *DSPChain) Process(buf []float32) {
	c.highpass.Process(buf)

	if cap(c.scratch) < len(buf) {
		c.scratch = make([]float64, len(buf))
	}
	s := c.scratch[:len(buf)]
	for i, x := range buf {
		s[i] = float64(x)
	}
	c.compressor.ProcessInPlace(s)
	for i, x := range s {
		buf[i] = float32(x)
	}
}
