// Package config holds the practice session settings and how each one is
// resolved from flags, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/0xlemi/vocalcoach/internal/denoise"
	"github.com/0xlemi/vocalcoach/internal/engine"
	"github.com/0xlemi/vocalcoach/internal/note"
)

// RangeEnv names the environment variable holding the vocal range key
const RangeEnv = "VOCALCOACH_RANGE"

// Audio settings
const (
	DefaultSampleRate = 48000
	DefaultBufferSize = 1024
	channels          = 1
)

// Config is everything a practice session needs
type Config struct {
	// Exercise
	Start string
	Count int
	Range string
	BPM   float64
	Gap   float64 // seconds between notes

	// Detection
	Threshold    int
	Denoiser     string
	DenoiseModel string
	Estimator    string
	FrameSize    int

	// Audio
	SampleRate int
	BufferSize int
	Channels   int
	SoundFont  string

	// Logging
	LogFile string
	Debug   bool
}

// Default returns the stock settings
func Default() Config {
	return Config{
		Start:      "C4",
		Count:      5,
		BPM:        90,
		Gap:        0.25,
		Threshold:  engine.DefaultThreshold,
		Denoiser:   string(denoise.ModeDSP),
		Estimator:  "mpm",
		FrameSize:  engine.DefaultFrameSize,
		SampleRate: DefaultSampleRate,
		BufferSize: DefaultBufferSize,
		Channels:   channels,
	}
}

// Validate reports every invalid setting at once
func (c Config) Validate() error {
	var errs []error
	if _, err := note.MIDI(c.Start); err != nil {
		errs = append(errs, fmt.Errorf("start: %w", err))
	}
	if c.Count < 1 {
		errs = append(errs, fmt.Errorf("count must be at least 1, got %d", c.Count))
	}
	if c.BPM <= 0 {
		errs = append(errs, fmt.Errorf("bpm must be positive, got %v", c.BPM))
	}
	if c.Gap < 0 {
		errs = append(errs, fmt.Errorf("gap must not be negative, got %v", c.Gap))
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		errs = append(errs, fmt.Errorf("threshold must be within 0..100, got %d", c.Threshold))
	}
	if _, err := denoise.ParseMode(c.Denoiser); err != nil {
		errs = append(errs, err)
	}
	switch c.Estimator {
	case "mpm", "fft":
	default:
		errs = append(errs, fmt.Errorf("unknown estimator %q", c.Estimator))
	}
	if c.FrameSize < 256 || c.FrameSize&(c.FrameSize-1) != 0 {
		errs = append(errs, fmt.Errorf("frame size must be a power of two >= 256, got %d", c.FrameSize))
	}
	if c.SampleRate <= 0 || c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid audio settings %d Hz / %d samples", c.SampleRate, c.BufferSize))
	}
	return errors.Join(errs...)
}

// Mode returns the parsed denoiser mode
func (c Config) Mode() denoise.Mode {
	m, err := denoise.ParseMode(c.Denoiser)
	if err != nil {
		return denoise.ModeNone
	}
	return m
}

// Resolver produces a value from one source, or false when that source is
// empty.
type Resolver func() (string, bool)

// Resolve returns the first value any resolver produces
func Resolve(resolvers ...Resolver) (string, bool) {
	for _, r := range resolvers {
		if v, ok := r(); ok {
			return v, true
		}
	}
	return "", false
}

// Value resolves to v unless it is blank
func Value(v string) Resolver {
	return func() (string, bool) {
		v := strings.TrimSpace(v)
		return v, v != ""
	}
}

// Env resolves to the named environment variable
func Env(name string, getenv func(string) string) Resolver {
	if getenv == nil {
		getenv = os.Getenv
	}
	return func() (string, bool) {
		return Value(getenv(name))()
	}
}

// RangeResolvers is the vocal range lookup order: the flag, then
// VOCALCOACH_RANGE, then the default.
func (c Config) RangeResolvers(getenv func(string) string) []Resolver {
	return []Resolver{
		Value(c.Range),
		Env(RangeEnv, getenv),
	}
}

// VocalRange resolves the configured range. Unknown keys fall back to the
// default range.
func (c Config) VocalRange(getenv func(string) string) (string, note.VocalRange) {
	key, ok := Resolve(c.RangeResolvers(getenv)...)
	if !ok {
		return "default", note.DefaultRange
	}
	key = strings.ToLower(key)
	if _, known := note.Ranges[key]; !known {
		return "default", note.DefaultRange
	}
	return key, note.RangeFor(key)
}
