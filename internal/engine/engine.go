// Package engine owns the microphone-to-estimate pipeline and publishes
// live detection state once per frame.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/0xlemi/vocalcoach/internal/denoise"
	"github.com/0xlemi/vocalcoach/internal/note"
	"github.com/0xlemi/vocalcoach/internal/pitch"
	"golang.org/x/time/rate"
)

// Errors
var (
	ErrMicrophone  = errors.New("microphone access failed")
	ErrUnsupported = errors.New("audio input not supported")
)

const (
	// DefaultFrameSize is the analysis window in samples
	DefaultFrameSize = 2048

	// MinClarity is the lowest clarity accepted as a real pitch
	MinClarity = 0.8

	// DefaultThreshold is the default noise slider position
	DefaultThreshold = 30
)

// Status is the session lifecycle
type Status int

const (
	StatusIdle Status = iota
	StatusStarting
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// PitchSample is the voice estimate of one tick
type PitchSample struct {
	Pitch    float64
	HasPitch bool
	Clarity  float64
}

// TargetSample is the target of one tick
type TargetSample struct {
	Hz  float64
	Has bool
}

// Reference is what the playback side reports for a tick
type Reference struct {
	Playing  bool    // advancing, not paused or ended
	TargetHz float64 // resolved target, zero when unknown
}

// Snapshot is a copy of the published state
type Snapshot struct {
	Status          Status
	VoiceFrequency  float64
	HasVoice        bool
	VoiceDetected   bool
	PitchOutOfRange bool
	LevelDB         float64
	Clarity         float64
	Denoiser        denoise.State
	Err             string
	Pitches         []PitchSample
	Targets         []TargetSample
}

// Options configures an Engine
type Options struct {
	Microphone audio.Microphone
	Loader     denoise.ModuleLoader // ml module; nil means ml falls back to none
	Estimator  pitch.Estimator      // nil selects the McLeod estimator
	FrameSize  int
	Mode       denoise.Mode
	Range      note.RangeFrequencies
	Threshold  int
	Logger     *slog.Logger
}

// Engine is one detection session. Tick is driven by an external frame
// loop; everything else may be called from any goroutine.
type Engine struct {
	mu sync.Mutex

	mic       audio.Microphone
	loader    denoise.ModuleLoader
	estimator pitch.Estimator
	frameSize int
	logger    *slog.Logger
	anomalies *rate.Limiter

	mode      denoise.Mode
	rng       note.RangeFrequencies
	threshold int

	status  Status
	err     error
	session uint64
	stream  audio.Stream
	graph   *audio.Graph
	proc    *denoise.Processor
	ctx     context.Context
	cancel  context.CancelFunc
	frame   []float32

	voiceFrequency float64
	hasVoice       bool
	clarity        float64
	levelDB        float64
	silence        debouncer
	outOfRange     debouncer
	pitches        *History[PitchSample]
	targets        *History[TargetSample]
}

// New creates an idle engine
func New(opts Options) *Engine {
	if opts.FrameSize <= 0 {
		opts.FrameSize = DefaultFrameSize
	}
	if opts.Estimator == nil {
		opts.Estimator = pitch.NewMPMEstimator(opts.FrameSize)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Mode == "" {
		opts.Mode = denoise.ModeNone
	}
	if opts.Range.Max <= 0 {
		opts.Range, _ = note.DefaultRange.Frequencies()
	}

	e := &Engine{
		mic:       opts.Microphone,
		loader:    opts.Loader,
		estimator: opts.Estimator,
		frameSize: opts.FrameSize,
		logger:    opts.Logger,
		anomalies: rate.NewLimiter(rate.Every(5*time.Second), 1),
		mode:      opts.Mode,
		rng:       opts.Range,
		threshold: clampThreshold(opts.Threshold),
		frame:     make([]float32, opts.FrameSize),
		pitches:   NewHistory[PitchSample](HistoryCapacity),
		targets:   NewHistory[TargetSample](HistoryCapacity),
	}
	e.resetSessionLocked()
	return e
}

// Start acquires the microphone, builds the capture graph and installs the
// noise stage. Calls while starting or ready are no-ops. Failures leave the
// engine in StatusError until Start is called again.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.status == StatusStarting || e.status == StatusReady {
		e.mu.Unlock()
		return nil
	}
	if e.mic == nil {
		e.status = StatusError
		e.err = ErrUnsupported
		e.mu.Unlock()
		return ErrUnsupported
	}
	e.status = StatusStarting
	e.err = nil
	e.session++
	session := e.session
	mic, mode := e.mic, e.mode
	e.mu.Unlock()

	e.logger.Info("starting audio session", "sampleRate", mic.SampleRate(), "mode", mode)

	graph := audio.NewGraph(mic.SampleRate(), e.frameSize)
	stream, err := mic.Open(ctx, audio.VoiceConstraints, graph.Push)
	if err != nil {
		_ = graph.Close()
		err = classify(err)
		e.mu.Lock()
		if e.session == session {
			e.status = StatusError
			e.err = err
		}
		e.mu.Unlock()
		e.logger.Error("audio session failed", "err", err)
		return err
	}

	proc := denoise.NewProcessor(mic.SampleRate(), e.loader, e.logger)
	sessCtx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	if e.session != session || e.status != StatusStarting {
		// Stopped while the microphone was opening
		e.mu.Unlock()
		_ = stream.Stop()
		_ = graph.Close()
		cancel()
		return nil
	}
	e.stream, e.graph, e.proc = stream, graph, proc
	e.ctx, e.cancel = sessCtx, cancel
	e.status = StatusReady
	e.resetSessionLocked()
	e.mu.Unlock()

	return e.applyMode(ctx, mode)
}

// classify maps capture errors onto the session error taxonomy
func classify(err error) error {
	if errors.Is(err, audio.ErrUnsupported) {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return fmt.Errorf("%w: %v", ErrMicrophone, err)
}

// Stop stops the input tracks, closes the graph and cancels the session,
// in that order. Tick is a no-op afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session++
	if e.stream != nil {
		if err := e.stream.Stop(); err != nil {
			e.logger.Warn("stopping capture", "err", err)
		}
		e.stream = nil
	}
	if e.graph != nil {
		_ = e.graph.Close()
		e.graph = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.proc = nil
	e.ctx = nil
	if e.status != StatusError {
		e.status = StatusIdle
	}
	e.resetSessionLocked()
}

// SetDenoiserMode swaps the noise stage. Only the stage is rebuilt; the
// histories and flags are reset.
func (e *Engine) SetDenoiserMode(ctx context.Context, mode denoise.Mode) error {
	e.mu.Lock()
	e.mode = mode
	e.resetSessionLocked()
	ready := e.status == StatusReady
	e.mu.Unlock()

	if !ready {
		return nil
	}
	return e.applyMode(ctx, mode)
}

func (e *Engine) applyMode(ctx context.Context, mode denoise.Mode) error {
	e.mu.Lock()
	graph, proc, sessCtx := e.graph, e.proc, e.ctx
	e.mu.Unlock()
	if graph == nil || proc == nil {
		return nil
	}

	// Loads end with the call or the session, whichever is first
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(sessCtx, cancel)()

	err := proc.Apply(ctx, graph, mode)
	if errors.Is(err, denoise.ErrStale) {
		return nil
	}

	st := proc.State()
	e.logger.Debug("noise stage applied",
		"requested", st.Requested, "effective", st.Effective, "status", st.Status, "err", st.Err)

	e.mu.Lock()
	if e.proc == proc {
		e.resetSessionLocked()
	}
	e.mu.Unlock()

	if err != nil && !errors.Is(err, audio.ErrAlreadyClosed) {
		return fmt.Errorf("apply %s noise stage: %w", mode, err)
	}
	return nil
}

// SetRange changes the vocal-range gate
func (e *Engine) SetRange(r note.RangeFrequencies) {
	e.mu.Lock()
	e.rng = r
	e.outOfRange.reset(false)
	e.mu.Unlock()
}

// SetThreshold sets the 0..100 noise slider
func (e *Engine) SetThreshold(t int) {
	e.mu.Lock()
	e.threshold = clampThreshold(t)
	e.mu.Unlock()
}

// Threshold returns the noise slider position
func (e *Engine) Threshold() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// Mode returns the requested denoiser mode
func (e *Engine) Mode() denoise.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func clampThreshold(t int) int {
	return max(0, min(100, t))
}

// Snapshot copies the published state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Status:          e.status,
		VoiceFrequency:  e.voiceFrequency,
		HasVoice:        e.hasVoice,
		VoiceDetected:   !e.silence.active,
		PitchOutOfRange: e.outOfRange.active,
		LevelDB:         e.levelDB,
		Clarity:         e.clarity,
		Pitches:         e.pitches.Values(),
		Targets:         e.targets.Values(),
	}
	if e.proc != nil {
		s.Denoiser = e.proc.State()
	} else {
		s.Denoiser = denoise.State{Status: denoise.StatusIdle, Requested: e.mode, Effective: denoise.ModeNone}
	}
	if e.err != nil {
		s.Err = e.err.Error()
	}
	return s
}

// resetSessionLocked returns detection state to defaults
func (e *Engine) resetSessionLocked() {
	e.voiceFrequency, e.hasVoice = 0, false
	e.clarity = 0
	e.levelDB = pitch.SplDB(nil)
	e.silence = newDebouncer(DebounceWindow, true)
	e.outOfRange = newDebouncer(DebounceWindow, false)
	e.pitches.Clear()
	e.targets.Clear()
}
