package denoise

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/0xlemi/vocalcoach/internal/audio"
)

// ErrStale is returned when a newer Apply superseded this one
var ErrStale = errors.New("noise stage rebuild superseded")

// ModuleLoader loads the external ml denoising module
type ModuleLoader interface {
	Load(ctx context.Context, sampleRate int) (audio.Node, error)
}

// Slot is where the built stage is installed; audio.Graph satisfies it.
type Slot interface {
	SetStage(n audio.Node) error
}

// Processor owns the noise stage for one audio session
type Processor struct {
	mu         sync.Mutex
	sampleRate int
	loader     ModuleLoader
	state      State
	generation uint64
	logger     *slog.Logger
}

// NewProcessor creates an idle processor. loader may be nil, in which case
// ml mode always falls back to pass-through.
func NewProcessor(sampleRate int, loader ModuleLoader, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		sampleRate: sampleRate,
		loader:     loader,
		logger:     logger,
		state:      State{Status: StatusIdle, Requested: ModeNone, Effective: ModeNone},
	}
}

// State returns the current state
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Ready reports whether the stage is usable for analysis
func (p *Processor) Ready() bool {
	return p.State().Status == StatusReady
}

// Reset returns the processor to idle, abandoning any load in flight
func (p *Processor) Reset() {
	p.mu.Lock()
	p.generation++
	p.state = State{Status: StatusIdle, Requested: p.state.Requested, Effective: ModeNone}
	p.mu.Unlock()
}

// Apply tears down the stage currently in slot, builds the stage for mode
// and installs it. ml load failures never surface here: the slot gets a
// pass-through stage and the failure is recorded in State.Err.
func (p *Processor) Apply(ctx context.Context, slot Slot, mode Mode) error {
	gen := p.next()

	// Discard the old stage before constructing the new one
	if err := slot.SetStage(nil); err != nil {
		p.fail(gen, mode, err)
		return err
	}

	node := p.build(ctx, gen, mode)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		if d, ok := node.(audio.Disconnecter); ok {
			d.Disconnect()
		}
		return ErrStale
	}
	if err := slot.SetStage(node); err != nil {
		p.state = State{Status: StatusError, Requested: mode, Effective: ModeNone, Err: err.Error()}
		return err
	}
	return nil
}

// Build constructs the stage for mode and updates State. It never fails;
// the worst case is a pass-through stage.
func (p *Processor) Build(ctx context.Context, mode Mode) audio.Node {
	return p.build(ctx, p.next(), mode)
}

func (p *Processor) build(ctx context.Context, gen uint64, mode Mode) audio.Node {
	switch mode {
	case ModeDSP:
		chain, err := NewDSPChain(p.sampleRate)
		if err != nil {
			p.logger.Warn("dsp denoiser unavailable, continuing without it", "err", err)
			p.setState(gen, State{Status: StatusReady, Requested: mode, Effective: ModeNone, Err: err.Error()})
			return audio.Passthrough{}
		}
		p.setState(gen, State{Status: StatusReady, Requested: mode, Effective: ModeDSP})
		return chain

	case ModeML:
		p.setState(gen, State{Status: StatusLoading, Requested: mode, Effective: ModeNone})
		node, err := p.loadModule(ctx)
		if err != nil {
			p.logger.Warn("ml denoiser unavailable, continuing without it", "err", err)
			p.setState(gen, State{Status: StatusReady, Requested: mode, Effective: ModeNone, Err: err.Error()})
			return audio.Passthrough{}
		}
		p.setState(gen, State{Status: StatusReady, Requested: mode, Effective: ModeML})
		return node

	default:
		p.setState(gen, State{Status: StatusReady, Requested: ModeNone, Effective: ModeNone})
		return audio.Passthrough{}
	}
}

// loadModule calls the loader, converting panics into errors
func (p *Processor) loadModule(ctx context.Context) (node audio.Node, err error) {
	if p.loader == nil {
		return nil, ErrNoModel
	}
	defer func() {
		if r := recover(); r != nil {
			node, err = nil, &LoadPanicError{Value: r}
		}
	}()
	node, err = p.loader.Load(ctx, p.sampleRate)
	if err == nil && node == nil {
		err = ErrNoModel
	}
	return node, err
}

func (p *Processor) next() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	return p.generation
}

// setState publishes s unless a newer build has started
func (p *Processor) setState(gen uint64, s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.generation {
		p.state = s
	}
}

func (p *Processor) fail(gen uint64, mode Mode, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.generation {
		p.state = State{Status: StatusError, Requested: mode, Effective: ModeNone, Err: err.Error()}
	}
}
