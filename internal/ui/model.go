// Package ui is the terminal front end of a practice session. Its frame
// loop drives the detection engine and the schedule aligner.
package ui

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/0xlemi/vocalcoach/internal/denoise"
	"github.com/0xlemi/vocalcoach/internal/engine"
	"github.com/0xlemi/vocalcoach/internal/note"
	"github.com/0xlemi/vocalcoach/internal/render"
	"github.com/0xlemi/vocalcoach/internal/schedule"
	tea "github.com/charmbracelet/bubbletea"
)

// frameInterval is the nominal frame rate of the loop
const frameInterval = time.Second / 60

// Detector is the part of engine.Engine the UI drives
type Detector interface {
	Start(ctx context.Context) error
	Stop()
	Tick(elapsed time.Duration, ref engine.Reference)
	SetDenoiserMode(ctx context.Context, mode denoise.Mode) error
	SetThreshold(t int)
	Threshold() int
	Mode() denoise.Mode
	Snapshot() engine.Snapshot
}

// Transport plays the reference audio; playback.Player implements it
type Transport interface {
	Load(pcm *render.PCM)
	Loaded() bool
	Play() error
	TogglePause()
	Stop()
	Position() time.Duration
	Duration() time.Duration
	Playing() bool
	Paused() bool
	Ended() bool
}

// Exercise describes the sequence being practised
type Exercise struct {
	Start    string
	Count    int
	BPM      float64
	Gap      float64
	Duration string // symbolic duration of every note
	RangeKey string
	Range    note.RangeFrequencies
}

// Options wires a Model
type Options struct {
	Context   context.Context
	Detector  Detector
	Transport Transport
	Renderer  render.Renderer
	Exercise  Exercise
	Logger    *slog.Logger
}

type (
	frameMsg    time.Time
	startedMsg  struct{ err error }
	modeSetMsg  struct{ err error }
	renderedMsg struct {
		gen int
		pcm *render.PCM
		err error
	}
)

// Model is the bubbletea model of one practice session
type Model struct {
	ctx       context.Context
	detector  Detector
	transport Transport
	renderer  render.Renderer
	aligner   *schedule.Aligner
	logger    *slog.Logger

	exercise Exercise
	base     string
	sequence []string
	sched    *schedule.Schedule
	buildErr error

	renderGen int
	rendering bool
	noAudio   bool
	renderErr error

	lastFrame time.Time
	started   time.Time
	now       time.Time
	snap      engine.Snapshot
	target    schedule.Resolution

	editing   bool
	editValue string
	notice    string
	width     int
}

// NewModel creates the session model
func NewModel(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Exercise.Duration == "" {
		opts.Exercise.Duration = "q"
	}
	m := Model{
		ctx:       opts.Context,
		detector:  opts.Detector,
		transport: opts.Transport,
		renderer:  opts.Renderer,
		aligner:   schedule.NewAligner(nil),
		logger:    opts.Logger,
		exercise:  opts.Exercise,
		base:      opts.Exercise.Start,
	}
	m.rebuild()
	return m
}

// Init starts the session, the first render and the frame loop
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), m.renderCmd(), frame())
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) startCmd() tea.Cmd {
	d, ctx := m.detector, m.ctx
	return func() tea.Msg {
		return startedMsg{err: d.Start(ctx)}
	}
}

// rebuild lays out the practice sequence for the current base note and
// swaps the schedule as a whole.
func (m *Model) rebuild() {
	m.sequence = note.PracticeSequence(m.base, m.exercise.Count)
	events := schedule.FromNames(m.sequence, m.exercise.Duration)
	m.sched, m.buildErr = schedule.Build(events, m.exercise.BPM, m.exercise.Gap)
	m.aligner.Replace(m.sched)
	m.renderGen++
	m.rendering = true
	m.noAudio = false
	m.renderErr = nil
}

func (m Model) renderCmd() tea.Cmd {
	gen, sched, r, ctx := m.renderGen, m.sched, m.renderer, m.ctx
	if sched == nil || r == nil {
		return func() tea.Msg { return renderedMsg{gen: gen, err: m.buildErr} }
	}
	gap := m.exercise.Gap
	return func() tea.Msg {
		pcm, err := r.Render(ctx, sched.RenderEvents(), gap)
		return renderedMsg{gen: gen, pcm: pcm, err: err}
	}
}

func (m Model) modeCmd(mode denoise.Mode) tea.Cmd {
	d, ctx := m.detector, m.ctx
	return func() tea.Msg {
		return modeSetMsg{err: d.SetDenoiserMode(ctx, mode)}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case frameMsg:
		m.onFrame(time.Time(msg))
		return m, frame()

	case startedMsg:
		if msg.err != nil {
			m.logger.Error("session start failed", "err", msg.err)
		} else {
			m.started = m.now
		}
		m.snap = m.detector.Snapshot()

	case modeSetMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}

	case renderedMsg:
		if msg.gen != m.renderGen {
			return m, nil
		}
		m.rendering = false
		m.renderErr = msg.err
		m.noAudio = msg.err != nil || msg.pcm.Empty()
		if m.noAudio {
			m.transport.Load(nil)
			if msg.err != nil {
				m.logger.Warn("reference render failed", "err", msg.err)
			}
			return m, nil
		}
		m.transport.Load(msg.pcm)
	}

	return m, nil
}

// onFrame advances the aligner and the engine by one frame
func (m *Model) onFrame(now time.Time) {
	var elapsed time.Duration
	if !m.lastFrame.IsZero() {
		elapsed = now.Sub(m.lastFrame)
	}
	m.lastFrame = now
	m.now = now
	if m.started.IsZero() && m.snap.Status == engine.StatusReady {
		m.started = now
	}

	m.target = m.aligner.Resolve(m.transport.Position().Seconds())
	m.detector.Tick(elapsed, engine.Reference{
		Playing:  m.transport.Playing(),
		TargetHz: m.target.Hz,
	})
	m.snap = m.detector.Snapshot()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}
	if m.editing {
		return m.handleEditKey(msg)
	}

	switch key {
	case "q":
		return m.quit()

	case "up", "down":
		step := 1
		if key == "down" {
			step = -1
		}
		next, ok := note.Transpose(m.base, step)
		if !ok {
			m.notice = "at the edge of the keyboard"
			return m, nil
		}
		m.base = next
		m.notice = ""
		m.transport.Stop()
		m.rebuild()
		return m, m.renderCmd()

	case " ":
		if m.noAudio || m.rendering || !m.transport.Loaded() {
			return m, nil
		}
		if m.transport.Playing() || m.transport.Paused() {
			m.transport.TogglePause()
			return m, nil
		}
		if err := m.transport.Play(); err != nil {
			m.notice = err.Error()
		}
		return m, nil

	case "t":
		m.editing = true
		m.editValue = strconv.Itoa(m.detector.Threshold())
		return m, nil

	case "d":
		next := m.detector.Mode().Next()
		m.notice = "denoiser: " + string(next)
		return m, m.modeCmd(next)

	case "r":
		// The old session is fully torn down before the new one starts
		m.transport.Stop()
		m.detector.Stop()
		m.started = time.Time{}
		m.snap = m.detector.Snapshot()
		return m, m.startCmd()
	}
	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		v, err := strconv.Atoi(m.editValue)
		if err != nil || v < 0 || v > 100 {
			m.notice = "threshold must be a number from 0 to 100"
			return m, nil
		}
		m.detector.SetThreshold(v)
		m.notice = ""
	case tea.KeyEsc:
		m.editing = false
	case tea.KeyBackspace:
		if len(m.editValue) > 0 {
			m.editValue = m.editValue[:len(m.editValue)-1]
		}
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r >= '0' && r <= '9' && len(m.editValue) < 3 {
				m.editValue += string(r)
			}
		}
	}
	// Space and every other key are swallowed while editing
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.transport.Stop()
	m.detector.Stop()
	return m, tea.Quit
}

// Err is the session error, if the engine failed to start
func (m Model) Err() error {
	if m.snap.Status == engine.StatusError {
		return errors.New(m.snap.Err)
	}
	return nil
}
