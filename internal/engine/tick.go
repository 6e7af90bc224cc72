package engine

import (
	"fmt"
	"time"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/0xlemi/vocalcoach/internal/pitch"
)

// Tick runs one analysis step. elapsed is the wall-clock time since the
// previous tick; debounce windows are measured with it, never in ticks.
// Tick does nothing unless the session and its noise stage are ready.
func (e *Engine) Tick(elapsed time.Duration, ref Reference) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != StatusReady || e.graph == nil || e.proc == nil || !e.proc.Ready() {
		return
	}

	est, levelDB, ok := e.analyseLocked()
	e.levelDB = levelDB

	// Level gating already happened inside analyse; only a surviving
	// estimate reaches the range gate.
	if ok {
		e.voiceFrequency, e.hasVoice, e.clarity = est.Frequency, true, est.Clarity
	} else {
		e.voiceFrequency, e.hasVoice, e.clarity = 0, false, est.Clarity
	}

	wasDetected := !e.silence.active
	detected := !e.silence.update(!ok, elapsed)
	if detected != wasDetected {
		e.logger.Debug("voice presence changed", "detected", detected)
	}

	wasOut := e.outOfRange.active
	out := e.outOfRange.update(ok && !e.rng.Contains(est.Frequency), elapsed)
	if out != wasOut {
		e.logger.Debug("range state changed", "outOfRange", out, "hz", est.Frequency)
	}

	if ref.Playing {
		e.pitches.Push(PitchSample{Pitch: e.voiceFrequency, HasPitch: e.hasVoice, Clarity: e.clarity})
		e.targets.Push(TargetSample{Hz: ref.TargetHz, Has: ref.TargetHz > 0})
	}
}

// analyseLocked reads the analyser and estimates the pitch. A panic in the
// estimator counts as no estimate for this tick.
func (e *Engine) analyseLocked() (est pitch.Estimate, levelDB float64, ok bool) {
	levelDB = pitch.SplDB(nil)
	defer func() {
		if r := recover(); r != nil {
			est, ok = pitch.Estimate{}, false
			e.anomaly(fmt.Errorf("estimator panic: %v", r))
		}
	}()

	n := e.graph.Analyser().Read(e.frame)
	if n == 0 {
		return est, levelDB, false
	}
	levelDB = pitch.SplDB(e.frame[len(e.frame)-n:])

	// Signal level is gated before any frequency decision
	if pitch.BelowNoiseFloor(levelDB, pitch.ThresholdCutoffDB(e.threshold)) {
		return est, levelDB, false
	}
	if n < len(e.frame) {
		return est, levelDB, false
	}

	est, err := e.estimator.Estimate(&audio.Frame{Samples: e.frame, SampleRate: e.graph.SampleRate()})
	if err != nil {
		return pitch.Estimate{}, levelDB, false
	}
	if est.Clarity < MinClarity || !est.Plausible() {
		return est, levelDB, false
	}
	return est, levelDB, true
}

// anomaly logs an unexpected per-tick failure without flooding the log
func (e *Engine) anomaly(err error) {
	if e.anomalies.Allow() {
		e.logger.Warn("tick estimation anomaly", "err", err)
	}
}
