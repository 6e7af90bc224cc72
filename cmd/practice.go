package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/0xlemi/vocalcoach/internal/config"
	"github.com/0xlemi/vocalcoach/internal/denoise"
	"github.com/0xlemi/vocalcoach/internal/engine"
	"github.com/0xlemi/vocalcoach/internal/pitch"
	"github.com/0xlemi/vocalcoach/internal/playback"
	"github.com/0xlemi/vocalcoach/internal/render"
	"github.com/0xlemi/vocalcoach/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"
	"github.com/spf13/cobra"
)

func newPracticeCmd() *cobra.Command {
	cfg := config.Default()
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run an interactive practice session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runPractice(cmd, cfg)
		},
	}
	bindExercise(cmd, &cfg)
	bindLogging(cmd, &cfg)
	f := cmd.Flags()
	f.StringVar(&cfg.Range, "range", cfg.Range, "vocal range: soprano, mezzo-soprano, contralto, tenor, baritone or bass (env "+config.RangeEnv+")")
	f.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "noise threshold 0..100; 0 lets everything through")
	f.StringVar(&cfg.Denoiser, "denoiser", cfg.Denoiser, "noise stage: none, dsp or ml")
	f.StringVar(&cfg.DenoiseModel, "denoise-model", cfg.DenoiseModel, "noise model for the ml denoiser (see calibrate)")
	f.StringVar(&cfg.Estimator, "estimator", cfg.Estimator, "pitch estimator: mpm or fft")
	f.IntVar(&cfg.FrameSize, "frame-size", cfg.FrameSize, "analysis window in samples")
	f.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "microphone buffer in samples")
	return cmd
}

func runPractice(cmd *cobra.Command, cfg config.Config) error {
	logger, closer, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	rangeKey, vr := cfg.VocalRange(os.Getenv)
	rangeHz, err := vr.Frequencies()
	if err != nil {
		return fmt.Errorf("vocal range %s: %w", rangeKey, err)
	}
	est, err := pitch.NewEstimator(cfg.Estimator, cfg.FrameSize)
	if err != nil {
		return err
	}

	var models denoise.ModuleLoader
	if cfg.DenoiseModel != "" {
		models = &denoise.ModelLoader{Path: cfg.DenoiseModel, Cache: denoise.NewModelCache()}
	}

	eng := engine.New(engine.Options{
		Microphone: audio.NewPortAudioMicrophone(cfg.BufferSize, cfg.SampleRate, cfg.Channels),
		Loader:     models,
		Estimator:  est,
		FrameSize:  cfg.FrameSize,
		Mode:       cfg.Mode(),
		Range:      rangeHz,
		Threshold:  cfg.Threshold,
		Logger:     logger,
	})

	sr := beep.SampleRate(cfg.SampleRate)
	renderer := newRenderer(cfg, logger)
	if err := playback.InitSpeaker(sr); err != nil {
		logger.Warn("speaker unavailable, reference playback disabled", "err", err)
		renderer = nil
	}
	player := playback.New(sr)
	defer player.Close()

	logger.Info("practice session",
		"start", cfg.Start, "count", cfg.Count, "range", rangeKey,
		"bpm", cfg.BPM, "denoiser", cfg.Denoiser, "estimator", cfg.Estimator)

	model := ui.NewModel(ui.Options{
		Context:   cmd.Context(),
		Detector:  eng,
		Transport: player,
		Renderer:  renderer,
		Logger:    logger,
		Exercise: ui.Exercise{
			Start:    cfg.Start,
			Count:    cfg.Count,
			BPM:      cfg.BPM,
			Gap:      cfg.Gap,
			RangeKey: rangeKey,
			Range:    rangeHz,
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	final, err := p.Run()
	eng.Stop()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running ui: %w", err)
	}
	if m, ok := final.(ui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

// newRenderer prefers the SoundFont piano and falls back to additive tones
func newRenderer(cfg config.Config, logger *slog.Logger) render.Renderer {
	tones := &render.ToneRenderer{SampleRate: cfg.SampleRate}
	if cfg.SoundFont == "" {
		return tones
	}
	return &render.Fallback{
		Primary:   render.NewSoundFontRenderer(cfg.SoundFont, cfg.SampleRate, render.NewSoundFontCache()),
		Secondary: tones,
		Logger:    logger,
	}
}
