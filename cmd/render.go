package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/0xlemi/vocalcoach/internal/config"
	"github.com/0xlemi/vocalcoach/internal/note"
	"github.com/0xlemi/vocalcoach/internal/render"
	"github.com/0xlemi/vocalcoach/internal/schedule"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	cfg := config.Default()
	var out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the reference audio of an exercise to a WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if out == "" {
				return errors.New("--out is required")
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			sched, err := buildSchedule(cfg)
			if err != nil {
				return err
			}
			pcm, err := newRenderer(cfg, logger).Render(cmd.Context(), sched.RenderEvents(), cfg.Gap)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			if pcm.Empty() {
				return errors.New("render produced no audio")
			}
			if err := render.WriteWAV(out, pcm); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d notes, %.2fs)\n", out, len(sched.Segments), pcm.Duration().Seconds())
			return nil
		},
	}
	bindExercise(cmd, &cfg)
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination .wav file")
	return cmd
}

// buildSchedule lays out the practice sequence described by cfg
func buildSchedule(cfg config.Config) (*schedule.Schedule, error) {
	seq := note.PracticeSequence(cfg.Start, cfg.Count)
	if len(seq) == 0 {
		return nil, fmt.Errorf("no notes for start %q", cfg.Start)
	}
	return schedule.Build(schedule.FromNames(seq, "q"), cfg.BPM, cfg.Gap)
}
