package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/0xlemi/vocalcoach/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vocalcoach",
		Short:         "Sing along with a piano reference and see your pitch live",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPracticeCmd(),
		newRenderCmd(),
		newCalibrateCmd(),
		newNotesCmd(),
	)
	return root
}

// bindExercise registers the flags shared by every command that builds a
// practice sequence.
func bindExercise(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	f.StringVar(&cfg.Start, "start", cfg.Start, "first note of the exercise (scientific pitch, e.g. C4)")
	f.IntVar(&cfg.Count, "count", cfg.Count, "notes in the ascending run")
	f.Float64Var(&cfg.BPM, "bpm", cfg.BPM, "tempo in quarter notes per minute")
	f.Float64Var(&cfg.Gap, "gap", cfg.Gap, "seconds of silence between notes")
	f.StringVar(&cfg.SoundFont, "soundfont", cfg.SoundFont, "General MIDI .sf2 for the piano; additive tones when empty")
	f.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "audio sample rate in Hz")
}

// bindLogging registers --log-file and --debug
func bindLogging(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log destination (default logs/vocalcoach-<time>.log)")
	f.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log at debug level")
}

// initLogger opens the log file and installs a text slog handler as the
// default. The terminal belongs to the UI, so logs never go to stdout.
func initLogger(cfg config.Config) (*slog.Logger, io.Closer, error) {
	path := cfg.LogFile
	if path == "" {
		path = filepath.Join("logs", fmt.Sprintf("vocalcoach-%s.log", time.Now().Format("20060102-150405")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.Debug,
	}))
	slog.SetDefault(logger)
	return logger, f, nil
}
