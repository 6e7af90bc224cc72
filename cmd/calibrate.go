package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/0xlemi/vocalcoach/internal/audio"
	"github.com/0xlemi/vocalcoach/internal/config"
	"github.com/0xlemi/vocalcoach/internal/denoise"
	"github.com/0xlemi/vocalcoach/internal/render"
	"github.com/spf13/cobra"
)

const (
	calibrationFrame = 1024
	// reduction scales the learned noise floor before subtraction
	calibrationReduction = 1.5
)

func newCalibrateCmd() *cobra.Command {
	cfg := config.Default()
	var (
		out     string
		from    string
		seconds float64
	)
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Learn a noise model for the ml denoiser from room noise",
		Long: "Records a few seconds of the room without singing (or reads a WAV\n" +
			"recording of it) and writes a noise model for --denoiser ml.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if seconds <= 0 {
				return fmt.Errorf("seconds must be positive, got %v", seconds)
			}
			logger, closer, err := initLogger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			var pcm *render.PCM
			if from != "" {
				pcm, err = render.ReadWAV(from)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "recording %.1fs of room noise, stay quiet...\n", seconds)
				mic := audio.NewPortAudioMicrophone(cfg.BufferSize, cfg.SampleRate, cfg.Channels)
				pcm, err = record(cmd.Context(), mic, time.Duration(seconds*float64(time.Second)))
			}
			if err != nil {
				return err
			}
			if len(pcm.Samples) < calibrationFrame {
				return fmt.Errorf("noise recording too short: %d samples", len(pcm.Samples))
			}

			model := denoise.Learn(pcm.Samples, pcm.SampleRate, calibrationFrame, calibrationReduction)
			if err := denoise.WriteModelFile(out, model); err != nil {
				return err
			}
			logger.Info("noise model written", "path", out, "samples", len(pcm.Samples), "sample_rate", pcm.SampleRate)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s, use it with --denoiser ml --denoise-model %s\n", out, out)
			return nil
		},
	}
	bindLogging(cmd, &cfg)
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "destination noise model file")
	f.StringVar(&from, "from", "", "learn from a WAV recording instead of the microphone")
	f.Float64Var(&seconds, "seconds", 3, "seconds of room noise to record")
	f.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "audio sample rate in Hz")
	f.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "microphone buffer in samples")
	return cmd
}

// record captures d of raw microphone input. Host noise suppression is off
// so the model sees the room as it is.
func record(ctx context.Context, mic audio.Microphone, d time.Duration) (*render.PCM, error) {
	var (
		mu      sync.Mutex
		samples []float32
	)
	stream, err := mic.Open(ctx, audio.Constraints{}, func(in []float32) {
		mu.Lock()
		samples = append(samples, in...)
		mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("open microphone: %w", err)
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	if err := stream.Stop(); err != nil {
		return nil, fmt.Errorf("stop microphone: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return &render.PCM{Samples: samples, SampleRate: mic.SampleRate()}, nil
}
