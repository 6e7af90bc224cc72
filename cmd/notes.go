package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/0xlemi/vocalcoach/internal/config"
	"github.com/0xlemi/vocalcoach/internal/note"
	"github.com/spf13/cobra"
)

// quarterTone is the in-tune window used by the practice screen
const quarterTone = 4

func newNotesCmd() *cobra.Command {
	cfg := config.Default()
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Print the exercise timeline with target frequencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			sched, err := buildSchedule(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tNOTE\tHZ\t±HZ\tSTART\tEND")
			for _, s := range sched.Segments {
				fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%.2fs\t%.2fs\n",
					s.Index+1, s.Note, s.Hz, note.ToleranceHz(s.Hz, quarterTone), s.Start, s.End)
			}
			fmt.Fprintf(w, "\ntotal\t\t\t\t\t%.2fs\n", sched.Duration())
			return w.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Start, "start", cfg.Start, "first note of the exercise")
	f.IntVar(&cfg.Count, "count", cfg.Count, "notes in the ascending run")
	f.Float64Var(&cfg.BPM, "bpm", cfg.BPM, "tempo in quarter notes per minute")
	f.Float64Var(&cfg.Gap, "gap", cfg.Gap, "seconds of silence between notes")
	return cmd
}
