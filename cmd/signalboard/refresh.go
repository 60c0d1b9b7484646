package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
)

type refreshOptions struct {
	force   bool
	timeout time.Duration
}

func newRefreshCmd(flags *rootFlags) *cobra.Command {
	opts := &refreshOptions{}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh batch and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags)
			if err != nil {
				return err
			}
			defer app.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			summary, err := app.eng.RefreshAll(ctx, opts.force)
			if err != nil {
				return err
			}

			for _, outcome := range summary.Signals {
				if outcome.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "- %-28s skipped (within poll interval)\n", outcome.ID)
					continue
				}
				mark := "✓"
				if outcome.Status == signal.StatusBad {
					mark = "✗"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-28s %-7s %s\n", mark, outcome.ID, outcome.Status, outcome.Value)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n%d ok, %d warn, %d bad, %d skipped in %s\n",
				summary.OK, summary.Warn, summary.Bad, summary.Skipped, summary.Duration.Round(time.Millisecond))

			if summary.FlushError != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: cache flush failed: %s\n", summary.FlushError)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Refresh every signal, ignoring poll intervals")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "Overall batch timeout")

	return cmd
}
