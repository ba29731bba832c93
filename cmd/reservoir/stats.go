package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/reservoir/pkg/config"
	rerrors "github.com/ajitpratap0/reservoir/pkg/errors"
	"github.com/ajitpratap0/reservoir/pkg/json"
)

func newStatsCmd() *cobra.Command {
	var configFile string
	var spawns, ticks int
	var live bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Simulate spawner ticks and print pool statistics as JSON",
		Long: `Simulate spawner ticks without waiting on the clock and print the
resulting pool and spawner statistics. Each tick advances simulated time by
the configured interval, reaps expired actors and spawns new ones.

Example:
  reservoir stats --ticks 20 --spawns 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return err
			}
			r, err := simulate(cmd.Context(), cfg, ticks, spawns, live)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(r, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration (defaults apply when empty)")
	cmd.Flags().IntVar(&ticks, "ticks", 10, "Number of simulated ticks")
	cmd.Flags().IntVar(&spawns, "spawns", 1, "Spawns attempted per tick")
	cmd.Flags().BoolVar(&live, "live", false, "Include live actors in the output")
	return cmd
}

// simulate drives a fresh host through ticks without a real clock and
// reports its statistics. The pool is left set up so live actors stay valid.
func simulate(ctx context.Context, cfg *config.Config, ticks, spawns int, withLive bool) (report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	h, err := newHost(cfg, zap.NewNop())
	if err != nil {
		return report{}, err
	}

	now := time.Now()
	h.spawner.SetClock(func() time.Time { return now })

	for i := 0; i < ticks; i++ {
		now = now.Add(cfg.Spawner.Interval)
		if _, err := h.spawner.Reap(ctx); err != nil {
			return report{}, err
		}
		for j := 0; j < spawns; j++ {
			if _, err := h.spawner.Spawn(ctx); err != nil && !errors.Is(err, rerrors.ErrPoolExhausted) {
				return report{}, err
			}
		}
	}
	return h.snapshot(withLive), nil
}
