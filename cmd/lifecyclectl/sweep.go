package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/coselection/internal/container"
)

var sweepTimeout time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the lock, release and dispute intake passes once",
	Long: `Runs every time-driven pass once as the System actor: pending earnings whose
lock period ended are locked, locked earnings of verified accounts become payable,
and open disputes move to the waiting queue. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ccfg := cfg.ToContainerConfig()
		ccfg.Sweeper.Enabled = false
		ccfg.Metrics.Enabled = false

		c, err := container.NewContainer(ccfg, logger)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return err
		}
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("Close failed", zap.Error(err))
			}
		}()

		if sweepTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, sweepTimeout)
			defer cancel()
		}

		summary, err := c.Sweeper().RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Sweep at %s\n", summary.RanAt.Format(time.RFC3339))
		fmt.Fprintf(out, "  locked:   %d applied, %d skipped\n", len(summary.Locked.Applied), len(summary.Locked.Skipped))
		fmt.Fprintf(out, "  released: %d applied, %d skipped\n", len(summary.Released.Applied), len(summary.Released.Skipped))
		fmt.Fprintf(out, "  intake:   %d applied, %d skipped\n", len(summary.Intake.Applied), len(summary.Intake.Skipped))
		return nil
	},
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepTimeout, "timeout", 2*time.Minute, "abort the run after this long")
}
