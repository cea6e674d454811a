package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/coselection/internal/domain/lifecycle"
)

// EarningsSweeper runs the time-driven transaction passes
type EarningsSweeper interface {
	SweepLocks(ctx context.Context, now time.Time) (lifecycle.SweepReport, error)
	ReleaseEligible(ctx context.Context, now time.Time) (lifecycle.SweepReport, error)
}

// DisputeIntake runs the dispute intake pass
type DisputeIntake interface {
	IntakeOpen(ctx context.Context, now time.Time) (lifecycle.DisputeSweepReport, error)
}

// SweepConfig holds configuration for the sweep worker
type SweepConfig struct {
	Interval    time.Duration
	PassTimeout time.Duration
}

// DefaultSweepConfig returns default configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Interval:    time.Minute,
		PassTimeout: 30 * time.Second,
	}
}

// SweepSummary is the result of one run of all passes
type SweepSummary struct {
	RanAt    time.Time                    `json:"ran_at"`
	Locked   lifecycle.SweepReport        `json:"locked"`
	Released lifecycle.SweepReport        `json:"released"`
	Intake   lifecycle.DisputeSweepReport `json:"intake"`
}

// SweepWorker periodically locks due transactions, releases verified ones and moves
// new disputes into the waiting queue
type SweepWorker struct {
	config   SweepConfig
	earnings EarningsSweeper
	disputes DisputeIntake
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	runs      int
	lastRun   SweepSummary
	lastError error
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(config SweepConfig, earnings EarningsSweeper, disputes DisputeIntake, logger *zap.Logger) *SweepWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultSweepConfig().Interval
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = DefaultSweepConfig().PassTimeout
	}
	return &SweepWorker{
		config:   config,
		earnings: earnings,
		disputes: disputes,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the sweep loop
func (w *SweepWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("sweep worker already running")
	}

	var loopCtx context.Context
	loopCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("SweepWorker started", zap.Duration("interval", w.config.Interval))

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish
func (w *SweepWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("SweepWorker stopped", zap.Int("runs", w.Runs()))
	return nil
}

// Name returns the worker name for identification
func (w *SweepWorker) Name() string {
	return "SweepWorker"
}

// Runs returns how many runs completed
func (w *SweepWorker) Runs() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.runs
}

// LastRun returns the summary and error of the most recent run
func (w *SweepWorker) LastRun() (SweepSummary, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRun, w.lastError
}

func (w *SweepWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error("Sweep run failed", zap.Error(err))
			}

			w.mu.Lock()
			w.runs++
			w.lastRun, w.lastError = summary, err
			w.mu.Unlock()
		}
	}
}

// RunOnce runs every pass at the current time. Lock runs before release so that
// transactions locked in this run can be released by it; dispute intake runs alongside.
func (w *SweepWorker) RunOnce(ctx context.Context) (SweepSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.PassTimeout)
	defer cancel()

	summary := SweepSummary{RanAt: w.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		locked, err := w.earnings.SweepLocks(gctx, summary.RanAt)
		if err != nil {
			return fmt.Errorf("lock pass: %w", err)
		}
		summary.Locked = locked

		released, err := w.earnings.ReleaseEligible(gctx, summary.RanAt)
		if err != nil {
			return fmt.Errorf("release pass: %w", err)
		}
		summary.Released = released
		return nil
	})

	if w.disputes != nil {
		g.Go(func() error {
			intake, err := w.disputes.IntakeOpen(gctx, summary.RanAt)
			if err != nil {
				return fmt.Errorf("dispute intake pass: %w", err)
			}
			summary.Intake = intake
			return nil
		})
	}

	err := g.Wait()
	w.logger.Debug("Sweep run finished",
		zap.Int("locked", len(summary.Locked.Applied)),
		zap.Int("released", len(summary.Released.Applied)),
		zap.Int("disputes_queued", len(summary.Intake.Applied)),
		zap.Error(err))
	return summary, err
}
