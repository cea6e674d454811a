package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/coselection/internal/domain/lifecycle"
)

type fakeEarnings struct {
	lockCalls    atomic.Int32
	releaseCalls atomic.Int32
	lockErr      error
	lockedAt     time.Time
}

func (f *fakeEarnings) SweepLocks(ctx context.Context, now time.Time) (lifecycle.SweepReport, error) {
	f.lockCalls.Add(1)
	f.lockedAt = now
	if f.lockErr != nil {
		return lifecycle.SweepReport{}, f.lockErr
	}
	return lifecycle.SweepReport{Applied: []string{"t-1", "t-2"}, Skipped: []string{}}, nil
}

func (f *fakeEarnings) ReleaseEligible(ctx context.Context, now time.Time) (lifecycle.SweepReport, error) {
	f.releaseCalls.Add(1)
	return lifecycle.SweepReport{Applied: []string{"t-1"}, Skipped: []string{"t-2"}}, nil
}

type fakeIntake struct {
	calls atomic.Int32
}

func (f *fakeIntake) IntakeOpen(ctx context.Context, now time.Time) (lifecycle.DisputeSweepReport, error) {
	f.calls.Add(1)
	return lifecycle.DisputeSweepReport{Applied: []string{"d-1"}, Skipped: []string{}}, nil
}

func TestSweepWorker_RunOnce(t *testing.T) {
	earnings := &fakeEarnings{}
	intake := &fakeIntake{}
	w := NewSweepWorker(SweepConfig{}, earnings, intake, zap.NewNop())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixed, summary.RanAt)
	assert.Equal(t, fixed, earnings.lockedAt)
	assert.Equal(t, []string{"t-1", "t-2"}, summary.Locked.Applied)
	assert.Equal(t, []string{"t-1"}, summary.Released.Applied)
	assert.Equal(t, []string{"d-1"}, summary.Intake.Applied)
}

func TestSweepWorker_LockFailureSkipsRelease(t *testing.T) {
	earnings := &fakeEarnings{lockErr: errors.New("database is locked")}
	w := NewSweepWorker(SweepConfig{}, earnings, &fakeIntake{}, zap.NewNop())

	_, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock pass")
	assert.Equal(t, int32(0), earnings.releaseCalls.Load())
}

func TestSweepWorker_StartStop(t *testing.T) {
	earnings := &fakeEarnings{}
	w := NewSweepWorker(SweepConfig{Interval: 5 * time.Millisecond}, earnings, nil, zap.NewNop())

	m := NewManager(zap.NewNop())
	m.Register(w)
	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool { return w.Runs() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())

	runs := w.Runs()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, runs, w.Runs())

	_, lastErr := w.LastRun()
	assert.NoError(t, lastErr)
}
