package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

type earningsFixture struct {
	svc      EarningsService
	txns     *mockTransactionRepo
	accounts *mockAccountRepo
	timeline *mockTimelineRepo
	disp     *mockDispatcher
	metrics  *recordingMetrics
	now      time.Time
}

func newEarningsFixture() *earningsFixture {
	now := time.Now().UTC()
	f := &earningsFixture{
		txns: newMockTransactionRepo(),
		accounts: newMockAccountRepo(
			&entity.Account{ID: "acc-verified", VerificationStatus: entity.VerificationApproved},
			&entity.Account{ID: "acc-pending", VerificationStatus: entity.VerificationPending},
		),
		timeline: newMockTimelineRepo(),
		disp:     &mockDispatcher{},
		metrics:  newRecordingMetrics(),
		now:      now,
	}
	f.svc = NewEarningsService(f.txns, f.accounts, f.timeline, &mockTxManager{}, f.disp, &mockLogger{},
		24*time.Hour, 100,
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *earningsFixture) record(t *testing.T, accountID string, lockEnd time.Time) *entity.EarningsTransaction {
	t.Helper()
	txn, err := f.svc.RecordTransaction(context.Background(), permission.SystemActor, RecordTransactionInput{
		AccountID: accountID,
		Amount:    5000,
		LockEndAt: lockEnd,
	})
	require.NoError(t, err)
	return txn
}

func TestEarningsService_RecordTransaction(t *testing.T) {
	f := newEarningsFixture()

	txn := f.record(t, "acc-verified", time.Time{})
	assert.Equal(t, workflow.TransactionPending, txn.State)
	assert.True(t, f.now.Add(24*time.Hour).Equal(txn.LockEndAt))
	assert.Equal(t, entity.DefaultCurrency, txn.Currency)
	assert.Equal(t, 1, f.timeline.count(workflow.KindTransaction, txn.ID))

	_, err := f.svc.RecordTransaction(context.Background(), permission.SystemActor, RecordTransactionInput{
		AccountID: "acc-missing",
		Amount:    100,
	})
	assert.ErrorIs(t, err, port.ErrNotFound)

	_, err = f.svc.RecordTransaction(context.Background(), permission.SystemActor, RecordTransactionInput{
		AccountID: "acc-verified",
		Amount:    -5,
	})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestEarningsService_SweepLocks_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newEarningsFixture()

	due1 := f.record(t, "acc-verified", f.now.Add(-time.Hour))
	due2 := f.record(t, "acc-pending", f.now.Add(-time.Minute))
	future := f.record(t, "acc-verified", f.now.Add(time.Hour))

	report, err := f.svc.SweepLocks(ctx, f.now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{due1.ID, due2.ID}, report.Applied)
	assert.Equal(t, []string{future.ID}, report.Skipped)

	stored, _ := f.txns.GetByID(ctx, due1.ID)
	assert.Equal(t, workflow.TransactionLocked, stored.State)
	assert.Equal(t, 2, f.timeline.count(workflow.KindTransaction, due1.ID))

	again, err := f.svc.SweepLocks(ctx, f.now)
	require.NoError(t, err)
	assert.Empty(t, again.Applied)
	assert.Equal(t, []string{future.ID}, again.Skipped)
	assert.Equal(t, [2]int{0, 1}, f.metrics.sweeps[PassLock])
	assert.Equal(t, 2, f.timeline.count(workflow.KindTransaction, due1.ID))
}

func TestEarningsService_SweepLocks_LostRaceIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newEarningsFixture()
	due := f.record(t, "acc-verified", f.now.Add(-time.Hour))

	f.txns.updateStateFunc = func(ctx context.Context, id string, from, to workflow.State, at time.Time) error {
		return port.ErrStaleWrite
	}

	report, err := f.svc.SweepLocks(ctx, f.now)
	require.NoError(t, err)
	assert.Empty(t, report.Applied)
	assert.Equal(t, []string{due.ID}, report.Skipped)
	assert.Equal(t, 1, f.timeline.count(workflow.KindTransaction, due.ID))
}

func TestEarningsService_ReleaseEligible(t *testing.T) {
	ctx := context.Background()
	f := newEarningsFixture()

	verified := f.record(t, "acc-verified", f.now.Add(-time.Hour))
	unverified := f.record(t, "acc-pending", f.now.Add(-time.Hour))
	_, err := f.svc.SweepLocks(ctx, f.now)
	require.NoError(t, err)

	report, err := f.svc.ReleaseEligible(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, []string{verified.ID}, report.Applied)
	assert.Equal(t, []string{unverified.ID}, report.Skipped)

	stored, _ := f.txns.GetByID(ctx, verified.ID)
	assert.Equal(t, workflow.TransactionPayable, stored.State)
	assert.Equal(t, [2]int{1, 1}, f.metrics.sweeps[PassRelease])
}

func TestEarningsService_TransitionTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("pending reversal happens in place", func(t *testing.T) {
		f := newEarningsFixture()
		txn := f.record(t, "acc-verified", f.now.Add(time.Hour))

		out, err := f.svc.TransitionTransaction(ctx, txn.ID, finance, TransitionInput{
			To:         workflow.TransactionReversed,
			ReasonCode: "order_cancelled",
		})
		require.NoError(t, err)
		assert.Nil(t, out.Adjustment)
		assert.Equal(t, workflow.TransactionReversed, out.Transaction.State)
	})

	t.Run("reversing payable earnings creates an adjustment", func(t *testing.T) {
		f := newEarningsFixture()
		txn := f.record(t, "acc-verified", f.now.Add(-time.Hour))
		_, err := f.svc.SweepLocks(ctx, f.now)
		require.NoError(t, err)
		_, err = f.svc.ReleaseEligible(ctx, f.now)
		require.NoError(t, err)

		out, err := f.svc.TransitionTransaction(ctx, txn.ID, finance, TransitionInput{
			To:         workflow.TransactionReversed,
			ReasonCode: "chargeback",
			Note:       "card issuer reversal",
		})
		require.NoError(t, err)
		require.NotNil(t, out.Adjustment)

		assert.Equal(t, workflow.TransactionPayable, out.Transaction.State)
		assert.Equal(t, int64(-5000), out.Adjustment.Amount)
		assert.Equal(t, txn.ID, out.Adjustment.OriginalID)
		assert.Equal(t, workflow.TransactionReversed, out.Adjustment.State)

		stored, err := f.txns.GetByID(ctx, out.Adjustment.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsAdjustment())
		assert.Equal(t, 1, f.timeline.count(workflow.KindTransaction, out.Adjustment.ID))

		last, _ := f.timeline.events["transaction/"+txn.ID].Last()
		assert.Equal(t, event.KindAdjustmentCreated, last.Kind)
	})

	t.Run("offset earnings cannot be reversed or paid again", func(t *testing.T) {
		f := newEarningsFixture()
		txn := f.record(t, "acc-verified", f.now.Add(-time.Hour))
		_, err := f.svc.SweepLocks(ctx, f.now)
		require.NoError(t, err)

		reverse := TransitionInput{To: workflow.TransactionReversed, ReasonCode: "chargeback"}
		out, err := f.svc.TransitionTransaction(ctx, txn.ID, finance, reverse)
		require.NoError(t, err)
		require.NotNil(t, out.Adjustment)
		assert.Equal(t, out.Adjustment.ID, out.Transaction.ReversedBy)

		_, err = f.svc.TransitionTransaction(ctx, txn.ID, finance, reverse)
		assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

		_, err = f.svc.TransitionTransaction(ctx, txn.ID, permission.SystemActor, TransitionInput{To: workflow.TransactionPayable})
		assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

		released, err := f.svc.ReleaseEligible(ctx, f.now)
		require.NoError(t, err)
		assert.Empty(t, released.Applied)

		all, err := f.svc.ListTransactions(ctx, port.ListFilter{AccountID: "acc-verified"})
		require.NoError(t, err)
		require.Len(t, all, 2)
		var net int64
		for _, e := range all {
			net += e.Amount
		}
		assert.Zero(t, net)

		stored, err := f.txns.GetByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.TransactionLocked, stored.State)
	})

	t.Run("release needs a verified account", func(t *testing.T) {
		f := newEarningsFixture()
		txn := f.record(t, "acc-pending", f.now.Add(-time.Hour))
		_, err := f.svc.SweepLocks(ctx, f.now)
		require.NoError(t, err)

		_, err = f.svc.TransitionTransaction(ctx, txn.ID, permission.SystemActor, TransitionInput{To: workflow.TransactionPayable})
		assert.ErrorIs(t, err, workflow.ErrGuardNotSatisfied)
		assert.True(t, workflow.IsRetryable(err))
	})

	t.Run("reversal needs a reason", func(t *testing.T) {
		f := newEarningsFixture()
		txn := f.record(t, "acc-verified", f.now.Add(time.Hour))

		_, err := f.svc.TransitionTransaction(ctx, txn.ID, finance, TransitionInput{To: workflow.TransactionReversed})
		assert.ErrorIs(t, err, workflow.ErrValidation)
		assert.Equal(t, 1, f.metrics.transitions["validation_error"])
	})
}
