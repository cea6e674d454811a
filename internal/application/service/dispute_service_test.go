package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

func newDisputeFixture() (DisputeService, *mockDisputeRepo, *recordingMetrics) {
	disputes := &mockDisputeRepo{}
	txns := newMockTransactionRepo(&entity.EarningsTransaction{
		ID:        "txn-1",
		AccountID: "acc-1",
		Amount:    1000,
		State:     workflow.TransactionPaid,
	})
	metrics := newRecordingMetrics()
	svc := NewDisputeService(disputes, txns, newMockTimelineRepo(), &mockTxManager{}, &mockDispatcher{}, &mockLogger{}, 50,
		WithMetrics(metrics))
	return svc, disputes, metrics
}

func TestDisputeService_OpenDispute(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newDisputeFixture()

	dispute, err := svc.OpenDispute(ctx, submitter, OpenDisputeInput{TransactionID: "txn-1", Summary: "Commission was never paid out"})
	require.NoError(t, err)
	assert.Equal(t, workflow.DisputeOpen, dispute.Status)
	assert.Equal(t, submitter.ID, dispute.OpenedBy)

	_, err = svc.OpenDispute(ctx, submitter, OpenDisputeInput{TransactionID: "txn-missing", Summary: "x"})
	assert.ErrorIs(t, err, port.ErrNotFound)

	_, err = svc.OpenDispute(ctx, submitter, OpenDisputeInput{TransactionID: "txn-1", Summary: "  "})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestDisputeService_IntakeAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, disputes, metrics := newDisputeFixture()

	first, err := svc.OpenDispute(ctx, submitter, OpenDisputeInput{TransactionID: "txn-1", Summary: "Amount too low"})
	require.NoError(t, err)
	second, err := svc.OpenDispute(ctx, submitter, OpenDisputeInput{TransactionID: "txn-1", Summary: "Wrong currency"})
	require.NoError(t, err)

	_, err = svc.TransitionDispute(ctx, first.ID, reviewer, TransitionInput{To: workflow.DisputeWaiting})
	assert.ErrorIs(t, err, workflow.ErrPermissionDenied)

	report, err := svc.IntakeOpen(ctx, time.Now())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, report.Applied)
	assert.Equal(t, [2]int{2, 0}, metrics.sweeps[PassIntake])

	again, err := svc.IntakeOpen(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, again.Applied)

	_, err = svc.TransitionDispute(ctx, first.ID, reviewer, TransitionInput{To: workflow.DisputeResolved})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	resolved, err := svc.TransitionDispute(ctx, first.ID, reviewer, TransitionInput{
		To:      workflow.DisputeResolved,
		Outcome: workflow.OutcomeAdjusted,
		Note:    "Corrected by adjustment",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeAdjusted, resolved.Outcome)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, workflow.DisputeResolved, disputes.disputes[first.ID].Status)

	_, err = svc.TransitionDispute(ctx, first.ID, permission.SystemActor, TransitionInput{To: workflow.DisputeWaiting})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}
