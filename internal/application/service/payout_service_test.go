package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

func newPayoutFixture() (PayoutService, *mockPayoutRepo, *mockTimelineRepo) {
	payouts := &mockPayoutRepo{}
	timeline := newMockTimelineRepo()
	accounts := newMockAccountRepo(&entity.Account{ID: "acc-1", VerificationStatus: entity.VerificationApproved})
	svc := NewPayoutService(payouts, accounts, timeline, &mockTxManager{}, &mockDispatcher{}, &mockLogger{})
	return svc, payouts, timeline
}

func TestPayoutService_RequestPayout(t *testing.T) {
	ctx := context.Background()
	svc, _, timeline := newPayoutFixture()

	payout, err := svc.RequestPayout(ctx, finance, RequestPayoutInput{AccountID: "acc-1", Amount: 12000, Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, workflow.PayoutRequested, payout.Status)
	assert.Equal(t, "EUR", payout.Currency)
	assert.Equal(t, 1, timeline.count(workflow.KindPayout, payout.ID))

	_, err = svc.RequestPayout(ctx, finance, RequestPayoutInput{AccountID: "acc-unknown", Amount: 100})
	assert.ErrorIs(t, err, port.ErrNotFound)

	_, err = svc.RequestPayout(ctx, finance, RequestPayoutInput{AccountID: "acc-1"})
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestPayoutService_TransitionPayout(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		steps   []TransitionInput
		actor   permission.Actor
		input   TransitionInput
		wantErr error
		want    workflow.State
	}{
		{
			name:  "finance approves",
			actor: finance,
			input: TransitionInput{To: workflow.PayoutApproved},
			want:  workflow.PayoutApproved,
		},
		{
			name:    "rejection needs a reason",
			actor:   finance,
			input:   TransitionInput{To: workflow.PayoutRejected},
			wantErr: workflow.ErrValidation,
		},
		{
			name:    "reviewer cannot approve payouts",
			actor:   reviewer,
			input:   TransitionInput{To: workflow.PayoutApproved},
			wantErr: workflow.ErrPermissionDenied,
		},
		{
			name:  "system records a failed transfer",
			steps: []TransitionInput{{To: workflow.PayoutApproved}},
			actor: permission.SystemActor,
			input: TransitionInput{To: workflow.PayoutFailed, ReasonCode: "bank_rejected"},
			want:  workflow.PayoutFailed,
		},
		{
			name:    "approved payouts cannot return to requested",
			steps:   []TransitionInput{{To: workflow.PayoutApproved}},
			actor:   finance,
			input:   TransitionInput{To: workflow.PayoutRequested},
			wantErr: workflow.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, payouts, _ := newPayoutFixture()
			payout, err := svc.RequestPayout(ctx, finance, RequestPayoutInput{AccountID: "acc-1", Amount: 500})
			require.NoError(t, err)
			for _, step := range tt.steps {
				_, err := svc.TransitionPayout(ctx, payout.ID, finance, step)
				require.NoError(t, err)
			}

			got, err := svc.TransitionPayout(ctx, payout.ID, tt.actor, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.want, payouts.payouts[payout.ID].Status)
		})
	}
}
