package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/lifecycle"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
	"github.com/garyjia/coselection/internal/infrastructure/persistence/repository"
	"github.com/garyjia/coselection/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/coselection/migrations"
	"github.com/garyjia/coselection/pkg/database"
)

type repos struct {
	tm       *sqlite.DB
	leads    port.LeadRepository
	txns     port.TransactionRepository
	payouts  port.PayoutRepository
	disputes port.DisputeRepository
	accounts port.AccountRepository
	timeline port.TimelineRepository
}

func setup(t *testing.T) *repos {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(migrations.FS))

	return &repos{
		tm:       sqlite.NewDB(db.DB, logger),
		leads:    repository.NewLeadRepository(db.DB, logger),
		txns:     repository.NewTransactionRepository(db.DB, logger),
		payouts:  repository.NewPayoutRepository(db.DB, logger),
		disputes: repository.NewDisputeRepository(db.DB, logger),
		accounts: repository.NewAccountRepository(db.DB, logger),
		timeline: repository.NewTimelineRepository(db.DB, logger),
	}
}

var submitter = permission.Actor{ID: "u-sub", Role: permission.RoleSubmitter, DisplayName: "Sam"}

func createLead(t *testing.T, r *repos, status workflow.State) *entity.Lead {
	t.Helper()
	lead, err := lifecycle.NewLead(entity.LeadFields{
		CompanyName:    "Acme",
		ContactName:    "Dana",
		ContactEmail:   "dana@acme.test",
		EstimatedValue: 9000,
	}, submitter)
	require.NoError(t, err)
	lead.Status = status
	require.NoError(t, r.leads.Create(context.Background(), lead))
	return lead
}

func createAccount(t *testing.T, r *repos, id string, status entity.VerificationStatus) {
	t.Helper()
	now := time.Now()
	require.NoError(t, r.accounts.Create(context.Background(), &entity.Account{
		ID: id, DisplayName: id, VerificationStatus: status, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestMigrations_AreIdempotent(t *testing.T) {
	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "m.db")}, logger)
	require.NoError(t, err)
	defer db.Close()

	m := database.NewMigrator(db, logger)
	require.NoError(t, m.RunMigrations(migrations.FS))
	require.NoError(t, m.RunMigrations(migrations.FS))
}

func TestLeadRepository_RoundTrip(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	lead := createLead(t, r, workflow.LeadDraft)

	got, err := r.leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.CompanyName, got.CompanyName)
	assert.Equal(t, workflow.LeadDraft, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, lead.CreatedAt.Equal(got.CreatedAt))

	_, err = r.leads.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, port.ErrNotFound))

	list, err := r.leads.List(ctx, port.ListFilter{Status: workflow.LeadDraft})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = r.leads.List(ctx, port.ListFilter{Status: workflow.LeadApproved})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLeadRepository_UpdateStatusIsConditional(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	lead := createLead(t, r, workflow.LeadDraft)

	require.NoError(t, r.leads.UpdateStatus(ctx, lead.ID, workflow.LeadDraft, workflow.LeadSubmitted, time.Now()))

	err := r.leads.UpdateStatus(ctx, lead.ID, workflow.LeadDraft, workflow.LeadSubmitted, time.Now())
	assert.True(t, errors.Is(err, port.ErrStaleWrite))

	got, err := r.leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LeadSubmitted, got.Status)
}

func TestLeadRepository_ConcurrentClaimHasOneWinner(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	lead := createLead(t, r, workflow.LeadSubmitted)

	snapshot, err := r.leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)

	reviewers := []permission.Actor{
		{ID: "rev-a", Role: permission.RoleReviewer, DisplayName: "A"},
		{ID: "rev-b", Role: permission.RoleReviewer, DisplayName: "B"},
		{ID: "rev-c", Role: permission.RoleReviewer, DisplayName: "C"},
	}

	var (
		winner  atomic.Value
		losses  atomic.Int32
		g       errgroup.Group
		start   = make(chan struct{})
		version = snapshot.Version
	)
	for _, actor := range reviewers {
		actor := actor
		g.Go(func() error {
			<-start
			claimed, err := lifecycle.Claim(snapshot, version, actor)
			if err != nil {
				return err
			}
			err = r.leads.SwapOwner(ctx, claimed, version, "")
			if errors.Is(err, port.ErrStaleWrite) {
				losses.Add(1)
				return nil
			}
			if err != nil {
				return err
			}
			winner.Store(actor.ID)
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(len(reviewers)-1), losses.Load())

	got, err := r.leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, winner.Load(), got.OwnerID)
	assert.Equal(t, version+1, got.Version)
}

func TestLeadRepository_ClaimLosesToStatusChange(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	lead := createLead(t, r, workflow.LeadUnderReview)

	snapshot, err := r.leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)

	require.NoError(t, r.leads.UpdateStatus(ctx, lead.ID, workflow.LeadUnderReview, workflow.LeadApproved, time.Now()))

	reviewer := permission.Actor{ID: "rev-b", Role: permission.RoleReviewer, DisplayName: "B"}
	claimed, err := lifecycle.Claim(snapshot, snapshot.Version, reviewer)
	require.NoError(t, err)

	err = r.leads.SwapOwner(ctx, claimed, snapshot.Version, "")
	assert.True(t, errors.Is(err, port.ErrStaleWrite))

	got, err := r.leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LeadApproved, got.Status)
	assert.Empty(t, got.OwnerID)
	assert.Equal(t, snapshot.Version, got.Version)
}

func TestTransactionRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	createAccount(t, r, "acc-1", entity.VerificationApproved)

	lockEnd := time.Now().Add(time.Hour).Truncate(time.Second)
	txn, err := lifecycle.NewTransaction(lifecycle.NewTransactionInput{
		AccountID: "acc-1",
		Amount:    2500,
		LockEndAt: lockEnd,
	}, permission.SystemActor)
	require.NoError(t, err)
	require.NoError(t, r.txns.Create(ctx, txn))

	got, err := r.txns.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.Amount)
	assert.True(t, lockEnd.Equal(got.LockEndAt))

	pending, err := r.txns.ListByState(ctx, workflow.TransactionPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, r.txns.UpdateState(ctx, txn.ID, workflow.TransactionPending, workflow.TransactionLocked, time.Now()))
	err = r.txns.UpdateState(ctx, txn.ID, workflow.TransactionPending, workflow.TransactionLocked, time.Now())
	assert.True(t, errors.Is(err, port.ErrStaleWrite))

	err = r.txns.MarkReversed(ctx, txn.ID, workflow.TransactionPending, "adj-1", time.Now())
	assert.True(t, errors.Is(err, port.ErrStaleWrite))
	require.NoError(t, r.txns.MarkReversed(ctx, txn.ID, workflow.TransactionLocked, "adj-1", time.Now()))

	byAccount, err := r.txns.List(ctx, port.ListFilter{AccountID: "acc-1"})
	require.NoError(t, err)
	assert.Len(t, byAccount, 1)
	assert.Equal(t, "adj-1", byAccount[0].ReversedBy)
}

func TestTransactionRepository_ReversedOriginalIsFrozen(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	createAccount(t, r, "acc-1", entity.VerificationApproved)

	txn, err := lifecycle.NewTransaction(lifecycle.NewTransactionInput{
		AccountID: "acc-1", Amount: 100, LockEndAt: time.Now(),
	}, permission.SystemActor)
	require.NoError(t, err)
	txn.State = workflow.TransactionLocked
	require.NoError(t, r.txns.Create(ctx, txn))

	require.NoError(t, r.txns.MarkReversed(ctx, txn.ID, workflow.TransactionLocked, "adj-1", time.Now()))

	// a second adjustment against the same original loses
	err = r.txns.MarkReversed(ctx, txn.ID, workflow.TransactionLocked, "adj-2", time.Now())
	assert.True(t, errors.Is(err, port.ErrStaleWrite))

	err = r.txns.UpdateState(ctx, txn.ID, workflow.TransactionLocked, workflow.TransactionPayable, time.Now())
	assert.True(t, errors.Is(err, port.ErrStaleWrite))

	locked, err := r.txns.ListByState(ctx, workflow.TransactionLocked, 10)
	require.NoError(t, err)
	assert.Empty(t, locked)

	got, err := r.txns.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.TransactionLocked, got.State)
	assert.Equal(t, "adj-1", got.ReversedBy)
}

func TestDisputeRepository_Update(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	createAccount(t, r, "acc-1", entity.VerificationPending)

	txn, err := lifecycle.NewTransaction(lifecycle.NewTransactionInput{
		AccountID: "acc-1", Amount: 100, LockEndAt: time.Now(),
	}, permission.SystemActor)
	require.NoError(t, err)
	require.NoError(t, r.txns.Create(ctx, txn))

	d, err := lifecycle.NewDispute(txn.ID, "amount is wrong", permission.SystemActor)
	require.NoError(t, err)
	require.NoError(t, r.disputes.Create(ctx, d))

	resolvedAt := time.Now()
	d.Status = workflow.DisputeResolved
	d.Outcome = workflow.OutcomeAdjusted
	d.ResolvedAt = &resolvedAt
	d.UpdatedAt = resolvedAt

	err = r.disputes.Update(ctx, d, workflow.DisputeWaiting)
	assert.True(t, errors.Is(err, port.ErrStaleWrite))

	require.NoError(t, r.disputes.Update(ctx, d, workflow.DisputeOpen))
	got, err := r.disputes.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeAdjusted, got.Outcome)
	require.NotNil(t, got.ResolvedAt)
}

func TestPayoutRepository(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	createAccount(t, r, "acc-1", entity.VerificationApproved)

	p, err := lifecycle.NewPayout("acc-1", 700, "", permission.SystemActor)
	require.NoError(t, err)
	require.NoError(t, r.payouts.Create(ctx, p))

	require.NoError(t, r.payouts.UpdateStatus(ctx, p.ID, workflow.PayoutRequested, workflow.PayoutApproved, time.Now()))
	got, err := r.payouts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.PayoutApproved, got.Status)

	list, err := r.payouts.List(ctx, port.ListFilter{Status: workflow.PayoutApproved})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAccountRepository_VerifiedIDs(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	createAccount(t, r, "acc-1", entity.VerificationApproved)
	createAccount(t, r, "acc-2", entity.VerificationPending)

	verified, err := r.accounts.VerifiedIDs(ctx, []string{"acc-1", "acc-2", "acc-3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"acc-1": true}, verified)

	require.NoError(t, r.accounts.UpdateVerification(ctx, "acc-2", entity.VerificationApproved, time.Now()))
	got, err := r.accounts.GetByID(ctx, "acc-2")
	require.NoError(t, err)
	assert.True(t, got.IsVerified())

	err = r.accounts.UpdateVerification(ctx, "missing", entity.VerificationApproved, time.Now())
	assert.True(t, errors.Is(err, port.ErrNotFound))
}

func TestTimelineRepository_AtomicWithStatus(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	lead := createLead(t, r, workflow.LeadDraft)
	require.NoError(t, r.timeline.Append(ctx, workflow.KindLead, lead.ID, lead.Timeline[0]))

	change, err := lifecycle.ApplyLead(lead, lifecycle.Command{To: workflow.LeadSubmitted, Actor: submitter})
	require.NoError(t, err)

	failure := errors.New("boom")
	err = r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.leads.UpdateStatus(ctx, lead.ID, lead.Status, change.Lead.Status, change.Result.Event.OccurredAt); err != nil {
			return err
		}
		if err := r.timeline.Append(ctx, workflow.KindLead, lead.ID, change.Result.Event); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	got, err := r.leads.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.LeadDraft, got.Status, "rolled back")
	timeline, err := r.timeline.ListByEntity(ctx, workflow.KindLead, lead.ID)
	require.NoError(t, err)
	assert.Len(t, timeline, 1)

	err = r.tm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.leads.UpdateStatus(ctx, lead.ID, lead.Status, change.Lead.Status, change.Result.Event.OccurredAt); err != nil {
			return err
		}
		return r.timeline.Append(ctx, workflow.KindLead, lead.ID, change.Result.Event)
	})
	require.NoError(t, err)

	timeline, err = r.timeline.ListByEntity(ctx, workflow.KindLead, lead.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, event.KindStatusChanged, timeline[1].Kind)
	assert.Equal(t, "submitted", timeline[1].NewState())
	assert.Equal(t, permission.RoleSubmitter, timeline[1].Actor.Role)
}
