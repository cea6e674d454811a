package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when no row matches the id
	ErrNotFound = errors.New("record not found")

	// ErrStaleWrite is returned when a conditional update matched no row because the
	// record moved since it was read
	ErrStaleWrite = errors.New("stale write")
)

// ListFilter narrows list queries. Empty fields match everything.
type ListFilter struct {
	Status    workflow.State
	OwnerID   string
	AccountID string
	Limit     int
	Offset    int
}

// LeadRepository defines persistence operations for Lead
type LeadRepository interface {
	Create(ctx context.Context, lead *entity.Lead) error
	GetByID(ctx context.Context, id string) (*entity.Lead, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Lead, error)

	// UpdateStatus moves the lead only if it is still in from
	UpdateStatus(ctx context.Context, id string, from, to workflow.State, at time.Time) error

	// UpdateFields writes the editable details only if the status is still the one read
	UpdateFields(ctx context.Context, lead *entity.Lead, status workflow.State) error

	// SwapOwner is the claim and release compare-and-set: it writes the new owner and
	// version only if the stored version and owner still equal the expected ones and the
	// stored status still equals lead.Status
	SwapOwner(ctx context.Context, lead *entity.Lead, expectedVersion int64, expectedOwner string) error
}

// TransactionRepository defines persistence operations for EarningsTransaction
type TransactionRepository interface {
	Create(ctx context.Context, txn *entity.EarningsTransaction) error
	GetByID(ctx context.Context, id string) (*entity.EarningsTransaction, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.EarningsTransaction, error)

	// ListByState returns up to limit transactions in the state, oldest lock end first
	ListByState(ctx context.Context, state workflow.State, limit int) ([]*entity.EarningsTransaction, error)

	// UpdateState moves the transaction only if it is still in from and not reversed
	UpdateState(ctx context.Context, id string, from, to workflow.State, at time.Time) error

	// MarkReversed records the adjustment that offsets the transaction, only if it is
	// still in state and has no adjustment yet
	MarkReversed(ctx context.Context, id string, state workflow.State, adjustmentID string, at time.Time) error
}

// PayoutRepository defines persistence operations for Payout
type PayoutRepository interface {
	Create(ctx context.Context, payout *entity.Payout) error
	GetByID(ctx context.Context, id string) (*entity.Payout, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Payout, error)
	UpdateStatus(ctx context.Context, id string, from, to workflow.State, at time.Time) error
}

// DisputeRepository defines persistence operations for DisputeCase
type DisputeRepository interface {
	Create(ctx context.Context, dispute *entity.DisputeCase) error
	GetByID(ctx context.Context, id string) (*entity.DisputeCase, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.DisputeCase, error)

	// Update writes status, outcome and resolution time only if the stored status is from
	Update(ctx context.Context, dispute *entity.DisputeCase, from workflow.State) error
}

// AccountRepository defines persistence operations for Account
type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	UpdateVerification(ctx context.Context, id string, status entity.VerificationStatus, at time.Time) error

	// VerifiedIDs reports which of the given accounts are verified
	VerifiedIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// TimelineRepository stores the audit events of every entity kind
type TimelineRepository interface {
	Append(ctx context.Context, kind workflow.Kind, entityID string, evt event.Event) error
	ListByEntity(ctx context.Context, kind workflow.Kind, entityID string) (entity.Timeline, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
