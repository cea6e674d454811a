package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// NewLead creates a draft lead owned by nobody, with its Created event
func NewLead(fields entity.LeadFields, submitter permission.Actor) (*entity.Lead, error) {
	if !permission.IsAllowed(submitter.Role, permission.ActionLeadSubmit) {
		return nil, &workflow.Error{
			Code:    workflow.ErrPermissionDenied,
			Kind:    workflow.KindLead,
			Message: "only submitters can create leads",
		}
	}

	lead := &entity.Lead{
		ID:          uuid.NewString(),
		SubmitterID: submitter.ID,
		Currency:    entity.DefaultCurrency,
		Status:      workflow.MustMachine(workflow.KindLead).Initial(),
		Version:     1,
	}
	lead.ApplyFields(fields)

	evt := created(submitter, lead.Status, fmt.Sprintf("Lead for %s created", displayOr(lead.CompanyName, "unnamed company")))
	return lead, stamp(&lead.Timeline, &lead.CreatedAt, &lead.UpdatedAt, evt)
}

// NewTransactionInput describes a commission to record
type NewTransactionInput struct {
	AccountID string
	LeadID    string
	Amount    int64
	Currency  string
	LockEndAt time.Time
}

// NewTransaction records a pending commission. Adjustments are only created by reversal.
func NewTransaction(in NewTransactionInput, actor permission.Actor) (*entity.EarningsTransaction, error) {
	if in.AccountID == "" {
		return nil, validation(workflow.KindTransaction, "account id is required", "account_id")
	}
	if in.Amount <= 0 {
		return nil, validation(workflow.KindTransaction, "amount must be positive", "amount")
	}
	if in.LockEndAt.IsZero() {
		return nil, validation(workflow.KindTransaction, "lock end time is required", "lock_end_at")
	}

	txn := &entity.EarningsTransaction{
		ID:        uuid.NewString(),
		AccountID: in.AccountID,
		LeadID:    in.LeadID,
		Amount:    in.Amount,
		Currency:  currencyOrDefault(in.Currency),
		State:     workflow.MustMachine(workflow.KindTransaction).Initial(),
		LockEndAt: in.LockEndAt.UTC(),
	}

	evt := created(actor, txn.State, fmt.Sprintf("Commission of %d %s recorded", txn.Amount, txn.Currency))
	return txn, stamp(&txn.Timeline, &txn.CreatedAt, &txn.UpdatedAt, evt)
}

// NewPayout creates a payout request for an account
func NewPayout(accountID string, amount int64, currency string, actor permission.Actor) (*entity.Payout, error) {
	if accountID == "" {
		return nil, validation(workflow.KindPayout, "account id is required", "account_id")
	}
	if amount <= 0 {
		return nil, validation(workflow.KindPayout, "amount must be positive", "amount")
	}

	payout := &entity.Payout{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Currency:  currencyOrDefault(currency),
		Status:    workflow.MustMachine(workflow.KindPayout).Initial(),
	}

	evt := created(actor, payout.Status, fmt.Sprintf("Payout of %d %s requested", amount, payout.Currency))
	return payout, stamp(&payout.Timeline, &payout.CreatedAt, &payout.UpdatedAt, evt)
}

// NewDispute opens a dispute against a transaction
func NewDispute(transactionID, summary string, actor permission.Actor) (*entity.DisputeCase, error) {
	if transactionID == "" {
		return nil, validation(workflow.KindDispute, "transaction id is required", "transaction_id")
	}
	if strings.TrimSpace(summary) == "" {
		return nil, validation(workflow.KindDispute, "summary is required", "summary")
	}

	dispute := &entity.DisputeCase{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		OpenedBy:      actor.ID,
		Summary:       strings.TrimSpace(summary),
		Status:        workflow.MustMachine(workflow.KindDispute).Initial(),
	}

	evt := created(actor, dispute.Status, fmt.Sprintf("Dispute opened for transaction %s", transactionID))
	return dispute, stamp(&dispute.Timeline, &dispute.CreatedAt, &dispute.UpdatedAt, evt)
}

func created(actor permission.Actor, initial workflow.State, description string) event.Event {
	return event.NewEvent(actor, event.KindCreated, description,
		event.WithMetadata(map[string]string{
			event.MetaNewState: initial.String(),
		}))
}

func stamp(timeline *entity.Timeline, createdAt, updatedAt *time.Time, evt event.Event) error {
	next, err := timeline.Append(evt)
	if err != nil {
		return fmt.Errorf("append created event: %w", err)
	}
	*timeline = next
	*createdAt = evt.OccurredAt
	*updatedAt = evt.OccurredAt
	return nil
}

func validation(kind workflow.Kind, message string, fields ...string) error {
	return &workflow.Error{
		Code:    workflow.ErrValidation,
		Kind:    kind,
		Message: message,
		Fields:  fields,
	}
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return entity.DefaultCurrency
	}
	return strings.ToUpper(currency)
}

func displayOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
