package entity

import (
	"time"

	"github.com/garyjia/coselection/internal/domain/workflow"
)

// EarningsTransaction is a commission earned by a partner account.
// Amount is in minor currency units and its sign is the only marker of an adjustment.
type EarningsTransaction struct {
	ID         string         `json:"id"`
	AccountID  string         `json:"account_id"`
	LeadID     string         `json:"lead_id,omitempty"`
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	State      workflow.State `json:"state"`
	LockEndAt  time.Time      `json:"lock_end_at"`
	OriginalID string         `json:"original_id,omitempty"`
	ReversedBy string         `json:"reversed_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Timeline   Timeline       `json:"timeline,omitempty"`
}

// IsAdjustment reports whether the transaction offsets an earlier one
func (t *EarningsTransaction) IsAdjustment() bool {
	return t.Amount < 0
}

// IsOffset reports whether an adjustment already reversed this transaction
func (t *EarningsTransaction) IsOffset() bool {
	return t.ReversedBy != ""
}

// Clone returns a deep copy
func (t *EarningsTransaction) Clone() *EarningsTransaction {
	c := *t
	c.Timeline = t.Timeline.Clone()
	return &c
}
