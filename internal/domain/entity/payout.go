package entity

import (
	"time"

	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Payout is a request to transfer payable earnings to a partner account
type Payout struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Status    workflow.State `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Timeline  Timeline       `json:"timeline,omitempty"`
}

// Clone returns a deep copy
func (p *Payout) Clone() *Payout {
	c := *p
	c.Timeline = p.Timeline.Clone()
	return &c
}
