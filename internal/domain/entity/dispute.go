package entity

import (
	"time"

	"github.com/garyjia/coselection/internal/domain/workflow"
)

// DisputeCase contests an earnings transaction. Outcome is set once, with the Resolved transition.
type DisputeCase struct {
	ID            string           `json:"id"`
	TransactionID string           `json:"transaction_id"`
	OpenedBy      string           `json:"opened_by"`
	Summary       string           `json:"summary"`
	Status        workflow.State   `json:"status"`
	Outcome       workflow.Outcome `json:"outcome,omitempty"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Timeline      Timeline         `json:"timeline,omitempty"`
}

// Clone returns a deep copy
func (d *DisputeCase) Clone() *DisputeCase {
	c := *d
	if d.ResolvedAt != nil {
		t := *d.ResolvedAt
		c.ResolvedAt = &t
	}
	c.Timeline = d.Timeline.Clone()
	return &c
}
