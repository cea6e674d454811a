package entity

import (
	"strings"
	"time"

	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Lead is a co-selling opportunity submitted by a partner for review
type Lead struct {
	ID             string         `json:"id"`
	SubmitterID    string         `json:"submitter_id"`
	CompanyName    string         `json:"company_name"`
	ContactName    string         `json:"contact_name"`
	ContactEmail   string         `json:"contact_email"`
	EstimatedValue int64          `json:"estimated_value"`
	Currency       string         `json:"currency"`
	Description    string         `json:"description"`
	Status         workflow.State `json:"status"`
	OwnerID        string         `json:"owner_id,omitempty"`
	OwnerName      string         `json:"owner_name,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Timeline       Timeline       `json:"timeline,omitempty"`

	// Version is only used for claim and release compare-and-set; it travels as an ETag
	Version int64 `json:"-"`
}

// LeadFields are the editable details of a lead
type LeadFields struct {
	CompanyName    string `json:"company_name"`
	ContactName    string `json:"contact_name"`
	ContactEmail   string `json:"contact_email"`
	EstimatedValue int64  `json:"estimated_value"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
}

// MissingFields lists required fields that are still blank
func (l *Lead) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(l.CompanyName) == "" {
		missing = append(missing, "company_name")
	}
	if strings.TrimSpace(l.ContactName) == "" {
		missing = append(missing, "contact_name")
	}
	if !strings.Contains(l.ContactEmail, "@") {
		missing = append(missing, "contact_email")
	}
	if l.EstimatedValue <= 0 {
		missing = append(missing, "estimated_value")
	}
	return missing
}

// ApplyFields overwrites the editable details
func (l *Lead) ApplyFields(f LeadFields) {
	l.CompanyName = strings.TrimSpace(f.CompanyName)
	l.ContactName = strings.TrimSpace(f.ContactName)
	l.ContactEmail = strings.TrimSpace(f.ContactEmail)
	l.EstimatedValue = f.EstimatedValue
	if f.Currency != "" {
		l.Currency = strings.ToUpper(f.Currency)
	}
	l.Description = f.Description
}

// IsClaimed reports whether a reviewer owns the lead
func (l *Lead) IsClaimed() bool {
	return l.OwnerID != ""
}

// Clone returns a deep copy
func (l *Lead) Clone() *Lead {
	c := *l
	c.Timeline = l.Timeline.Clone()
	return &c
}
