package entity

import "time"

// VerificationStatus is the KYC state of a partner account
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// IsValid returns true if the status is one of the defined statuses
func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	default:
		return false
	}
}

// Account is the partner profile that earns commissions and receives payouts
type Account struct {
	ID                 string             `json:"id"`
	DisplayName        string             `json:"display_name"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// IsVerified reports whether the account passed verification
func (a *Account) IsVerified() bool {
	return a != nil && a.VerificationStatus == VerificationApproved
}

// DefaultCurrency is used when a request does not name one
const DefaultCurrency = "USD"
