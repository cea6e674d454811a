package workflow

import (
	"strings"
	"time"
)

// Effect describes how a successful transition must be applied
type Effect uint8

const (
	// EffectInPlace moves the entity itself to the target state
	EffectInPlace Effect = 0
	// EffectAdjustment leaves the entity's state and amount alone and spawns a
	// negated adjustment entity in the target state
	EffectAdjustment Effect = 1 << 0
	// EffectOutcome records the request's resolution outcome on the entity
	EffectOutcome Effect = 1 << 1
)

// Has reports whether all bits of other are set
func (e Effect) Has(other Effect) bool {
	return other != 0 && e&other == other
}

// Guard is a precondition on an edge. Evaluate returns the effect it imposes, or a rejection.
type Guard struct {
	Name     string
	Evaluate func(req Request) (Effect, error)

	// reasons is the closed enumeration accepted by a reason-required guard
	reasons []ReasonCode
}

// Guard names
const (
	GuardReasonRequired  = "reason_required"
	GuardNoteRequired    = "note_required"
	GuardFieldsComplete  = "fields_complete"
	GuardLockElapsed     = "lock_elapsed"
	GuardVerification    = "verification_approved"
	GuardAmountIntegrity = "amount_integrity"
	GuardNotOffset       = "not_offset"
	GuardOutcomeSet      = "outcome_set"
)

// RequireReason accepts only a reason code from the given enumeration
func RequireReason(codes ...ReasonCode) Guard {
	allowed := append([]ReasonCode{}, codes...)
	return Guard{
		Name:    GuardReasonRequired,
		reasons: allowed,
		Evaluate: func(req Request) (Effect, error) {
			if req.ReasonCode == "" {
				return EffectInPlace, newError(ErrValidation, "a reason code is required")
			}
			for _, code := range allowed {
				if code == req.ReasonCode {
					return EffectInPlace, nil
				}
			}
			return EffectInPlace, newError(ErrValidation, "reason code %q is not accepted here", req.ReasonCode)
		},
	}
}

// RequireNote demands a non-blank free-text note
func RequireNote() Guard {
	return Guard{
		Name: GuardNoteRequired,
		Evaluate: func(req Request) (Effect, error) {
			if strings.TrimSpace(req.Note) == "" {
				return EffectInPlace, newError(ErrValidation, "a note is required")
			}
			return EffectInPlace, nil
		},
	}
}

// RequireFields fails when the snapshot reports missing required fields
func RequireFields() Guard {
	return Guard{
		Name: GuardFieldsComplete,
		Evaluate: func(req Request) (Effect, error) {
			if len(req.Facts.MissingFields) > 0 {
				err := newError(ErrValidation, "missing required fields: %s", strings.Join(req.Facts.MissingFields, ", "))
				err.Fields = append([]string{}, req.Facts.MissingFields...)
				return EffectInPlace, err
			}
			return EffectInPlace, nil
		},
	}
}

// LockElapsed requires now >= lockEndAt
func LockElapsed() Guard {
	return Guard{
		Name: GuardLockElapsed,
		Evaluate: func(req Request) (Effect, error) {
			if req.Facts.Now.IsZero() {
				return EffectInPlace, newError(ErrGuardNotSatisfied, "evaluation time not provided")
			}
			if req.Facts.Now.Before(req.Facts.LockEndAt) {
				return EffectInPlace, newError(ErrGuardNotSatisfied, "lock period ends at %s",
					req.Facts.LockEndAt.UTC().Format(time.RFC3339))
			}
			return EffectInPlace, nil
		},
	}
}

// VerificationApproved requires the owning account to be verified
func VerificationApproved() Guard {
	return Guard{
		Name: GuardVerification,
		Evaluate: func(req Request) (Effect, error) {
			if !req.Facts.VerificationApproved {
				return EffectInPlace, newError(ErrGuardNotSatisfied, "account verification is not approved")
			}
			return EffectInPlace, nil
		},
	}
}

// AmountIntegrity turns reversals of committed earnings into adjustments
func AmountIntegrity() Guard {
	return Guard{
		Name: GuardAmountIntegrity,
		Evaluate: func(req Request) (Effect, error) {
			switch req.From {
			case TransactionLocked, TransactionPayable, TransactionPaid:
				return EffectAdjustment, nil
			default:
				return EffectInPlace, nil
			}
		},
	}
}

// NotOffset freezes a transaction once an adjustment has reversed it
func NotOffset() Guard {
	return Guard{
		Name: GuardNotOffset,
		Evaluate: func(req Request) (Effect, error) {
			if req.Facts.ReversedBy != "" {
				return EffectInPlace, newError(ErrInvalidTransition, "already reversed by adjustment %s", req.Facts.ReversedBy)
			}
			return EffectInPlace, nil
		},
	}
}

// RequireOutcome demands a resolution outcome and records it with the transition
func RequireOutcome() Guard {
	return Guard{
		Name: GuardOutcomeSet,
		Evaluate: func(req Request) (Effect, error) {
			if !req.Outcome.IsValid() {
				if req.Outcome == "" {
					return EffectInPlace, newError(ErrValidation, "a resolution outcome is required")
				}
				return EffectInPlace, newError(ErrValidation, "unknown resolution outcome %q", req.Outcome)
			}
			return EffectOutcome, nil
		},
	}
}
