package lifecycle

import (
	"errors"
	"time"

	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// SweepReport lists which entities a pass advanced and which it left alone
type SweepReport struct {
	Applied []string `json:"applied"`
	Skipped []string `json:"skipped"`

	// Changes are the applied transitions, in snapshot order, for the caller to persist
	Changes []*TransactionChange `json:"-"`
}

// Sweep locks every pending transaction whose lock period has ended, acting as System.
// Applied entries are replaced in the snapshot by their locked copy, so a second sweep
// over the same slice applies nothing. Entities that are not pending, or whose lock
// period is still running, are skipped without error.
func Sweep(txns []*entity.EarningsTransaction, now time.Time) SweepReport {
	return sweepTransactions(txns, workflow.TransactionPending, workflow.TransactionLocked, now, func(*entity.EarningsTransaction) bool {
		return false
	})
}

// SweepRelease moves locked transactions to payable when their account is verified
func SweepRelease(txns []*entity.EarningsTransaction, now time.Time, verified func(accountID string) bool) SweepReport {
	return sweepTransactions(txns, workflow.TransactionLocked, workflow.TransactionPayable, now, func(t *entity.EarningsTransaction) bool {
		return verified(t.AccountID)
	})
}

func sweepTransactions(txns []*entity.EarningsTransaction, from, to workflow.State, now time.Time, verified func(*entity.EarningsTransaction) bool) SweepReport {
	report := SweepReport{Applied: []string{}, Skipped: []string{}}

	for i, txn := range txns {
		if txn == nil {
			continue
		}
		if txn.State != from {
			report.Skipped = append(report.Skipped, txn.ID)
			continue
		}

		change, err := ApplyTransaction(txn, Command{
			To:    to,
			Actor: permission.SystemActor,
			Now:   now,
		}, verified(txn))
		if err != nil {
			report.Skipped = append(report.Skipped, txn.ID)
			continue
		}

		txns[i] = change.Transaction
		report.Applied = append(report.Applied, txn.ID)
		report.Changes = append(report.Changes, change)
	}
	return report
}

// DisputeSweepReport is the dispute intake counterpart of SweepReport
type DisputeSweepReport struct {
	Applied []string         `json:"applied"`
	Skipped []string         `json:"skipped"`
	Changes []*DisputeChange `json:"-"`
}

// SweepIntake moves newly opened disputes into the waiting queue, acting as System
func SweepIntake(disputes []*entity.DisputeCase, now time.Time) DisputeSweepReport {
	report := DisputeSweepReport{Applied: []string{}, Skipped: []string{}}

	for i, d := range disputes {
		if d == nil {
			continue
		}
		if d.Status != workflow.DisputeOpen {
			report.Skipped = append(report.Skipped, d.ID)
			continue
		}

		change, err := ApplyDispute(d, Command{
			To:    workflow.DisputeWaiting,
			Actor: permission.SystemActor,
			Now:   now,
		})
		if err != nil {
			report.Skipped = append(report.Skipped, d.ID)
			continue
		}

		disputes[i] = change.Dispute
		report.Applied = append(report.Applied, d.ID)
		report.Changes = append(report.Changes, change)
	}
	return report
}

// IsSkippable reports whether a sweep may ignore the error and move on
func IsSkippable(err error) bool {
	return errors.Is(err, workflow.ErrGuardNotSatisfied) || errors.Is(err, workflow.ErrInvalidTransition)
}
