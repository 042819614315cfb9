package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ApplyPaymentUpdate sets the status of one installment and re-derives the
// loan status from the schedule.
//
// paidAmount is only read for InstallmentPartiallyPaid, where it must lie
// strictly between zero and the installment amount. The loan is left untouched
// when an error is returned.
func (l *Loan) ApplyPaymentUpdate(installmentID string, status InstallmentStatus, paidAmount *decimal.Decimal, today time.Time) error {
	inst := l.Installment(installmentID)
	if inst == nil {
		return fmt.Errorf("installment %s of loan %s: %w", installmentID, l.ID, ErrNotFound)
	}

	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	paymentDate := Date(today)

	switch status {
	case InstallmentPaid:
		inst.PaidAmount = new(inst.Amount)
		inst.PaymentDate = &paymentDate
	case InstallmentPartiallyPaid:
		if err := validatePartial(inst, paidAmount); err != nil {
			return err
		}

		inst.PaidAmount = new(*paidAmount)
		inst.PaymentDate = &paymentDate
	default:
		inst.PaidAmount = nil
		inst.PaymentDate = nil
	}

	inst.Status = status
	l.reconcileStatus()

	return nil
}

func validatePartial(inst *Installment, paidAmount *decimal.Decimal) error {
	if paidAmount == nil {
		return fmt.Errorf("%w: partial payment requires a paid amount", ErrInvalidAmount)
	}

	if !paidAmount.IsPositive() || paidAmount.GreaterThanOrEqual(inst.Amount) {
		return fmt.Errorf("%w: partial amount %s must be greater than 0 and less than %s",
			ErrInvalidAmount, paidAmount.StringFixed(2), inst.Amount.StringFixed(2))
	}

	return nil
}

// reconcileStatus keeps Completed in sync with the schedule. A fully repaid
// loan is Completed even if it had been marked Defaulted, but a Defaulted loan
// is never moved back to Active here; only SetStatus does that.
func (l *Loan) reconcileStatus() {
	switch {
	case l.AllPaid():
		l.Status = StatusCompleted
	case l.Status == StatusCompleted:
		l.Status = StatusActive
	}
}
