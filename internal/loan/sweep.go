package loan

import "time"

// RunOverdueSweep marks every Pending installment of an Active loan whose due
// date is before today as Overdue.
//
// The input is not modified: touched loans are cloned, untouched loans are
// returned as is. processed counts installments moved to Overdue.
func RunOverdueSweep(loans []*Loan, today time.Time) ([]*Loan, int) {
	today = Date(today)
	updated := make([]*Loan, len(loans))
	processed := 0

	for i, l := range loans {
		updated[i] = l

		if l.Status != StatusActive || !hasPastDuePending(l, today) {
			continue
		}

		c := l.Clone()
		for _, inst := range c.Schedule {
			if inst.Status == InstallmentPending && Date(inst.DueDate).Before(today) {
				inst.Status = InstallmentOverdue
				processed++
			}
		}

		updated[i] = c
	}

	return updated, processed
}

func hasPastDuePending(l *Loan, today time.Time) bool {
	for _, inst := range l.Schedule {
		if inst.Status == InstallmentPending && Date(inst.DueDate).Before(today) {
			return true
		}
	}

	return false
}
