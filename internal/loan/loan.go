package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a loan.
type Status string

const (
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusDefaulted Status = "Defaulted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusDefaulted:
		return true
	}

	return false
}

// InstallmentStatus represents the repayment state of a single installment.
type InstallmentStatus string

const (
	InstallmentPending       InstallmentStatus = "Pending"
	InstallmentOverdue       InstallmentStatus = "Overdue"
	InstallmentPartiallyPaid InstallmentStatus = "Partially Paid"
	InstallmentPaid          InstallmentStatus = "Paid"
)

func (s InstallmentStatus) Valid() bool {
	switch s {
	case InstallmentPending, InstallmentOverdue, InstallmentPartiallyPaid, InstallmentPaid:
		return true
	}

	return false
}

// Installment is one scheduled repayment obligation within a loan.
type Installment struct {
	ID          string            `json:"id"`
	DueDate     time.Time         `json:"dueDate"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      InstallmentStatus `json:"status"`
	PaidAmount  *decimal.Decimal  `json:"paidAmount,omitempty"`
	PaymentDate *time.Time        `json:"paymentDate,omitempty"`
}

// Loan is a loan issued to a client. It exclusively owns its schedule.
type Loan struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"clientId"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	DurationMonths  int             `json:"durationMonths"`
	StartDate       time.Time       `json:"startDate"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	AssignedOfficer string          `json:"assignedOfficer"`
	Status          Status          `json:"status"`
	Schedule        []*Installment  `json:"schedule"`
}

// Installment returns the installment with the given id, or nil.
func (l *Loan) Installment(id string) *Installment {
	for _, inst := range l.Schedule {
		if inst.ID == id {
			return inst
		}
	}

	return nil
}

// AllPaid reports whether every installment of the schedule is Paid.
// An empty schedule is never considered paid off.
func (l *Loan) AllPaid() bool {
	if len(l.Schedule) == 0 {
		return false
	}

	for _, inst := range l.Schedule {
		if inst.Status != InstallmentPaid {
			return false
		}
	}

	return true
}

// TotalPaid sums the recorded paid amounts across the schedule.
func (l *Loan) TotalPaid() decimal.Decimal {
	total := decimal.Zero

	for _, inst := range l.Schedule {
		if inst.PaidAmount != nil {
			total = total.Add(*inst.PaidAmount)
		}
	}

	return total
}

// Outstanding is the principal minus everything paid so far.
func (l *Loan) Outstanding() decimal.Decimal {
	return l.Amount.Sub(l.TotalPaid())
}

// Counts tallies installments by status.
func (l *Loan) Counts() map[InstallmentStatus]int {
	counts := make(map[InstallmentStatus]int, 4)
	for _, inst := range l.Schedule {
		counts[inst.Status]++
	}

	return counts
}

// Clone returns a deep copy of the loan, including its schedule.
func (l *Loan) Clone() *Loan {
	c := *l

	c.Schedule = make([]*Installment, len(l.Schedule))
	for i, inst := range l.Schedule {
		ic := *inst
		if inst.PaidAmount != nil {
			ic.PaidAmount = new(*inst.PaidAmount)
		}

		if inst.PaymentDate != nil {
			ic.PaymentDate = new(*inst.PaymentDate)
		}

		c.Schedule[i] = &ic
	}

	return &c
}

// Date truncates t to a calendar date at UTC midnight.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
