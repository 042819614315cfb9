// Package seed loads the demo portfolio into an empty store.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

// Officers are the loan officers a loan can be assigned to.
var Officers = []string{"Ali Raza", "Fatima Jilani", "Ahmed Cheema"}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Demo returns three clients and three loans in various repayment states.
func Demo() ([]*client.Client, []*loan.Loan, error) {
	clients := []*client.Client{
		{
			ID: "cli-1", Name: "Ahmed Khan", CNIC: "12345-6789012-3", Phone: "0300-1234567",
			Address: "123 Gulberg, Lahore", RiskScore: client.RiskLow, JoinDate: date(2023, time.January, 15),
		},
		{
			ID: "cli-2", Name: "Fatima Ali", CNIC: "23456-7890123-4", Phone: "0321-7654321",
			Address: "456 DHA, Karachi", RiskScore: client.RiskMedium, JoinDate: date(2023, time.February, 20),
		},
		{
			ID: "cli-3", Name: "Bilal Chaudhry", CNIC: "34567-8901234-5", Phone: "0333-1122334",
			Address: "789 F-8, Islamabad", RiskScore: client.RiskHigh, JoinDate: date(2023, time.March, 10),
		},
	}

	terms := []struct {
		id, clientID, kind string
		amount             int64
		months             int
		start              time.Time
		paid               int
		overdue            int
	}{
		{id: "loan-1", clientID: "cli-1", kind: "Business", amount: 50000, months: 12, start: date(2023, time.February, 1), paid: 2},
		{id: "loan-2", clientID: "cli-2", kind: "Personal", amount: 25000, months: 6, start: date(2023, time.March, 1), overdue: 1},
		{id: "loan-3", clientID: "cli-1", kind: "Emergency", amount: 15000, months: 3, start: date(2023, time.May, 10), paid: 3},
	}

	loans := make([]*loan.Loan, 0, len(terms))

	for _, t := range terms {
		amount := decimal.NewFromInt(t.amount)

		schedule, err := loan.GenerateSchedule(amount, t.months, t.start)
		if err != nil {
			return nil, nil, fmt.Errorf("generating schedule for %s: %w", t.id, err)
		}

		for i, inst := range schedule {
			switch {
			case i < t.paid:
				inst.Status = loan.InstallmentPaid
				inst.PaidAmount = new(inst.Amount)
				inst.PaymentDate = new(inst.DueDate)
			case i < t.paid+t.overdue:
				inst.Status = loan.InstallmentOverdue
			}
		}

		l := &loan.Loan{
			ID:             t.id,
			ClientID:       t.clientID,
			Amount:         amount,
			Type:           t.kind,
			DurationMonths: t.months,
			StartDate:      t.start,
			InterestRate:   decimal.Zero,
			Status:         loan.StatusActive,
			Schedule:       schedule,
		}

		if l.AllPaid() {
			l.Status = loan.StatusCompleted
		}

		loans = append(loans, l)
	}

	return clients, loans, nil
}

// Run writes the demo data when both collections are empty. It reports
// whether anything was written.
func Run(ctx context.Context, clients client.Repository, loans loan.Repository) (bool, error) {
	existingClients, err := clients.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading clients: %w", err)
	}

	existingLoans, err := loans.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading loans: %w", err)
	}

	if len(existingClients) > 0 || len(existingLoans) > 0 {
		slog.Info("store not empty, skipping demo data", "clients", len(existingClients), "loans", len(existingLoans))
		return false, nil
	}

	demoClients, demoLoans, err := Demo()
	if err != nil {
		return false, err
	}

	if err := clients.Save(ctx, demoClients); err != nil {
		return false, fmt.Errorf("saving demo clients: %w", err)
	}

	if err := loans.Save(ctx, demoLoans); err != nil {
		return false, fmt.Errorf("saving demo loans: %w", err)
	}

	slog.Info("demo data loaded", "clients", len(demoClients), "loans", len(demoLoans))

	return true, nil
}
