package loan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateSchedule splits amount into durationMonths equal monthly installments,
// the first due one calendar month after startDate.
//
// Each installment is amount/durationMonths rounded to cents; the last one
// absorbs the rounding remainder so the schedule always sums to amount. When
// rounding up would leave the last installment negative, which only happens
// for a few cents spread over many months, the share is truncated instead.
// Month overflow follows time.AddDate (Jan 31 + 1 month is Mar 2 or 3).
func GenerateSchedule(amount decimal.Decimal, durationMonths int, startDate time.Time) ([]*Installment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if !isWholeCents(amount) {
		return nil, fmt.Errorf("%w: amount %s has fractions of a cent", ErrValidation, amount.String())
	}

	if durationMonths < 1 {
		return nil, fmt.Errorf("%w: duration must be at least one month", ErrValidation)
	}

	start := Date(startDate)
	months := decimal.NewFromInt(int64(durationMonths))

	monthly := amount.Div(months).Round(2)
	if monthly.Mul(months.Sub(decimal.NewFromInt(1))).GreaterThan(amount) {
		monthly = amount.Div(months).Truncate(2)
	}

	remaining := amount

	schedule := make([]*Installment, durationMonths)
	for i := range durationMonths {
		installment := monthly
		if i == durationMonths-1 {
			installment = remaining
		}

		remaining = remaining.Sub(installment)

		schedule[i] = &Installment{
			ID:      "inst-" + uuid.NewString(),
			DueDate: start.AddDate(0, i+1, 0),
			Amount:  installment,
			Status:  InstallmentPending,
		}
	}

	return schedule, nil
}

func isWholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
