package loan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

func TestRunOverdueSweep(t *testing.T) {
	today := date(2024, 3, 15)

	active := newLoan(t, loan.InstallmentPaid, loan.InstallmentPending, loan.InstallmentPending)
	active.Schedule[1].DueDate = date(2024, 3, 14)
	active.Schedule[2].DueDate = date(2024, 4, 14)

	dueToday := newLoan(t, loan.InstallmentPending)
	dueToday.ID = "loan-2"
	dueToday.Schedule[0].DueDate = today

	defaulted := newLoan(t, loan.InstallmentPending)
	defaulted.ID = "loan-3"
	defaulted.Status = loan.StatusDefaulted
	defaulted.Schedule[0].DueDate = date(2024, 1, 1)

	partial := newLoan(t, loan.InstallmentPartiallyPaid)
	partial.ID = "loan-4"
	partial.Schedule[0].DueDate = date(2024, 1, 1)

	loans := []*loan.Loan{active, dueToday, defaulted, partial}

	updated, processed := loan.RunOverdueSweep(loans, today)
	require.Len(t, updated, 4)
	assert.Equal(t, 1, processed)

	swept := updated[0]
	assert.NotSame(t, active, swept)
	assert.Equal(t, loan.InstallmentPaid, swept.Schedule[0].Status)
	assert.Equal(t, loan.InstallmentOverdue, swept.Schedule[1].Status)
	assert.Equal(t, loan.InstallmentPending, swept.Schedule[2].Status)
	assert.Equal(t, loan.StatusActive, swept.Status)

	// The input is left untouched.
	assert.Equal(t, loan.InstallmentPending, active.Schedule[1].Status)

	assert.Same(t, dueToday, updated[1])
	assert.Equal(t, loan.InstallmentPending, updated[1].Schedule[0].Status)
	assert.Same(t, defaulted, updated[2])
	assert.Equal(t, loan.InstallmentPending, updated[2].Schedule[0].Status)
	assert.Same(t, partial, updated[3])

	again, processed := loan.RunOverdueSweep(updated, today)
	assert.Zero(t, processed)
	assert.Same(t, updated[0], again[0])
}

func TestRunOverdueSweep_Empty(t *testing.T) {
	updated, processed := loan.RunOverdueSweep(nil, date(2024, 1, 1))
	assert.Empty(t, updated)
	assert.Zero(t, processed)
}
