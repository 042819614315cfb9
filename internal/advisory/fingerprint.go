package advisory

import (
	"github.com/mitchellh/hashstructure/v2"

	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

// loanState is the part of a loan a prediction depends on. Decimals are kept
// as strings since hashstructure only sees exported fields.
type loanState struct {
	Status         string
	Amount         string
	DurationMonths int
	Installments   []installmentState
}

type installmentState struct {
	ID         string
	Status     string
	PaidAmount string
}

// cachedPrediction ties a prediction to the loan state it was made from. A
// payment or edit that lands while the model is still answering changes the
// state, so the late write is never served for the updated loan.
type cachedPrediction struct {
	Prediction
	LoanState uint64 `json:"loanState"`
}

func fingerprint(l *loan.Loan) (uint64, error) {
	state := loanState{
		Status:         string(l.Status),
		Amount:         l.Amount.String(),
		DurationMonths: l.DurationMonths,
		Installments:   make([]installmentState, len(l.Schedule)),
	}

	for i, inst := range l.Schedule {
		state.Installments[i] = installmentState{ID: inst.ID, Status: string(inst.Status)}
		if inst.PaidAmount != nil {
			state.Installments[i].PaidAmount = inst.PaidAmount.String()
		}
	}

	return hashstructure.Hash(state, hashstructure.FormatV2, nil)
}
