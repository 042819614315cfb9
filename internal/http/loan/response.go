package loan

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

type loanResponse struct {
	*loan.Loan
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func toResponse(l *loan.Loan) loanResponse {
	return loanResponse{
		Loan:        l,
		TotalPaid:   l.TotalPaid(),
		Outstanding: l.Outstanding(),
	}
}

func toResponseList(loans []*loan.Loan) []loanResponse {
	resp := make([]loanResponse, len(loans))
	for i, l := range loans {
		resp[i] = toResponse(l)
	}

	return resp
}

type sweepResponse struct {
	Processed int      `json:"processed"`
	LoanIDs   []string `json:"loanIds"`
}

func toSweepResponse(res loan.SweepResult) sweepResponse {
	ids := res.LoanIDs
	if ids == nil {
		ids = []string{}
	}

	return sweepResponse{Processed: res.Processed, LoanIDs: ids}
}
