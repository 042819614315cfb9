package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

const unassignedOfficer = "Unassigned"

type ClientLister interface {
	List(ctx context.Context) ([]*client.Client, error)
}

type LoanLister interface {
	List(ctx context.Context, filter loan.Filter) ([]*loan.Loan, error)
}

// Service builds portfolio summaries from the current clients and loans.
type Service struct {
	clients ClientLister
	loans   LoanLister
}

func NewService(clients ClientLister, loans LoanLister) *Service {
	return &Service{clients: clients, loans: loans}
}

type RiskBucket struct {
	Risk  client.RiskScore `json:"risk"`
	Count int              `json:"count"`
}

type MonthTotal struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type OfficerStats struct {
	Officer        string          `json:"officer"`
	TotalLoans     int             `json:"totalLoans"`
	TotalDisbursed decimal.Decimal `json:"totalDisbursed"`
	Active         int             `json:"active"`
	Defaulted      int             `json:"defaulted"`
}

type Dashboard struct {
	TotalClients        int             `json:"totalClients"`
	ActiveLoans         int             `json:"activeLoans"`
	CompletedLoans      int             `json:"completedLoans"`
	DefaultedLoans      int             `json:"defaultedLoans"`
	TotalDisbursed      decimal.Decimal `json:"totalDisbursed"`
	TotalOutstanding    decimal.Decimal `json:"totalOutstanding"`
	RiskDistribution    []RiskBucket    `json:"riskDistribution"`
	DisbursementByMonth []MonthTotal    `json:"disbursementByMonth"`
	OfficerPerformance  []OfficerStats  `json:"officerPerformance"`
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	clients, loans, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return Summarize(clients, loans), nil
}

// Summarize computes the dashboard figures. Officers keep the order in which
// they first appear in loans; months are ascending.
func Summarize(clients []*client.Client, loans []*loan.Loan) *Dashboard {
	d := &Dashboard{
		TotalClients:        len(clients),
		TotalDisbursed:      decimal.Zero,
		TotalOutstanding:    decimal.Zero,
		RiskDistribution:    []RiskBucket{},
		DisbursementByMonth: []MonthTotal{},
		OfficerPerformance:  []OfficerStats{},
	}

	risks := make(map[client.RiskScore]int)
	for _, c := range clients {
		risks[c.RiskScore]++
	}

	for _, r := range []client.RiskScore{client.RiskLow, client.RiskMedium, client.RiskHigh} {
		if n := risks[r]; n > 0 {
			d.RiskDistribution = append(d.RiskDistribution, RiskBucket{Risk: r, Count: n})
		}
	}

	months := make(map[string]decimal.Decimal)
	officers := make(map[string]int)

	for _, l := range loans {
		switch l.Status {
		case loan.StatusActive:
			d.ActiveLoans++
		case loan.StatusCompleted:
			d.CompletedLoans++
		case loan.StatusDefaulted:
			d.DefaultedLoans++
		}

		d.TotalDisbursed = d.TotalDisbursed.Add(l.Amount)
		d.TotalOutstanding = d.TotalOutstanding.Add(l.Outstanding())

		month := l.StartDate.Format("2006-01")
		months[month] = months[month].Add(l.Amount)

		name := l.AssignedOfficer
		if name == "" {
			name = unassignedOfficer
		}

		idx, ok := officers[name]
		if !ok {
			idx = len(d.OfficerPerformance)
			officers[name] = idx
			d.OfficerPerformance = append(d.OfficerPerformance, OfficerStats{Officer: name, TotalDisbursed: decimal.Zero})
		}

		stats := &d.OfficerPerformance[idx]
		stats.TotalLoans++
		stats.TotalDisbursed = stats.TotalDisbursed.Add(l.Amount)

		switch l.Status {
		case loan.StatusActive:
			stats.Active++
		case loan.StatusDefaulted:
			stats.Defaulted++
		}
	}

	for month, amount := range months {
		d.DisbursementByMonth = append(d.DisbursementByMonth, MonthTotal{Month: month, Amount: amount})
	}

	sort.Slice(d.DisbursementByMonth, func(i, j int) bool {
		return d.DisbursementByMonth[i].Month < d.DisbursementByMonth[j].Month
	})

	return d
}

var csvHeader = []string{
	"Client ID", "Name", "CNIC", "Risk Score", "Loan ID", "Loan Type", "Amount", "Status", "Outstanding Balance",
}

// FileName is the suggested download name of the portfolio report.
func FileName(day time.Time) string {
	return fmt.Sprintf("mlms_portfolio_report_%s.csv", day.Format("2006-01-02"))
}

// WriteCSV writes one row per loan joined with its client.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer) error {
	clients, loans, err := s.load(ctx)
	if err != nil {
		return err
	}

	return WritePortfolio(w, clients, loans)
}

func WritePortfolio(w io.Writer, clients []*client.Client, loans []*loan.Loan) error {
	byID := make(map[string]*client.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, l := range loans {
		var (
			id, cnic, risk string
			name           = "Unknown"
		)

		if c, ok := byID[l.ClientID]; ok {
			id, name, cnic, risk = c.ID, c.Name, c.CNIC, string(c.RiskScore)
		}

		row := []string{
			id, name, cnic, risk,
			l.ID, l.Type, l.Amount.String(), string(l.Status), l.Outstanding().String(),
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing loan %s: %w", l.ID, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	return nil
}

func (s *Service) load(ctx context.Context) ([]*client.Client, []*loan.Loan, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing clients: %w", err)
	}

	loans, err := s.loans.List(ctx, loan.Filter{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing loans: %w", err)
	}

	return clients, loans, nil
}
