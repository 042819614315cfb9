package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/cache"
	"github.com/MrJamesThe3rd/mlms/internal/client"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=loan

// Repository persists the loans collection. Save always receives the whole
// collection and must replace the stored one atomically.
type Repository interface {
	Load(ctx context.Context) ([]*Loan, error)
	Save(ctx context.Context, loans []*Loan) error
}

type ClientLookup interface {
	Get(ctx context.Context, id string) (*client.Client, error)
}

type Evictor interface {
	Delete(ctx context.Context, key string) error
}

type Service struct {
	mu      sync.Mutex
	repo    Repository
	clients ClientLookup
	cache   Evictor
	now     func() time.Time
}

type Option func(*Service)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, clients ClientLookup, cache Evictor, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		clients: clients,
		cache:   cache,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	ClientID        string
	Amount          decimal.Decimal
	Type            string
	DurationMonths  int
	StartDate       time.Time
	InterestRate    decimal.Decimal
	AssignedOfficer string
}

// EditParams holds the loan fields that may change after origination. Nil
// fields are left as they are.
type EditParams struct {
	Amount          *decimal.Decimal
	Type            *string
	DurationMonths  *int
	InterestRate    *decimal.Decimal
	AssignedOfficer *string
}

type Filter struct {
	ClientID string
	Status   *Status
}

type SweepResult struct {
	Processed int
	LoanIDs   []string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Loan, error) {
	if err := validateTerms(params.Amount, params.DurationMonths, params.InterestRate); err != nil {
		return nil, err
	}

	if _, err := s.clients.Get(ctx, params.ClientID); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, fmt.Errorf("client %s: %w", params.ClientID, ErrNotFound)
		}

		return nil, fmt.Errorf("getting client: %w", err)
	}

	start := params.StartDate
	if start.IsZero() {
		start = s.now()
	}

	schedule, err := GenerateSchedule(params.Amount, params.DurationMonths, start)
	if err != nil {
		return nil, err
	}

	l := &Loan{
		ID:              "loan-" + uuid.NewString(),
		ClientID:        params.ClientID,
		Amount:          params.Amount,
		Type:            params.Type,
		DurationMonths:  params.DurationMonths,
		StartDate:       Date(start),
		InterestRate:    params.InterestRate,
		AssignedOfficer: params.AssignedOfficer,
		Status:          StatusActive,
		Schedule:        schedule,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loans, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading loans: %w", err)
	}

	if err := s.repo.Save(ctx, append(loans, l)); err != nil {
		return nil, fmt.Errorf("saving loans: %w", err)
	}

	return l, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Loan, error) {
	loans, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading loans: %w", err)
	}

	idx := indexOf(loans, id)
	if idx < 0 {
		return nil, fmt.Errorf("loan %s: %w", id, ErrNotFound)
	}

	return loans[idx], nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Loan, error) {
	loans, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading loans: %w", err)
	}

	out := make([]*Loan, 0, len(loans))

	for _, l := range loans {
		if filter.ClientID != "" && l.ClientID != filter.ClientID {
			continue
		}

		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}

		out = append(out, l)
	}

	return out, nil
}

// Edit updates loan terms. Changing the amount or the duration regenerates the
// schedule from the original start date, discarding payment history.
func (s *Service) Edit(ctx context.Context, id string, params EditParams) (*Loan, error) {
	l, err := s.mutate(ctx, id, func(l *Loan) error {
		amount, duration, rate := l.Amount, l.DurationMonths, l.InterestRate
		if params.Amount != nil {
			amount = *params.Amount
		}

		if params.DurationMonths != nil {
			duration = *params.DurationMonths
		}

		if params.InterestRate != nil {
			rate = *params.InterestRate
		}

		if err := validateTerms(amount, duration, rate); err != nil {
			return err
		}

		if !amount.Equal(l.Amount) || duration != l.DurationMonths {
			schedule, err := GenerateSchedule(amount, duration, l.StartDate)
			if err != nil {
				return err
			}

			l.Schedule = schedule
			l.reconcileStatus()
		}

		l.Amount = amount
		l.DurationMonths = duration
		l.InterestRate = rate

		if params.Type != nil {
			l.Type = *params.Type
		}

		if params.AssignedOfficer != nil {
			l.AssignedOfficer = *params.AssignedOfficer
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.evictPrediction(ctx, id)

	return l, nil
}

// UpdatePayment applies a payment status change to one installment and
// persists the result.
func (s *Service) UpdatePayment(
	ctx context.Context,
	loanID, installmentID string,
	status InstallmentStatus,
	paidAmount *decimal.Decimal,
) (*Loan, error) {
	today := s.now()

	l, err := s.mutate(ctx, loanID, func(l *Loan) error {
		return l.ApplyPaymentUpdate(installmentID, status, paidAmount, today)
	})
	if err != nil {
		return nil, err
	}

	s.evictPrediction(ctx, loanID)

	return l, nil
}

// SetStatus is the explicit status override. Defaulted can always be set;
// Completed and Active must agree with the schedule.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*Loan, error) {
	return s.mutate(ctx, id, func(l *Loan) error {
		switch status {
		case StatusDefaulted:
		case StatusCompleted:
			if !l.AllPaid() {
				return fmt.Errorf("%w: loan %s still has unpaid installments", ErrInvalidStatus, l.ID)
			}
		case StatusActive:
			if l.AllPaid() {
				return fmt.Errorf("%w: loan %s is fully repaid", ErrInvalidStatus, l.ID)
			}
		default:
			return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}

		l.Status = status

		return nil
	})
}

// RunOverdueSweep moves past-due Pending installments of Active loans to
// Overdue and persists the collection in a single write.
func (s *Service) RunOverdueSweep(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loans, err := s.repo.Load(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("loading loans: %w", err)
	}

	updated, processed := RunOverdueSweep(loans, s.now())
	if processed == 0 {
		slog.Info("overdue sweep finished", "processed", 0)
		return SweepResult{}, nil
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		return SweepResult{}, fmt.Errorf("saving loans: %w", err)
	}

	result := SweepResult{Processed: processed}

	for i := range updated {
		if updated[i] != loans[i] {
			result.LoanIDs = append(result.LoanIDs, updated[i].ID)
			s.evictPrediction(ctx, updated[i].ID)
		}
	}

	slog.Info("overdue sweep finished", "processed", processed, "loans", len(result.LoanIDs))

	return result, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(l *Loan) error) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loans, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading loans: %w", err)
	}

	idx := indexOf(loans, id)
	if idx < 0 {
		return nil, fmt.Errorf("loan %s: %w", id, ErrNotFound)
	}

	l := loans[idx].Clone()
	if err := fn(l); err != nil {
		return nil, err
	}

	next := slices.Clone(loans)
	next[idx] = l

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("saving loans: %w", err)
	}

	return l, nil
}

func (s *Service) evictPrediction(ctx context.Context, loanID string) {
	if err := s.cache.Delete(ctx, cache.PredictionKey(loanID)); err != nil {
		slog.Warn("failed to evict cached prediction", "loan_id", loanID, "error", err)
	}
}

func validateTerms(amount decimal.Decimal, duration int, rate decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if !isWholeCents(amount) {
		return fmt.Errorf("%w: amount %s has fractions of a cent", ErrValidation, amount.String())
	}

	if duration < 1 {
		return fmt.Errorf("%w: duration must be at least one month", ErrValidation)
	}

	if rate.IsNegative() {
		return fmt.Errorf("%w: interest rate cannot be negative", ErrValidation)
	}

	return nil
}

func indexOf(loans []*Loan, id string) int {
	for i, l := range loans {
		if l.ID == id {
			return i
		}
	}

	return -1
}
