package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=client

// Repository persists the clients collection as a whole.
type Repository interface {
	Load(ctx context.Context) ([]*Client, error)
	Save(ctx context.Context, clients []*Client) error
}

// RiskScorer assesses a prospective client. It never fails; implementations
// fall back to a default score on their own.
type RiskScorer interface {
	ScoreClientRisk(ctx context.Context, profile Profile) RiskScore
}

// scoreWorkers caps concurrent advisory calls during a batch import.
const scoreWorkers = 4

type Service struct {
	mu           sync.Mutex
	repo         Repository
	scorer       RiskScorer
	now          func() time.Time
	batchTimeout time.Duration
}

type Option func(*Service)

// WithBatchTimeout bounds the scoring phase of CreateBatch as a whole. Rows
// still waiting when it expires get the scorer's fallback.
func WithBatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.batchTimeout = d
	}
}

func NewService(repo Repository, scorer RiskScorer, opts ...Option) *Service {
	s := &Service{repo: repo, scorer: scorer, now: time.Now}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	Profile
	Documents []Document
}

func (p CreateParams) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"name", p.Name},
		{"cnic", p.CNIC},
		{"phone", p.Phone},
		{"address", p.Address},
	}

	var missing []string

	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}

	if p.Income != nil && p.Income.IsNegative() {
		return fmt.Errorf("%w: income cannot be negative", ErrValidation)
	}

	if p.HouseholdSize != nil && *p.HouseholdSize < 1 {
		return fmt.Errorf("%w: household size must be at least 1", ErrValidation)
	}

	return nil
}

// Create scores the prospective client and stores the new record.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Client, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	c := s.newClient(params)
	c.RiskScore = s.scorer.ScoreClientRisk(ctx, params.Profile)

	s.mu.Lock()
	defer s.mu.Unlock()

	clients, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading clients: %w", err)
	}

	if err := s.repo.Save(ctx, append(clients, c)); err != nil {
		return nil, fmt.Errorf("saving clients: %w", err)
	}

	return c, nil
}

// CreateBatch scores and stores several clients with a single write. Scoring
// runs on up to scoreWorkers goroutines; the rows keep their input order.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Client, error) {
	if len(params) == 0 {
		return nil, nil
	}

	for i, p := range params {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("client %d: %w", i+1, err)
		}
	}

	created := make([]*Client, len(params))

	scoreCtx := ctx
	if s.batchTimeout > 0 {
		var cancel context.CancelFunc

		scoreCtx, cancel = context.WithTimeout(ctx, s.batchTimeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(scoreCtx)
	g.SetLimit(scoreWorkers)

	for i, p := range params {
		g.Go(func() error {
			c := s.newClient(p)
			c.RiskScore = s.scorer.ScoreClientRisk(gctx, p.Profile)
			created[i] = c

			return nil
		})
	}

	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	clients, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading clients: %w", err)
	}

	if err := s.repo.Save(ctx, append(clients, created...)); err != nil {
		return nil, fmt.Errorf("saving clients: %w", err)
	}

	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Client, error) {
	clients, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading clients: %w", err)
	}

	for _, c := range clients {
		if c.ID == id {
			return c, nil
		}
	}

	return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
}

func (s *Service) List(ctx context.Context) ([]*Client, error) {
	clients, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading clients: %w", err)
	}

	return clients, nil
}

func (s *Service) newClient(params CreateParams) *Client {
	now := s.now()

	return &Client{
		ID:            "cli-" + uuid.NewString(),
		Name:          strings.TrimSpace(params.Name),
		CNIC:          strings.TrimSpace(params.CNIC),
		Phone:         strings.TrimSpace(params.Phone),
		Address:       strings.TrimSpace(params.Address),
		JoinDate:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Income:        params.Income,
		Occupation:    strings.TrimSpace(params.Occupation),
		HouseholdSize: params.HouseholdSize,
		Documents:     params.Documents,
	}
}
