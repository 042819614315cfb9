package advisory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/mlms/internal/advisory"
	"github.com/MrJamesThe3rd/mlms/internal/cache"
	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

// fakeModel answers every request with the same text or error.
type fakeModel struct {
	reply string
	err   error
	delay time.Duration
	calls int
	last  advisory.Request
}

func (m *fakeModel) GenerateContent(ctx context.Context, req advisory.Request) (string, error) {
	m.calls++
	m.last = req

	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.delay):
		}
	}

	return m.reply, m.err
}

func newService(m advisory.Model) (*advisory.Service, *cache.Memory) {
	c := cache.NewMemory()
	return advisory.NewService(m, c, time.Second), c
}

func TestService_ScoreClientRisk(t *testing.T) {
	type testCase struct {
		name  string
		model *fakeModel
		want  client.RiskScore
	}

	tests := []testCase{
		{name: "valid score", model: &fakeModel{reply: ` {"riskScore":"High"} `}, want: client.RiskHigh},
		{name: "unknown label", model: &fakeModel{reply: `{"riskScore":"Extreme"}`}, want: client.RiskMedium},
		{name: "missing field", model: &fakeModel{reply: `{}`}, want: client.RiskMedium},
		{name: "not json", model: &fakeModel{reply: `Low`}, want: client.RiskMedium},
		{name: "model error", model: &fakeModel{err: errors.New("quota exceeded")}, want: client.RiskMedium},
		{name: "timeout", model: &fakeModel{reply: `{"riskScore":"Low"}`, delay: time.Minute}, want: client.RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := advisory.NewService(tt.model, cache.NewMemory(), 20*time.Millisecond)

			got := svc.ScoreClientRisk(context.Background(), client.Profile{Name: "Ahmed Khan", Occupation: "Shop Owner"})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, tt.model.calls)
		})
	}
}

func TestService_ScoreClientRisk_Prompt(t *testing.T) {
	m := &fakeModel{reply: `{"riskScore":"Low"}`}
	svc, _ := newService(m)

	income := decimal.NewFromInt(45000)
	svc.ScoreClientRisk(context.Background(), client.Profile{Name: "Ahmed Khan", CNIC: "12345-6789012-3", Income: &income})

	require.Len(t, m.last.Messages, 1)
	prompt := m.last.Messages[0].Text
	assert.Contains(t, prompt, "- Name: Ahmed Khan")
	assert.Contains(t, prompt, "- Monthly Income (PKR): 45000")
	assert.Contains(t, prompt, "- Occupation: Not Provided")
	assert.NotNil(t, m.last.Schema)
}

func TestService_NoModel(t *testing.T) {
	svc := advisory.NewService(nil, cache.NewMemory(), time.Second)
	ctx := context.Background()

	assert.Equal(t, client.RiskMedium, svc.ScoreClientRisk(ctx, client.Profile{}))
	assert.Equal(t, advisory.FallbackRecommendation, svc.RecommendLoanTerms(ctx, client.RiskLow, decimal.NewFromInt(1000), 6))
	assert.Equal(t, advisory.FallbackPrediction, svc.PredictDefault(ctx, &client.Client{}, &loan.Loan{ID: "loan-1"}))
	assert.Equal(t, advisory.FallbackChatReply, svc.Chat(ctx, nil, "hello"))
}

func TestService_RecommendLoanTerms(t *testing.T) {
	ctx := context.Background()
	amount := decimal.NewFromInt(50000)

	t.Run("caches the answer", func(t *testing.T) {
		m := &fakeModel{reply: `{"recommendation":"Approve with standard terms."}`}
		svc, _ := newService(m)

		first := svc.RecommendLoanTerms(ctx, client.RiskLow, amount, 12)
		second := svc.RecommendLoanTerms(ctx, client.RiskLow, amount, 12)

		assert.Equal(t, "Approve with standard terms.", first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, m.calls)
		assert.Contains(t, m.last.Messages[0].Text, `loan of PKR 50000 for 12 months`)
	})

	t.Run("missing field", func(t *testing.T) {
		m := &fakeModel{reply: `{}`}
		svc, c := newService(m)

		assert.Equal(t, advisory.MissingRecommendation, svc.RecommendLoanTerms(ctx, client.RiskHigh, amount, 12))

		var cached string
		found, err := c.Get(ctx, cache.RecommendationKey("High", amount, 12), &cached)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, advisory.MissingRecommendation, cached)
	})

	t.Run("failure is not cached", func(t *testing.T) {
		m := &fakeModel{err: errors.New("unavailable")}
		svc, _ := newService(m)

		assert.Equal(t, advisory.FallbackRecommendation, svc.RecommendLoanTerms(ctx, client.RiskMedium, amount, 6))

		m.err = nil
		m.reply = `{"recommendation":"Approve cautiously."}`
		assert.Equal(t, "Approve cautiously.", svc.RecommendLoanTerms(ctx, client.RiskMedium, amount, 6))
		assert.Equal(t, 2, m.calls)
	})
}

func TestService_PredictDefault(t *testing.T) {
	ctx := context.Background()
	c := &client.Client{ID: "cli-1", RiskScore: client.RiskHigh}
	l := &loan.Loan{
		ID:             "loan-1",
		Amount:         decimal.NewFromInt(25000),
		DurationMonths: 3,
		Type:           "Personal",
		Schedule: []*loan.Installment{
			{Status: loan.InstallmentPaid},
			{Status: loan.InstallmentOverdue},
			{Status: loan.InstallmentPending},
		},
	}

	type testCase struct {
		name  string
		reply string
		want  advisory.Prediction
	}

	tests := []testCase{
		{
			name:  "valid",
			reply: `{"predictionLabel":"High","predictionPercentage":72}`,
			want:  advisory.Prediction{Label: advisory.PredictionHigh, Percentage: 72},
		},
		{
			name:  "zero percent is valid",
			reply: `{"predictionLabel":"Low","predictionPercentage":0}`,
			want:  advisory.Prediction{Label: advisory.PredictionLow, Percentage: 0},
		},
		{name: "missing percentage", reply: `{"predictionLabel":"Low"}`, want: advisory.FallbackPrediction},
		{name: "percentage out of range", reply: `{"predictionLabel":"High","predictionPercentage":140}`, want: advisory.FallbackPrediction},
		{name: "unknown label", reply: `{"predictionLabel":"Severe","predictionPercentage":90}`, want: advisory.FallbackPrediction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{reply: tt.reply}
			svc, store := newService(m)

			assert.Equal(t, tt.want, svc.PredictDefault(ctx, c, l))
			assert.Contains(t, m.last.Messages[0].Text, "Total installments: 3. Paid: 1, Partially Paid: 0, Overdue: 1, Pending: 1.")

			var cached advisory.Prediction
			found, err := store.Get(ctx, cache.PredictionKey("loan-1"), &cached)
			require.NoError(t, err)
			assert.Equal(t, tt.want != advisory.FallbackPrediction, found)
		})
	}
}

func TestService_PredictDefault_Cache(t *testing.T) {
	ctx := context.Background()
	paid := decimal.NewFromInt(500)

	base := func() *loan.Loan {
		return &loan.Loan{
			ID:             "loan-9",
			Status:         loan.StatusActive,
			Amount:         decimal.NewFromInt(1000),
			DurationMonths: 2,
			Schedule: []*loan.Installment{
				{ID: "inst-1", Amount: paid, Status: loan.InstallmentPending},
				{ID: "inst-2", Amount: paid, Status: loan.InstallmentPending},
			},
		}
	}

	type testCase struct {
		name      string
		change    func(l *loan.Loan)
		wantCalls int
	}

	tests := []testCase{
		{name: "same loan", change: func(*loan.Loan) {}, wantCalls: 1},
		{name: "installment paid", change: func(l *loan.Loan) {
			l.Schedule[0].Status = loan.InstallmentPaid
			l.Schedule[0].PaidAmount = &paid
		}, wantCalls: 2},
		{name: "installment overdue", change: func(l *loan.Loan) {
			l.Schedule[1].Status = loan.InstallmentOverdue
		}, wantCalls: 2},
		{name: "loan defaulted", change: func(l *loan.Loan) {
			l.Status = loan.StatusDefaulted
		}, wantCalls: 2},
		{name: "amount edited", change: func(l *loan.Loan) {
			l.Amount = decimal.NewFromInt(2000)
		}, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{reply: `{"predictionLabel":"Low","predictionPercentage":5}`}
			svc, _ := newService(m)

			want := advisory.Prediction{Label: advisory.PredictionLow, Percentage: 5}
			assert.Equal(t, want, svc.PredictDefault(ctx, &client.Client{}, base()))

			next := base()
			tt.change(next)

			assert.Equal(t, want, svc.PredictDefault(ctx, &client.Client{}, next))
			assert.Equal(t, tt.wantCalls, m.calls)
		})
	}
}

// gatedModel blocks every call until release is closed.
type gatedModel struct {
	reply   string
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   int
}

func (m *gatedModel) GenerateContent(ctx context.Context, _ advisory.Request) (string, error) {
	m.calls++
	m.once.Do(func() { close(m.started) })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-m.release:
	}

	return m.reply, nil
}

func TestService_PredictDefault_PaymentDuringCall(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := loan.NewMockRepository(ctrl)
	store := cache.NewMemory()

	loans := loan.NewService(repo, loan.NewMockClientLookup(ctrl), store,
		loan.WithClock(func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }))

	snapshot := &loan.Loan{
		ID:             "loan-1",
		ClientID:       "cli-1",
		Status:         loan.StatusActive,
		Amount:         decimal.NewFromInt(2000),
		DurationMonths: 2,
		Schedule: []*loan.Installment{
			{ID: "inst-1", Amount: decimal.NewFromInt(1000), Status: loan.InstallmentPending},
			{ID: "inst-2", Amount: decimal.NewFromInt(1000), Status: loan.InstallmentPending},
		},
	}

	repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{snapshot.Clone()}, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Len(1)).Return(nil)

	m := &gatedModel{
		reply:   `{"predictionLabel":"High","predictionPercentage":90}`,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := advisory.NewService(m, store, 5*time.Second)
	c := &client.Client{ID: "cli-1"}

	done := make(chan advisory.Prediction, 1)
	go func() { done <- svc.PredictDefault(ctx, c, snapshot) }()

	<-m.started

	updated, err := loans.UpdatePayment(ctx, "loan-1", "inst-1", loan.InstallmentPaid, nil)
	require.NoError(t, err)

	close(m.release)
	assert.Equal(t, advisory.Prediction{Label: advisory.PredictionHigh, Percentage: 90}, <-done)

	m.reply = `{"predictionLabel":"Low","predictionPercentage":10}`

	got := svc.PredictDefault(ctx, c, updated)
	assert.Equal(t, advisory.Prediction{Label: advisory.PredictionLow, Percentage: 10}, got)
	assert.Equal(t, 2, m.calls)
}

func TestService_Chat(t *testing.T) {
	m := &fakeModel{reply: "Follow up on the overdue installment first.\n"}
	svc, _ := newService(m)

	history := []advisory.Message{
		{Role: advisory.RoleUser, Text: "hi"},
		{Role: advisory.RoleModel, Text: "Hello! How can I help?"},
	}

	reply := svc.Chat(context.Background(), history, "Which loan should I chase?")
	assert.Equal(t, "Follow up on the overdue installment first.", reply)

	require.Len(t, m.last.Messages, 3)
	assert.Equal(t, advisory.RoleUser, m.last.Messages[2].Role)
	assert.Equal(t, "Which loan should I chase?", m.last.Messages[2].Text)
	assert.NotEmpty(t, m.last.System)
	assert.Nil(t, m.last.Schema)

	m.reply = "   "
	assert.Equal(t, advisory.FallbackChatReply, svc.Chat(context.Background(), nil, "again"))
}
