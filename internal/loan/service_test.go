package loan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

type mocks struct {
	repo    *loan.MockRepository
	clients *loan.MockClientLookup
	cache   *loan.MockEvictor
}

func newTestService(t *testing.T, today time.Time) (*loan.Service, mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := mocks{
		repo:    loan.NewMockRepository(ctrl),
		clients: loan.NewMockClientLookup(ctrl),
		cache:   loan.NewMockEvictor(ctrl),
	}

	svc := loan.NewService(m.repo, m.clients, m.cache, loan.WithClock(func() time.Time { return today }))

	return svc, m
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    loan.CreateParams
		setupMock func(m mocks)
		wantErr   error
	}

	valid := loan.CreateParams{
		ClientID:        "cli-1",
		Amount:          decimal.NewFromInt(12000),
		Type:            "Business",
		DurationMonths:  12,
		InterestRate:    decimal.NewFromInt(10),
		AssignedOfficer: "Ali Raza",
	}

	tests := []testCase{
		{
			name:   "Success",
			params: valid,
			setupMock: func(m mocks) {
				m.clients.EXPECT().Get(gomock.Any(), "cli-1").Return(&client.Client{ID: "cli-1"}, nil)
				m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{{ID: "loan-0"}}, nil)
				m.repo.EXPECT().Save(gomock.Any(), gomock.Len(2)).Return(nil)
			},
		},
		{
			name:   "UnknownClient",
			params: valid,
			setupMock: func(m mocks) {
				m.clients.EXPECT().Get(gomock.Any(), "cli-1").Return(nil, client.ErrNotFound)
			},
			wantErr: loan.ErrNotFound,
		},
		{
			name: "InvalidAmount",
			params: loan.CreateParams{
				ClientID: "cli-1", Amount: decimal.Zero, DurationMonths: 12,
			},
			wantErr: loan.ErrValidation,
		},
		{
			name: "SubCentAmount",
			params: loan.CreateParams{
				ClientID: "cli-1", Amount: decimal.RequireFromString("100.005"), DurationMonths: 2,
			},
			wantErr: loan.ErrValidation,
		},
		{
			name: "NegativeRate",
			params: loan.CreateParams{
				ClientID: "cli-1", Amount: decimal.NewFromInt(100), DurationMonths: 1, InterestRate: decimal.NewFromInt(-1),
			},
			wantErr: loan.ErrValidation,
		},
		{
			name:   "SaveError",
			params: valid,
			setupMock: func(m mocks) {
				m.clients.EXPECT().Get(gomock.Any(), "cli-1").Return(&client.Client{ID: "cli-1"}, nil)
				m.repo.EXPECT().Load(gomock.Any()).Return(nil, nil)
				m.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService(t, date(2024, 1, 1))
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			got, err := svc.Create(context.Background(), tt.params)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, loan.ErrNotFound) || errors.Is(tt.wantErr, loan.ErrValidation) {
					assert.ErrorIs(t, err, tt.wantErr)
				}

				return
			}

			require.NoError(t, err)
			assert.Contains(t, got.ID, "loan-")
			assert.Equal(t, loan.StatusActive, got.Status)
			assert.Equal(t, date(2024, 1, 1), got.StartDate)
			require.Len(t, got.Schedule, 12)
			assert.Equal(t, date(2024, 2, 1), got.Schedule[0].DueDate)
		})
	}
}

func TestService_UpdatePayment(t *testing.T) {
	ctx := context.Background()
	today := date(2024, 4, 10)

	t.Run("persists and evicts prediction", func(t *testing.T) {
		svc, m := newTestService(t, today)
		stored := newLoan(t, loan.InstallmentPaid, loan.InstallmentPaid, loan.InstallmentOverdue)
		other := &loan.Loan{ID: "loan-2"}

		var saved []*loan.Loan

		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{other, stored}, nil)
		m.repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, loans []*loan.Loan) error {
			saved = loans
			return nil
		})
		m.cache.EXPECT().Delete(gomock.Any(), "prediction-loan-1").Return(nil)

		got, err := svc.UpdatePayment(ctx, "loan-1", stored.Schedule[2].ID, loan.InstallmentPaid, nil)
		require.NoError(t, err)

		assert.Equal(t, loan.StatusCompleted, got.Status)
		assert.Equal(t, today, *got.Schedule[2].PaymentDate)
		require.Len(t, saved, 2)
		assert.Same(t, other, saved[0])
		assert.Same(t, got, saved[1])

		// The loaded value is never mutated in place.
		assert.Equal(t, loan.InstallmentOverdue, stored.Schedule[2].Status)
	})

	t.Run("rejected update is not saved", func(t *testing.T) {
		svc, m := newTestService(t, today)
		stored := newLoan(t, loan.InstallmentPending)

		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{stored}, nil)

		_, err := svc.UpdatePayment(ctx, "loan-1", stored.Schedule[0].ID, loan.InstallmentPartiallyPaid, new(decimal.NewFromInt(1000)))
		require.ErrorIs(t, err, loan.ErrInvalidAmount)
	})

	t.Run("unknown loan", func(t *testing.T) {
		svc, m := newTestService(t, today)
		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{}, nil)

		_, err := svc.UpdatePayment(ctx, "loan-x", "inst-1", loan.InstallmentPaid, nil)
		require.ErrorIs(t, err, loan.ErrNotFound)
	})

	t.Run("eviction failure does not fail the update", func(t *testing.T) {
		svc, m := newTestService(t, today)
		stored := newLoan(t, loan.InstallmentPending, loan.InstallmentPending)

		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{stored}, nil)
		m.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		m.cache.EXPECT().Delete(gomock.Any(), "prediction-loan-1").Return(errors.New("redis down"))

		got, err := svc.UpdatePayment(ctx, "loan-1", stored.Schedule[0].ID, loan.InstallmentPaid, nil)
		require.NoError(t, err)
		assert.Equal(t, loan.StatusActive, got.Status)
	})
}

func TestService_Edit(t *testing.T) {
	ctx := context.Background()

	t.Run("term change regenerates schedule", func(t *testing.T) {
		svc, m := newTestService(t, date(2024, 5, 1))
		stored := newLoan(t, loan.InstallmentPaid, loan.InstallmentPaid)
		require.Equal(t, loan.StatusCompleted, stored.Status)

		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{stored}, nil)
		m.repo.EXPECT().Save(gomock.Any(), gomock.Len(1)).Return(nil)
		m.cache.EXPECT().Delete(gomock.Any(), "prediction-loan-1").Return(nil)

		got, err := svc.Edit(ctx, "loan-1", loan.EditParams{DurationMonths: new(4)})
		require.NoError(t, err)

		assert.Equal(t, 4, got.DurationMonths)
		require.Len(t, got.Schedule, 4)
		assert.Equal(t, loan.StatusActive, got.Status)

		for _, inst := range got.Schedule {
			assert.Equal(t, loan.InstallmentPending, inst.Status)
			assert.Equal(t, "500", inst.Amount.String())
		}
	})

	t.Run("officer change keeps history", func(t *testing.T) {
		svc, m := newTestService(t, date(2024, 5, 1))
		stored := newLoan(t, loan.InstallmentPaid, loan.InstallmentPending)
		firstID := stored.Schedule[0].ID

		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{stored}, nil)
		m.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		m.cache.EXPECT().Delete(gomock.Any(), "prediction-loan-1").Return(nil)

		got, err := svc.Edit(ctx, "loan-1", loan.EditParams{
			AssignedOfficer: new("Fatima Jilani"),
			Amount:          new(decimal.NewFromInt(2000)),
		})
		require.NoError(t, err)

		assert.Equal(t, "Fatima Jilani", got.AssignedOfficer)
		assert.Equal(t, firstID, got.Schedule[0].ID)
		assert.Equal(t, loan.InstallmentPaid, got.Schedule[0].Status)
	})

	t.Run("invalid duration", func(t *testing.T) {
		svc, m := newTestService(t, date(2024, 5, 1))
		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{newLoan(t, loan.InstallmentPending)}, nil)

		_, err := svc.Edit(ctx, "loan-1", loan.EditParams{DurationMonths: new(0)})
		require.ErrorIs(t, err, loan.ErrValidation)
	})
}

func TestService_SetStatus(t *testing.T) {
	type testCase struct {
		name     string
		statuses []loan.InstallmentStatus
		status   loan.Status
		wantErr  bool
	}

	tests := []testCase{
		{name: "default active loan", statuses: []loan.InstallmentStatus{loan.InstallmentOverdue}, status: loan.StatusDefaulted},
		{name: "complete paid loan", statuses: []loan.InstallmentStatus{loan.InstallmentPaid}, status: loan.StatusCompleted},
		{name: "complete unpaid loan", statuses: []loan.InstallmentStatus{loan.InstallmentPending}, status: loan.StatusCompleted, wantErr: true},
		{name: "reactivate paid loan", statuses: []loan.InstallmentStatus{loan.InstallmentPaid}, status: loan.StatusActive, wantErr: true},
		{name: "reactivate unpaid loan", statuses: []loan.InstallmentStatus{loan.InstallmentOverdue}, status: loan.StatusActive},
		{name: "unknown status", statuses: []loan.InstallmentStatus{loan.InstallmentPending}, status: loan.Status("Frozen"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService(t, date(2024, 5, 1))
			stored := newLoan(t, tt.statuses...)

			m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{stored}, nil)

			if !tt.wantErr {
				m.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			}

			got, err := svc.SetStatus(context.Background(), "loan-1", tt.status)
			if tt.wantErr {
				require.ErrorIs(t, err, loan.ErrInvalidStatus)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestService_List(t *testing.T) {
	svc, m := newTestService(t, date(2024, 5, 1))

	defaulted := loan.StatusDefaulted
	loans := []*loan.Loan{
		{ID: "loan-1", ClientID: "cli-1", Status: loan.StatusActive},
		{ID: "loan-2", ClientID: "cli-2", Status: loan.StatusDefaulted},
		{ID: "loan-3", ClientID: "cli-1", Status: loan.StatusDefaulted},
	}

	m.repo.EXPECT().Load(gomock.Any()).Return(loans, nil).Times(3)

	all, err := svc.List(context.Background(), loan.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byClient, err := svc.List(context.Background(), loan.Filter{ClientID: "cli-1"})
	require.NoError(t, err)
	assert.Len(t, byClient, 2)

	both, err := svc.List(context.Background(), loan.Filter{ClientID: "cli-1", Status: &defaulted})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "loan-3", both[0].ID)
}

func TestService_RunOverdueSweep(t *testing.T) {
	ctx := context.Background()
	today := date(2024, 3, 15)

	t.Run("single write and eviction per touched loan", func(t *testing.T) {
		svc, m := newTestService(t, today)

		late := newLoan(t, loan.InstallmentPending, loan.InstallmentPending)
		late.Schedule[0].DueDate = date(2024, 3, 14)
		late.Schedule[1].DueDate = date(2024, 4, 14)

		onTime := newLoan(t, loan.InstallmentPending)
		onTime.ID = "loan-2"
		onTime.Schedule[0].DueDate = date(2024, 4, 1)

		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{late, onTime}, nil)
		m.repo.EXPECT().Save(gomock.Any(), gomock.Len(2)).Return(nil).Times(1)
		m.cache.EXPECT().Delete(gomock.Any(), "prediction-loan-1").Return(nil)

		res, err := svc.RunOverdueSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, []string{"loan-1"}, res.LoanIDs)
	})

	t.Run("nothing to do skips the write", func(t *testing.T) {
		svc, m := newTestService(t, today)
		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{newLoan(t, loan.InstallmentPaid)}, nil)

		res, err := svc.RunOverdueSweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Processed)
		assert.Empty(t, res.LoanIDs)
	})

	t.Run("failed write changes nothing", func(t *testing.T) {
		svc, m := newTestService(t, today)

		late := newLoan(t, loan.InstallmentPending)
		late.Schedule[0].DueDate = date(2024, 1, 1)

		m.repo.EXPECT().Load(gomock.Any()).Return([]*loan.Loan{late}, nil)
		m.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := svc.RunOverdueSweep(ctx)
		require.Error(t, err)
		assert.Equal(t, loan.InstallmentPending, late.Schedule[0].Status)
	})
}
