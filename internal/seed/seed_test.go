package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
	"github.com/MrJamesThe3rd/mlms/internal/seed"
)

func TestDemo(t *testing.T) {
	clients, loans, err := seed.Demo()
	require.NoError(t, err)
	require.Len(t, clients, 3)
	require.Len(t, loans, 3)

	business := loans[0]
	assert.Equal(t, loan.StatusActive, business.Status)
	assert.Equal(t, 2, business.Counts()[loan.InstallmentPaid])
	assert.Equal(t, "2023-03-01", business.Schedule[0].DueDate.Format("2006-01-02"))
	assert.True(t, business.Schedule[0].Amount.Equal(*business.Schedule[0].PaidAmount))

	personal := loans[1]
	assert.Equal(t, loan.InstallmentOverdue, personal.Schedule[0].Status)
	assert.Nil(t, personal.Schedule[0].PaidAmount)
	assert.Equal(t, loan.InstallmentPending, personal.Schedule[1].Status)

	emergency := loans[2]
	assert.Equal(t, loan.StatusCompleted, emergency.Status)
	assert.True(t, emergency.AllPaid())
	assert.True(t, emergency.Outstanding().IsZero())
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		clients := client.NewMockRepository(ctrl)
		loans := loan.NewMockRepository(ctrl)

		clients.EXPECT().Load(ctx).Return([]*client.Client{}, nil)
		loans.EXPECT().Load(ctx).Return([]*loan.Loan{}, nil)
		clients.EXPECT().Save(ctx, gomock.Len(3)).Return(nil)
		loans.EXPECT().Save(ctx, gomock.Len(3)).Return(nil)

		seeded, err := seed.Run(ctx, clients, loans)
		require.NoError(t, err)
		assert.True(t, seeded)
	})

	t.Run("existing data", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		clients := client.NewMockRepository(ctrl)
		loans := loan.NewMockRepository(ctrl)

		clients.EXPECT().Load(ctx).Return([]*client.Client{{ID: "cli-9"}}, nil)
		loans.EXPECT().Load(ctx).Return(nil, nil)

		seeded, err := seed.Run(ctx, clients, loans)
		require.NoError(t, err)
		assert.False(t, seeded)
	})
}
