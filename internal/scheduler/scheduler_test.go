package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/mlms/internal/loan"
	"github.com/MrJamesThe3rd/mlms/internal/scheduler"
)

type fakeSweeper struct {
	calls       int
	hadDeadline bool
	err         error
}

func (f *fakeSweeper) RunOverdueSweep(ctx context.Context) (loan.SweepResult, error) {
	f.calls++

	_, f.hadDeadline = ctx.Deadline()

	if f.err != nil {
		return loan.SweepResult{}, f.err
	}

	return loan.SweepResult{Processed: 2, LoanIDs: []string{"loan-1"}}, nil
}

func TestNew(t *testing.T) {
	type testCase struct {
		name    string
		spec    string
		wantErr bool
	}

	tests := []testCase{
		{name: "descriptor", spec: "@daily"},
		{name: "interval", spec: "@every 1h"},
		{name: "five fields", spec: "0 2 * * *"},
		{name: "garbage", spec: "whenever", wantErr: true},
		{name: "seconds field", spec: "0 0 2 * * *", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scheduler.New(tc.spec, &fakeSweeper{}, time.Second)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestScheduler_Sweep(t *testing.T) {
	sweeper := &fakeSweeper{}

	s, err := scheduler.New("@daily", sweeper, time.Second)
	require.NoError(t, err)

	s.Sweep()
	assert.Equal(t, 1, sweeper.calls)
	assert.True(t, sweeper.hadDeadline)

	sweeper.err = errors.New("database is gone")
	s.Sweep()
	assert.Equal(t, 2, sweeper.calls)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := scheduler.New("@daily", &fakeSweeper{}, time.Second)
	require.NoError(t, err)

	s.Start()
	assert.True(t, s.Next().After(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.Stop(ctx)
}
