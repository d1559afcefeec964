package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingExpirer struct {
	calls atomic.Int64
}

func (e *countingExpirer) ExpireStaleOrders(ctx context.Context) (int, error) {
	e.calls.Add(1)
	return 1, nil
}

type countingMaturer struct {
	calls atomic.Int64
}

func (m *countingMaturer) MatureEarnings(ctx context.Context) (int, error) {
	m.calls.Add(1)
	return 0, nil
}

func TestSweeper_RunsBothSweeps(t *testing.T) {
	expirer := &countingExpirer{}
	maturer := &countingMaturer{}

	sweeper := NewSweeper(expirer, maturer, zap.NewNop(), SweepConfig{
		Enabled:            true,
		ExpirationInterval: 10 * time.Millisecond,
		MaturationInterval: 10 * time.Millisecond,
		JobTimeout:         time.Second,
	})

	require.NoError(t, sweeper.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return expirer.calls.Load() >= 2 && maturer.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sweeper.Stop(stopCtx))
}

func TestSweeper_Disabled(t *testing.T) {
	expirer := &countingExpirer{}
	maturer := &countingMaturer{}

	sweeper := NewSweeper(expirer, maturer, zap.NewNop(), SweepConfig{
		Enabled:            false,
		ExpirationInterval: time.Millisecond,
		MaturationInterval: time.Millisecond,
		JobTimeout:         time.Second,
	})

	require.NoError(t, sweeper.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, expirer.calls.Load())
	assert.Zero(t, maturer.calls.Load())

	require.NoError(t, sweeper.Stop(context.Background()))
}

func TestSweeper_StartIsIdempotent(t *testing.T) {
	sweeper := NewSweeper(&countingExpirer{}, &countingMaturer{}, zap.NewNop(), DefaultSweepConfig())

	require.NoError(t, sweeper.Start(context.Background()))
	require.NoError(t, sweeper.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sweeper.Stop(stopCtx))
	require.NoError(t, sweeper.Stop(stopCtx))
}
