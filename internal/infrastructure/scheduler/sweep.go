// Package scheduler runs the periodic maintenance sweeps: expiring
// unpaid orders so their stock reservations return to the pool, and
// maturing pending earnings whose settlement window has passed.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OrderExpirer releases stale unpaid orders
type OrderExpirer interface {
	ExpireStaleOrders(ctx context.Context) (int, error)
}

// EarningMaturer moves due earnings from pending to available
type EarningMaturer interface {
	MatureEarnings(ctx context.Context) (int, error)
}

// SweepConfig holds the sweep intervals
type SweepConfig struct {
	// Enabled determines if the sweeper runs at all
	Enabled bool

	// ExpirationInterval is how often stale unpaid orders are expired
	ExpirationInterval time.Duration

	// MaturationInterval is how often pending earnings are matured
	MaturationInterval time.Duration

	// JobTimeout bounds a single sweep run
	JobTimeout time.Duration
}

// DefaultSweepConfig returns default configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Enabled:            true,
		ExpirationInterval: 5 * time.Minute,
		MaturationInterval: 15 * time.Minute,
		JobTimeout:         5 * time.Minute,
	}
}

// Sweeper runs both sweeps on their own intervals
type Sweeper struct {
	expirer   OrderExpirer
	maturer   EarningMaturer
	logger    *zap.Logger
	config    SweepConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweeper creates a sweeper
func NewSweeper(expirer OrderExpirer, maturer EarningMaturer, logger *zap.Logger, config SweepConfig) *Sweeper {
	return &Sweeper{
		expirer: expirer,
		maturer: maturer,
		logger:  logger,
		config:  config,
	}
}

// Start launches the sweep goroutines
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("sweeper is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.runLoop(ctx, "order expiration", s.config.ExpirationInterval, s.expireOnce)
	go s.runLoop(ctx, "earning maturation", s.config.MaturationInterval, s.matureOnce)

	s.logger.Info("sweeper started",
		zap.Duration("expiration_interval", s.config.ExpirationInterval),
		zap.Duration("maturation_interval", s.config.MaturationInterval),
	)
	return nil
}

// Stop shuts the sweeper down, waiting for in-flight runs up to the
// context deadline
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *Sweeper) runLoop(ctx context.Context, name string, interval time.Duration, sweep func(ctx context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
			sweep(runCtx)
			cancel()
		case <-ctx.Done():
			s.logger.Debug("sweep loop exiting", zap.String("sweep", name))
			return
		}
	}
}

func (s *Sweeper) expireOnce(ctx context.Context) {
	expired, err := s.expirer.ExpireStaleOrders(ctx)
	if err != nil {
		s.logger.Error("order expiration sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("expired stale orders", zap.Int("count", expired))
	}
}

func (s *Sweeper) matureOnce(ctx context.Context) {
	matured, err := s.maturer.MatureEarnings(ctx)
	if err != nil {
		s.logger.Error("earning maturation sweep failed", zap.Error(err))
		return
	}
	if matured > 0 {
		s.logger.Info("matured earnings", zap.Int("count", matured))
	}
}
