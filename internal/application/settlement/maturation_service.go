package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marketplace/backend/internal/application/txn"
	domain "github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
)

// maturationBatchSize caps one sweep pass
const maturationBatchSize = 500

// MaturationService sweeps pending earnings whose available date has
// passed and flips them to available. It runs on a scheduler tick;
// balances therefore lag maturity by at most one interval.
type MaturationService struct {
	scope    txn.Scope
	earnings domain.EarningRepository
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewMaturationService creates the sweep service
func NewMaturationService(
	scope txn.Scope,
	earnings domain.EarningRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *MaturationService {
	return &MaturationService{
		scope:    scope,
		earnings: earnings,
		eventBus: eventBus,
		logger:   logger,
	}
}

// MatureEarnings flips every due pending earning to available. Returns
// the number matured. Each record is saved under its version check;
// conflicts are skipped and picked up next tick.
func (s *MaturationService) MatureEarnings(ctx context.Context) (int, error) {
	due, err := s.earnings.FindMaturable(ctx, time.Now(), maturationBatchSize)
	if err != nil {
		return 0, err
	}

	matured := 0
	var events []shared.DomainEvent
	for _, earning := range due {
		err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
			record, err := repos.Earnings.FindByID(ctx, earning.ID)
			if err != nil {
				return err
			}
			version := record.GetVersion()
			if !record.Mature(time.Now()) {
				return nil
			}
			if err := repos.Earnings.SaveWithLock(ctx, record, version); err != nil {
				return err
			}
			events = append(events, record.GetDomainEvents()...)
			record.ClearDomainEvents()
			matured++
			return nil
		})
		if err != nil {
			s.logger.Warn("failed to mature earning",
				zap.String("earning_id", earning.ID.String()),
				zap.Error(err))
		}
	}

	for _, event := range events {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish maturation event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}

	if matured > 0 {
		s.logger.Info("matured earnings", zap.Int("count", matured))
	}
	return matured, nil
}
