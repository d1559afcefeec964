package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appinv "github.com/marketplace/backend/internal/application/inventory"
	"github.com/marketplace/backend/internal/application/settings"
	"github.com/marketplace/backend/internal/application/txn"
	domain "github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
)

// ExpirationService sweeps unpaid orders whose payment never arrived.
// An order left in PLACED beyond the reservation TTL is cancelled and
// its stock hold released, so abandoned checkouts cannot pin inventory.
type ExpirationService struct {
	scope    txn.Scope
	orders   domain.OrderRepository
	settings settings.Provider
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewExpirationService creates the sweep service
func NewExpirationService(
	scope txn.Scope,
	orders domain.OrderRepository,
	settingsProvider settings.Provider,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *ExpirationService {
	return &ExpirationService{
		scope:    scope,
		orders:   orders,
		settings: settingsProvider,
		eventBus: eventBus,
		logger:   logger,
	}
}

// ExpireStaleOrders cancels every unpaid order older than the
// reservation TTL. Returns how many were expired. Each order is
// processed in its own transaction so one conflict does not abort the
// sweep.
func (s *ExpirationService) ExpireStaleOrders(ctx context.Context) (int, error) {
	ttl, err := s.settings.GetDuration(ctx, settings.KeyReservationTTLMinutes, time.Minute)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-ttl)

	filter := shared.DefaultFilter()
	filter.PageSize = 200
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"
	page, err := s.orders.FindByStatus(ctx, domain.OrderStatusPlaced, filter)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, stale := range page.Items {
		if stale.CreatedAt.After(cutoff) {
			// Ordered oldest first, everything past this is younger.
			break
		}
		if err := s.expireOne(ctx, stale.ID); err != nil {
			s.logger.Warn("failed to expire stale order",
				zap.String("order_number", stale.OrderNumber),
				zap.Error(err))
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("expired stale orders", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *ExpirationService) expireOne(ctx context.Context, orderID uuid.UUID) error {
	var ord *domain.Order
	var stockEvents []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		ord, err = repos.Orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		// Re-check under the transaction; payment may have landed since
		// the sweep listed the order.
		if ord.Status != domain.OrderStatusPlaced || ord.PaymentStatus != domain.PaymentStatusPending {
			ord = nil
			return nil
		}
		version := ord.GetVersion()

		if err := ord.Cancel("reservation expired"); err != nil {
			return err
		}
		if stockEvents, err = appinv.ReleaseLines(ctx, repos, ord.OrderNumber, reservationLines(ord), ord.BuyerID); err != nil {
			return err
		}
		return repos.Orders.SaveWithLock(ctx, ord, version)
	})
	if err != nil || ord == nil {
		return err
	}

	for _, event := range append(ord.GetDomainEvents(), stockEvents...) {
		if pubErr := s.eventBus.Publish(ctx, event); pubErr != nil {
			s.logger.Warn("failed to publish order event",
				zap.String("event_type", event.EventType()),
				zap.Error(pubErr))
		}
	}
	ord.ClearDomainEvents()
	return nil
}
