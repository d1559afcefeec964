package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketplace/backend/internal/application/txn"
	domain "github.com/marketplace/backend/internal/domain/inventory"
	"github.com/marketplace/backend/internal/domain/shared"
)

// StockService exposes all inventory counter operations. Every mutation
// runs in a transaction that updates the record under an optimistic
// version check and appends the matching ledger entry; the counters and
// the ledger can never drift apart.
type StockService struct {
	scope    txn.Scope
	records  domain.InventoryRecordRepository
	moves    domain.StockMovementRepository
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewStockService creates the inventory application service
func NewStockService(
	scope txn.Scope,
	records domain.InventoryRecordRepository,
	moves domain.StockMovementRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *StockService {
	return &StockService{
		scope:    scope,
		records:  records,
		moves:    moves,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateRecord registers inventory tracking for a product
func (s *StockService) CreateRecord(ctx context.Context, productID, sellerID uuid.UUID) (*StockResponse, error) {
	if existing, err := s.records.FindByProductID(ctx, productID); err == nil && existing != nil {
		return nil, shared.ErrAlreadyExists
	}

	record, err := domain.NewInventoryRecord(productID, sellerID)
	if err != nil {
		return nil, err
	}
	if err := s.records.Save(ctx, record); err != nil {
		return nil, err
	}
	return toStockResponse(record), nil
}

// GetStock returns the current counters for a product
func (s *StockService) GetStock(ctx context.Context, productID uuid.UUID) (*StockResponse, error) {
	record, err := s.records.FindByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return toStockResponse(record), nil
}

// CheckAvailability answers a purchase-time availability inquiry
func (s *StockService) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*AvailabilityResponse, error) {
	record, err := s.records.FindByProductID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	check := record.CheckAvailability(req.Quantity)
	return &AvailabilityResponse{
		ProductID:      req.ProductID,
		Available:      check.Available,
		IsBackorder:    check.IsBackorder,
		AvailableStock: record.AvailableStock(),
		Reason:         check.Reason,
	}, nil
}

// ReserveForOrder holds stock for every line of an unpaid order. All
// lines reserve or none do.
func (s *StockService) ReserveForOrder(ctx context.Context, orderRef string, lines []ReservationLine, actor uuid.UUID) error {
	if len(lines) == 0 {
		return shared.NewDomainError("EMPTY_RESERVATION", "Nothing to reserve")
	}

	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		events, err = ReserveLines(ctx, repos, orderRef, lines, actor)
		return err
	})
	if err != nil {
		s.logger.Warn("stock reservation failed",
			zap.String("order_ref", orderRef),
			zap.Error(err))
		return err
	}
	s.publish(ctx, events)
	return nil
}

// ReleaseForOrder frees the holds of a cancelled or payment-failed order
func (s *StockService) ReleaseForOrder(ctx context.Context, orderRef string, lines []ReservationLine, actor uuid.UUID) error {
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		events, err = ReleaseLines(ctx, repos, orderRef, lines, actor)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// DeductForOrder removes sold stock on payment confirmation, consuming
// the order's reservation
func (s *StockService) DeductForOrder(ctx context.Context, orderRef string, lines []ReservationLine, actor uuid.UUID) error {
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		events, err = DeductLines(ctx, repos, orderRef, lines, actor)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// Restock adds replenished stock for a product
func (s *StockService) Restock(ctx context.Context, req RestockRequest) (*StockResponse, error) {
	var result *StockResponse
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		record, err := repos.Inventory.FindByProductIDForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}
		version := record.GetVersion()
		before := record.StockQuantity

		if err := record.Restock(req.Quantity); err != nil {
			return err
		}

		movement, err := domain.NewStockMovement(
			req.ProductID, domain.MovementRestock,
			req.Quantity, before, record.StockQuantity,
			req.Reference, "", req.PerformedBy,
		)
		if err != nil {
			return err
		}
		if err := repos.Inventory.SaveWithLock(ctx, record, version); err != nil {
			return err
		}
		if err := repos.Movements.Append(ctx, movement); err != nil {
			return err
		}
		events = drainEvents(record)
		result = toStockResponse(record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return result, nil
}

// Adjust sets a product's stock to an absolute quantity with an audit
// reason
func (s *StockService) Adjust(ctx context.Context, req AdjustRequest) (*StockResponse, error) {
	var result *StockResponse
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		record, err := repos.Inventory.FindByProductIDForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}
		version := record.GetVersion()
		before := record.StockQuantity

		delta, err := record.Adjust(req.NewQuantity, req.Reason)
		if err != nil {
			return err
		}
		if delta.IsZero() {
			result = toStockResponse(record)
			return nil
		}

		movement, err := domain.NewStockMovement(
			req.ProductID, domain.MovementAdjustment,
			delta, before, record.StockQuantity,
			"", req.Reason, req.PerformedBy,
		)
		if err != nil {
			return err
		}
		if err := repos.Inventory.SaveWithLock(ctx, record, version); err != nil {
			return err
		}
		if err := repos.Movements.Append(ctx, movement); err != nil {
			return err
		}
		events = drainEvents(record)
		result = toStockResponse(record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return result, nil
}

// MovementHistory pages through a product's ledger, newest first
func (s *StockService) MovementHistory(ctx context.Context, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*MovementResponse], error) {
	page, err := s.moves.FindByProductID(ctx, productID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]*MovementResponse, 0, len(page.Items))
	for _, m := range page.Items {
		items = append(items, toMovementResponse(m))
	}
	return shared.NewPaginated(items, page.Total, page.Page, page.PageSize), nil
}

// ListLowStock lists records at or below their low-stock threshold
func (s *StockService) ListLowStock(ctx context.Context, filter shared.Filter) (*shared.Paginated[*StockResponse], error) {
	page, err := s.records.FindLowStock(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]*StockResponse, 0, len(page.Items))
	for _, r := range page.Items {
		items = append(items, toStockResponse(r))
	}
	return shared.NewPaginated(items, page.Total, page.Page, page.PageSize), nil
}

// VerifyLedger replays a product's full movement history and compares
// the result against the cached counter
func (s *StockService) VerifyLedger(ctx context.Context, productID uuid.UUID) (*LedgerCheckResponse, error) {
	record, err := s.records.FindByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	filter := shared.DefaultFilter()
	filter.PageSize = 10000
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"
	page, err := s.moves.FindByProductID(ctx, productID, filter)
	if err != nil {
		return nil, err
	}

	balance := domain.ReplayMovements(decimal.Zero, page.Items)
	return &LedgerCheckResponse{
		ProductID:      productID,
		StockQuantity:  record.StockQuantity,
		LedgerBalance:  balance,
		Consistent:     balance.Equal(record.StockQuantity),
		MovementsCount: len(page.Items),
	}, nil
}

func (s *StockService) publish(ctx context.Context, events []shared.DomainEvent) {
	for _, event := range events {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish inventory event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
}
