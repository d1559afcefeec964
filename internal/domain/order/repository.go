package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// OrderRepository persists orders
type OrderRepository interface {
	shared.Repository[*Order]

	// FindByOrderNumber loads an order by its human-facing number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByBuyerID lists a buyer's orders
	FindByBuyerID(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Order], error)

	// FindBySellerID lists a seller's orders
	FindBySellerID(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Order], error)

	// FindByAgentID lists orders assigned to a delivery agent
	FindByAgentID(ctx context.Context, agentID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Order], error)

	// FindByStatus lists orders in a given fulfillment state
	FindByStatus(ctx context.Context, status OrderStatus, filter shared.Filter) (*shared.Paginated[*Order], error)

	// CountDeliveredByAgent returns how many orders the agent has
	// completed, used for the delivery bonus
	CountDeliveredByAgent(ctx context.Context, agentID uuid.UUID) (int64, error)

	// SaveWithLock persists the order with an optimistic concurrency
	// check on the version column
	SaveWithLock(ctx context.Context, order *Order, expectedVersion int) error

	// StatusSummary returns order counts grouped by fulfillment status
	StatusSummary(ctx context.Context, sellerID *uuid.UUID) (map[OrderStatus]int64, error)
}
