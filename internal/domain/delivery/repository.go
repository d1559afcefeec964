package delivery

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// DeliveryRepository persists handover verification records
type DeliveryRepository interface {
	shared.Repository[*Delivery]

	// FindByOrderID loads the delivery for an order
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Delivery, error)

	// FindByQRTokenHash resolves a scanned token's digest to its delivery
	FindByQRTokenHash(ctx context.Context, tokenHash string) (*Delivery, error)

	// FindByAgentID lists an agent's deliveries
	FindByAgentID(ctx context.Context, agentID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Delivery], error)

	// SaveWithLock persists the delivery with an optimistic concurrency
	// check on the version column. Verification goes through this so two
	// concurrent submissions of the same secret cannot both succeed.
	SaveWithLock(ctx context.Context, delivery *Delivery, expectedVersion int) error
}
