package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// InventoryRecordRepository persists inventory records
type InventoryRecordRepository interface {
	shared.Repository[*InventoryRecord]

	// FindByProductID loads the record for a product
	FindByProductID(ctx context.Context, productID uuid.UUID) (*InventoryRecord, error)

	// FindByProductIDForUpdate loads the record with a row-level lock,
	// for use inside a transaction that mutates counters
	FindByProductIDForUpdate(ctx context.Context, productID uuid.UUID) (*InventoryRecord, error)

	// FindBySellerID lists a seller's inventory records
	FindBySellerID(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*InventoryRecord], error)

	// FindLowStock lists records whose available stock is at or below
	// their low-stock threshold
	FindLowStock(ctx context.Context, filter shared.Filter) (*shared.Paginated[*InventoryRecord], error)

	// SaveWithLock persists the record with an optimistic concurrency
	// check on the version column
	SaveWithLock(ctx context.Context, record *InventoryRecord, expectedVersion int) error
}

// StockMovementRepository persists the append-only stock ledger.
// Entries are immutable; there is deliberately no update or delete.
type StockMovementRepository interface {
	Append(ctx context.Context, movement *StockMovement) error
	FindByProductID(ctx context.Context, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*StockMovement], error)
	FindByReference(ctx context.Context, reference string) ([]*StockMovement, error)
	FindByProductIDSince(ctx context.Context, productID uuid.UUID, since time.Time) ([]*StockMovement, error)
}
