// Package txn defines the unit-of-work boundary used by application
// services. A Scope runs a function against repositories bound to one
// database transaction; counter updates, ledger appends and status
// transitions that must land together go through it.
package txn

import (
	"context"

	"github.com/marketplace/backend/internal/domain/delivery"
	"github.com/marketplace/backend/internal/domain/inventory"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/settlement"
)

// Repositories bundles every repository a transactional step may touch,
// all bound to the same transaction
type Repositories struct {
	Inventory  inventory.InventoryRecordRepository
	Movements  inventory.StockMovementRepository
	Orders     order.OrderRepository
	Deliveries delivery.DeliveryRepository
	Earnings   settlement.EarningRepository
	Payouts    settlement.PayoutRepository
}

// Scope executes a function inside a database transaction. The function
// returning an error rolls everything back.
type Scope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

// NoOpScope runs the function against a fixed repository set with no
// transaction, for tests with in-memory fakes
type NoOpScope struct {
	Repos *Repositories
}

// Execute implements Scope
func (s *NoOpScope) Execute(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error {
	return fn(ctx, s.Repos)
}
