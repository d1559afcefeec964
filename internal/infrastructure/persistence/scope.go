package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/marketplace/backend/internal/application/txn"
)

// GormScope implements txn.Scope on top of a GORM transaction. Every
// repository handed to the callback is bound to the same *gorm.DB
// transaction, so a returned error rolls all writes back together.
type GormScope struct {
	db *gorm.DB
}

// NewGormScope creates a transaction scope backed by the given database
func NewGormScope(db *gorm.DB) *GormScope {
	return &GormScope{db: db}
}

var _ txn.Scope = (*GormScope)(nil)

// Execute runs fn inside a database transaction with transaction-bound repositories
func (s *GormScope) Execute(ctx context.Context, fn func(ctx context.Context, repos *txn.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// NewRepositories builds the full repository set bound to one *gorm.DB,
// which may be a transaction handle or the root connection
func NewRepositories(db *gorm.DB) *txn.Repositories {
	return &txn.Repositories{
		Inventory:  NewGormInventoryRecordRepository(db),
		Movements:  NewGormStockMovementRepository(db),
		Orders:     NewGormOrderRepository(db),
		Deliveries: NewGormDeliveryRepository(db),
		Earnings:   NewGormEarningRepository(db),
		Payouts:    NewGormPayoutRepository(db),
	}
}
