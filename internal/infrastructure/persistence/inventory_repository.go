package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketplace/backend/internal/domain/inventory"
	"github.com/marketplace/backend/internal/domain/shared"
)

// GormInventoryRecordRepository implements inventory.InventoryRecordRepository using GORM
type GormInventoryRecordRepository struct {
	db *gorm.DB
}

// NewGormInventoryRecordRepository creates a new GORM-based inventory record repository
func NewGormInventoryRecordRepository(db *gorm.DB) *GormInventoryRecordRepository {
	return &GormInventoryRecordRepository{db: db}
}

var _ inventory.InventoryRecordRepository = (*GormInventoryRecordRepository)(nil)

// FindByID retrieves an inventory record by its ID
func (r *GormInventoryRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryRecord, error) {
	var record inventory.InventoryRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByProductID retrieves the inventory record for a product
func (r *GormInventoryRecordRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*inventory.InventoryRecord, error) {
	var record inventory.InventoryRecord
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByProductIDForUpdate retrieves the record with a row-level lock.
// Must run inside a transaction; callers go through the transaction scope.
func (r *GormInventoryRecordRepository) FindByProductIDForUpdate(ctx context.Context, productID uuid.UUID) (*inventory.InventoryRecord, error) {
	var record inventory.InventoryRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindBySellerID retrieves the seller's inventory records with pagination
func (r *GormInventoryRecordRepository) FindBySellerID(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*inventory.InventoryRecord], error) {
	query := r.db.WithContext(ctx).Model(&inventory.InventoryRecord{}).Where("seller_id = ?", sellerID)
	return r.paginate(query, filter)
}

// FindLowStock retrieves records whose available stock is at or below their threshold
func (r *GormInventoryRecordRepository) FindLowStock(ctx context.Context, filter shared.Filter) (*shared.Paginated[*inventory.InventoryRecord], error) {
	query := r.db.WithContext(ctx).Model(&inventory.InventoryRecord{}).
		Where("stock_managed = ?", true).
		Where("stock_quantity - reserved_stock <= low_stock_threshold")
	return r.paginate(query, filter)
}

// FindAll retrieves inventory records matching the filter
func (r *GormInventoryRecordRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*inventory.InventoryRecord, error) {
	var records []*inventory.InventoryRecord
	query := r.db.WithContext(ctx).Model(&inventory.InventoryRecord{})
	query = applySort(query, filter, CommonSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Save persists an inventory record
func (r *GormInventoryRecordRepository) Save(ctx context.Context, record *inventory.InventoryRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// SaveWithLock persists the record only if the stored version matches
// expectedVersion, returning ErrConcurrencyConflict otherwise.
func (r *GormInventoryRecordRepository) SaveWithLock(ctx context.Context, record *inventory.InventoryRecord, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&inventory.InventoryRecord{}).
		Where("id = ? AND version = ?", record.ID, expectedVersion).
		Updates(map[string]interface{}{
			"stock_quantity":      record.StockQuantity,
			"reserved_stock":      record.ReservedStock,
			"low_stock_threshold": record.LowStockThreshold,
			"min_order_quantity":  record.MinOrderQuantity,
			"stock_managed":       record.StockManaged,
			"allow_backorders":    record.AllowBackorders,
			"availability":        record.Availability,
			"version":             record.Version,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Count returns the number of inventory records matching the filter
func (r *GormInventoryRecordRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&inventory.InventoryRecord{}).Count(&count).Error
	return count, err
}

func (r *GormInventoryRecordRepository) paginate(query *gorm.DB, filter shared.Filter) (*shared.Paginated[*inventory.InventoryRecord], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var records []*inventory.InventoryRecord
	query = applySort(query, filter, CommonSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(records, total, filter.Page, filter.PageSize), nil
}

// GormStockMovementRepository implements inventory.StockMovementRepository using GORM.
// The ledger is append-only; there is no update or delete path.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GORM-based stock movement repository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)

// Append writes a new ledger entry
func (r *GormStockMovementRepository) Append(ctx context.Context, movement *inventory.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByProductID retrieves a product's ledger entries with pagination
func (r *GormStockMovementRepository) FindByProductID(ctx context.Context, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*inventory.StockMovement], error) {
	query := r.db.WithContext(ctx).Model(&inventory.StockMovement{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var movements []*inventory.StockMovement
	query = applySort(query, filter, MovementSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(movements, total, filter.Page, filter.PageSize), nil
}

// FindByReference retrieves the ledger entries tagged with a reference,
// such as an order number or purchase document
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, reference string) ([]*inventory.StockMovement, error) {
	var movements []*inventory.StockMovement
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("created_at ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByProductIDSince retrieves a product's ledger entries recorded at or after the given time
func (r *GormStockMovementRepository) FindByProductIDSince(ctx context.Context, productID uuid.UUID, since time.Time) ([]*inventory.StockMovement, error) {
	var movements []*inventory.StockMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND created_at >= ?", productID, since).
		Order("created_at ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}
