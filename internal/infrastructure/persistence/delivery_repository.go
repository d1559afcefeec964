package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketplace/backend/internal/domain/delivery"
	"github.com/marketplace/backend/internal/domain/shared"
)

// GormDeliveryRepository implements delivery.DeliveryRepository using GORM
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRepository creates a new GORM-based delivery repository
func NewGormDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

var _ delivery.DeliveryRepository = (*GormDeliveryRepository)(nil)

// FindByID retrieves a delivery by its ID
func (r *GormDeliveryRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Delivery, error) {
	var dlv delivery.Delivery
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dlv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &dlv, nil
}

// FindByOrderID retrieves the delivery for an order
func (r *GormDeliveryRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*delivery.Delivery, error) {
	var dlv delivery.Delivery
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&dlv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &dlv, nil
}

// FindByQRTokenHash resolves a scanned token's digest to its delivery.
// Used as the fallback when the token cache has no entry.
func (r *GormDeliveryRepository) FindByQRTokenHash(ctx context.Context, tokenHash string) (*delivery.Delivery, error) {
	if tokenHash == "" {
		return nil, shared.ErrNotFound
	}
	var dlv delivery.Delivery
	err := r.db.WithContext(ctx).Where("qr_token_hash = ?", tokenHash).First(&dlv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &dlv, nil
}

// FindByAgentID retrieves an agent's deliveries with pagination
func (r *GormDeliveryRepository) FindByAgentID(ctx context.Context, agentID uuid.UUID, filter shared.Filter) (*shared.Paginated[*delivery.Delivery], error) {
	query := r.db.WithContext(ctx).Model(&delivery.Delivery{}).Where("agent_id = ?", agentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var deliveries []*delivery.Delivery
	query = applySort(query, filter, CommonSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(deliveries, total, filter.Page, filter.PageSize), nil
}

// FindAll retrieves deliveries matching the filter
func (r *GormDeliveryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*delivery.Delivery, error) {
	var deliveries []*delivery.Delivery
	query := r.db.WithContext(ctx).Model(&delivery.Delivery{})
	query = applySort(query, filter, CommonSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// Save persists a delivery
func (r *GormDeliveryRepository) Save(ctx context.Context, dlv *delivery.Delivery) error {
	return r.db.WithContext(ctx).Save(dlv).Error
}

// SaveWithLock persists the delivery only if the stored version matches
// expectedVersion. Verification attempts go through this path so two
// concurrent submissions of the same secret cannot both succeed.
func (r *GormDeliveryRepository) SaveWithLock(ctx context.Context, dlv *delivery.Delivery, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&delivery.Delivery{}).
		Where("id = ? AND version = ?", dlv.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":          dlv.Status,
			"code_hash":       dlv.CodeHash,
			"qr_token_hash":   dlv.QRTokenHash,
			"code_issued_at":  dlv.CodeIssuedAt,
			"code_expires_at": dlv.CodeExpiresAt,
			"verified_at":     dlv.VerifiedAt,
			"verified_by":     dlv.VerifiedBy,
			"attempts":        dlv.Attempts,
			"fail_reason":     dlv.FailReason,
			"version":         dlv.Version,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Count returns the number of deliveries matching the filter
func (r *GormDeliveryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&delivery.Delivery{}).Count(&count).Error
	return count, err
}
