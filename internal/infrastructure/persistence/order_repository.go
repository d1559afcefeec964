package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
)

// GormOrderRepository implements order.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM-based order repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ order.OrderRepository = (*GormOrderRepository)(nil)

// FindByID retrieves an order with its line items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var ord order.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&ord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ord, nil
}

// FindByOrderNumber retrieves an order by its human-facing number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var ord order.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("order_number = ?", orderNumber).First(&ord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ord, nil
}

// FindByBuyerID retrieves a buyer's orders with pagination
func (r *GormOrderRepository) FindByBuyerID(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).Where("buyer_id = ?", buyerID)
	return r.paginate(query, filter)
}

// FindBySellerID retrieves a seller's orders with pagination
func (r *GormOrderRepository) FindBySellerID(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).Where("seller_id = ?", sellerID)
	return r.paginate(query, filter)
}

// FindByAgentID retrieves orders assigned to a delivery agent with pagination
func (r *GormOrderRepository) FindByAgentID(ctx context.Context, agentID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).Where("agent_id = ?", agentID)
	return r.paginate(query, filter)
}

// FindByStatus retrieves orders in a given fulfillment state with pagination
func (r *GormOrderRepository) FindByStatus(ctx context.Context, status order.OrderStatus, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).Where("status = ?", status)
	return r.paginate(query, filter)
}

// CountDeliveredByAgent returns how many orders the agent has completed
func (r *GormOrderRepository) CountDeliveredByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("agent_id = ? AND status = ?", agentID, order.OrderStatusDelivered).
		Count(&count).Error
	return count, err
}

// StatusSummary returns order counts grouped by fulfillment status,
// optionally scoped to a single seller
func (r *GormOrderRepository) StatusSummary(ctx context.Context, sellerID *uuid.UUID) (map[order.OrderStatus]int64, error) {
	type statusCount struct {
		Status order.OrderStatus
		Total  int64
	}

	query := r.db.WithContext(ctx).Model(&order.Order{}).
		Select("status, COUNT(*) as total").
		Group("status")
	if sellerID != nil {
		query = query.Where("seller_id = ?", *sellerID)
	}

	var rows []statusCount
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	summary := make(map[order.OrderStatus]int64, len(rows))
	for _, row := range rows {
		summary[row.Status] = row.Total
	}
	return summary, nil
}

// FindAll retrieves orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*order.Order, error) {
	var orders []*order.Order
	query := r.db.WithContext(ctx).Model(&order.Order{}).Preload("Items")
	query = applySort(query, filter, OrderSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save persists an order and its line items
func (r *GormOrderRepository) Save(ctx context.Context, ord *order.Order) error {
	return r.db.WithContext(ctx).Save(ord).Error
}

// SaveWithLock persists the order only if the stored version matches
// expectedVersion, returning ErrConcurrencyConflict otherwise. Line items
// are immutable after placement, so only the order row is written.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, ord *order.Order, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("id = ? AND version = ?", ord.ID, expectedVersion).
		Updates(map[string]interface{}{
			"agent_id":       ord.AgentID,
			"status":         ord.Status,
			"payment_status": ord.PaymentStatus,
			"cancel_reason":  ord.CancelReason,
			"failure_reason": ord.FailureReason,
			"paid_at":        ord.PaidAt,
			"delivered_at":   ord.DeliveredAt,
			"version":        ord.Version,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Count returns the number of orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&order.Order{}).Count(&count).Error
	return count, err
}

func (r *GormOrderRepository) paginate(query *gorm.DB, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []*order.Order
	query = query.Preload("Items")
	query = applySort(query, filter, OrderSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(orders, total, filter.Page, filter.PageSize), nil
}
