package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
)

// GormEarningRepository implements settlement.EarningRepository using GORM
type GormEarningRepository struct {
	db *gorm.DB
}

// NewGormEarningRepository creates a new GORM-based earning repository
func NewGormEarningRepository(db *gorm.DB) *GormEarningRepository {
	return &GormEarningRepository{db: db}
}

var _ settlement.EarningRepository = (*GormEarningRepository)(nil)

// FindByID retrieves an earning record by its ID
func (r *GormEarningRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.EarningRecord, error) {
	var earning settlement.EarningRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&earning).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &earning, nil
}

// FindByOwnerID retrieves an owner's earnings with pagination
func (r *GormEarningRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*settlement.EarningRecord], error) {
	query := r.db.WithContext(ctx).Model(&settlement.EarningRecord{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var earnings []*settlement.EarningRecord
	query = applySort(query, filter, EarningSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&earnings).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(earnings, total, filter.Page, filter.PageSize), nil
}

// FindByOrderID retrieves the earnings an order produced
func (r *GormEarningRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*settlement.EarningRecord, error) {
	var earnings []*settlement.EarningRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

// FindAvailableByOwner retrieves available earnings oldest-first with a
// row-level lock. Payout matching walks the result FIFO inside a
// transaction, so concurrent withdrawal requests serialize here.
func (r *GormEarningRepository) FindAvailableByOwner(ctx context.Context, ownerID uuid.UUID) ([]*settlement.EarningRecord, error) {
	var earnings []*settlement.EarningRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ? AND status = ?", ownerID, settlement.EarningStatusAvailable).
		Order("available_date ASC, created_at ASC").
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

// FindMaturable retrieves pending earnings whose available date has passed
func (r *GormEarningRepository) FindMaturable(ctx context.Context, asOf time.Time, limit int) ([]*settlement.EarningRecord, error) {
	var earnings []*settlement.EarningRecord
	query := r.db.WithContext(ctx).
		Where("status = ? AND available_date <= ?", settlement.EarningStatusPending, asOf).
		Order("available_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&earnings).Error; err != nil {
		return nil, err
	}
	return earnings, nil
}

// FindAll retrieves earning records matching the filter
func (r *GormEarningRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*settlement.EarningRecord, error) {
	var earnings []*settlement.EarningRecord
	query := r.db.WithContext(ctx).Model(&settlement.EarningRecord{})
	query = applySort(query, filter, EarningSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&earnings).Error; err != nil {
		return nil, err
	}
	return earnings, nil
}

// Save persists an earning record
func (r *GormEarningRepository) Save(ctx context.Context, earning *settlement.EarningRecord) error {
	return r.db.WithContext(ctx).Save(earning).Error
}

// SaveWithLock persists the record only if the stored version matches
// expectedVersion, returning ErrConcurrencyConflict otherwise
func (r *GormEarningRepository) SaveWithLock(ctx context.Context, earning *settlement.EarningRecord, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&settlement.EarningRecord{}).
		Where("id = ? AND version = ?", earning.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":           earning.Status,
			"withdrawn_amount": earning.WithdrawnAmount,
			"hold_reason":      earning.HoldReason,
			"version":          earning.Version,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Count returns the number of earning records matching the filter
func (r *GormEarningRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&settlement.EarningRecord{}).Count(&count).Error
	return count, err
}

// GormPayoutRepository implements settlement.PayoutRepository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GORM-based payout repository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

var _ settlement.PayoutRepository = (*GormPayoutRepository)(nil)

// FindByID retrieves a payout request by its ID
func (r *GormPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.PayoutRequest, error) {
	var payout settlement.PayoutRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payout, nil
}

// FindByOwnerID retrieves an owner's payout requests with pagination
func (r *GormPayoutRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*settlement.PayoutRequest], error) {
	query := r.db.WithContext(ctx).Model(&settlement.PayoutRequest{}).Where("owner_id = ?", ownerID)
	return r.paginate(query, filter)
}

// FindOpenByOwner retrieves the owner's non-terminal payout, if any.
// The partial unique index on payout_requests guarantees at most one.
func (r *GormPayoutRepository) FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*settlement.PayoutRequest, error) {
	var payout settlement.PayoutRequest
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status NOT IN ?", ownerID, []settlement.PayoutStatus{
			settlement.PayoutStatusCompleted,
			settlement.PayoutStatusRejected,
		}).
		First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payout, nil
}

// FindByStatus retrieves payouts in a given state with pagination
func (r *GormPayoutRepository) FindByStatus(ctx context.Context, status settlement.PayoutStatus, filter shared.Filter) (*shared.Paginated[*settlement.PayoutRequest], error) {
	query := r.db.WithContext(ctx).Model(&settlement.PayoutRequest{}).Where("status = ?", status)
	return r.paginate(query, filter)
}

// FindAll retrieves payout requests matching the filter
func (r *GormPayoutRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*settlement.PayoutRequest, error) {
	var payouts []*settlement.PayoutRequest
	query := r.db.WithContext(ctx).Model(&settlement.PayoutRequest{})
	query = applySort(query, filter, CommonSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

// Save persists a payout request
func (r *GormPayoutRepository) Save(ctx context.Context, payout *settlement.PayoutRequest) error {
	return r.db.WithContext(ctx).Save(payout).Error
}

// SaveWithLock persists the payout only if the stored version matches
// expectedVersion, returning ErrConcurrencyConflict otherwise
func (r *GormPayoutRepository) SaveWithLock(ctx context.Context, payout *settlement.PayoutRequest, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&settlement.PayoutRequest{}).
		Where("id = ? AND version = ?", payout.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":        payout.Status,
			"reject_reason": payout.RejectReason,
			"reviewed_by":   payout.ReviewedBy,
			"reviewed_at":   payout.ReviewedAt,
			"completed_at":  payout.CompletedAt,
			"payment_ref":   payout.PaymentRef,
			"version":       payout.Version,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Count returns the number of payout requests matching the filter
func (r *GormPayoutRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&settlement.PayoutRequest{}).Count(&count).Error
	return count, err
}

func (r *GormPayoutRepository) paginate(query *gorm.DB, filter shared.Filter) (*shared.Paginated[*settlement.PayoutRequest], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var payouts []*settlement.PayoutRequest
	query = applySort(query, filter, CommonSortFields)
	query = applyPagination(query, filter)
	if err := query.Find(&payouts).Error; err != nil {
		return nil, err
	}
	return shared.NewPaginated(payouts, total, filter.Page, filter.PageSize), nil
}
