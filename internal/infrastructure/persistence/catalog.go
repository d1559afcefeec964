package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketplace/backend/internal/application/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// Product is the catalog row orders are priced from. The fulfillment
// engine only reads it; catalog management writes it elsewhere.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SellerID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'ETB'"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// SellerProfile carries the seller attributes the engine needs: the
// pickup coordinates for delivery-fee distance and the plan flag that
// decides whether orders settle per-sale commission.
type SellerProfile struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	DisplayName      string    `gorm:"type:varchar(255);not null"`
	PickupLat        *float64  `gorm:"type:decimal(10,7)"`
	PickupLng        *float64  `gorm:"type:decimal(10,7)"`
	SubscriptionPlan bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (SellerProfile) TableName() string {
	return "seller_profiles"
}

// GormProductCatalog implements order.ProductCatalog against the products table
type GormProductCatalog struct {
	db *gorm.DB
}

// NewGormProductCatalog creates a catalog lookup backed by the given database
func NewGormProductCatalog(db *gorm.DB) *GormProductCatalog {
	return &GormProductCatalog{db: db}
}

var _ order.ProductCatalog = (*GormProductCatalog)(nil)

// Lookup resolves a product id to the snapshot copied onto order items
func (c *GormProductCatalog) Lookup(ctx context.Context, productID uuid.UUID) (*order.ProductInfo, error) {
	var product Product
	err := c.db.WithContext(ctx).Where("id = ? AND active = ?", productID, true).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	price, err := valueobject.NewMoney(product.Price, valueobject.Currency(product.Currency))
	if err != nil {
		return nil, err
	}
	return &order.ProductInfo{
		ID:       product.ID,
		SellerID: product.SellerID,
		Name:     product.Name,
		Price:    price,
	}, nil
}

// GormCommissionPlanChecker implements settlement.CommissionPlanChecker
// against the seller_profiles table. Sellers on a subscription plan pay
// a flat fee instead of per-sale commission, so their orders produce no
// seller earning record.
type GormCommissionPlanChecker struct {
	db *gorm.DB
}

// NewGormCommissionPlanChecker creates a plan checker backed by the given database
func NewGormCommissionPlanChecker(db *gorm.DB) *GormCommissionPlanChecker {
	return &GormCommissionPlanChecker{db: db}
}

// OnCommissionPlan reports whether the seller settles per-sale
// commission. Unknown sellers default to the commission plan.
func (c *GormCommissionPlanChecker) OnCommissionPlan(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	var profile SellerProfile
	err := c.db.WithContext(ctx).Where("id = ?", sellerID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, err
	}
	return !profile.SubscriptionPlan, nil
}

// SellerLocator resolves a seller's pickup coordinates for distance-based
// delivery fees. Sellers without coordinates fall back to the configured
// default distance.
type SellerLocator struct {
	db *gorm.DB
}

// NewSellerLocator creates a locator backed by the given database
func NewSellerLocator(db *gorm.DB) *SellerLocator {
	return &SellerLocator{db: db}
}

// PickupPoint returns the seller's pickup coordinates. The second return
// is false when the seller is unknown or has no coordinates on file.
func (l *SellerLocator) PickupPoint(ctx context.Context, sellerID uuid.UUID) (lat, lng float64, ok bool, err error) {
	var profile SellerProfile
	dbErr := l.db.WithContext(ctx).Where("id = ?", sellerID).First(&profile).Error
	if dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return 0, 0, false, nil
		}
		return 0, 0, false, dbErr
	}
	if profile.PickupLat == nil || profile.PickupLng == nil {
		return 0, 0, false, nil
	}
	return *profile.PickupLat, *profile.PickupLng, true, nil
}

// AgentProfile is the roster row auto-assignment reads: whether the
// agent is on duty and where they last reported their position.
type AgentProfile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DisplayName string    `gorm:"type:varchar(255);not null"`
	CurrentLat  *float64  `gorm:"type:decimal(10,7)"`
	CurrentLng  *float64  `gorm:"type:decimal(10,7)"`
	Available   bool      `gorm:"not null;default:false;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (AgentProfile) TableName() string {
	return "agent_profiles"
}

// GormAgentFinder lists on-duty agents for auto-assignment. Agents
// without a reported position are skipped; they cannot be ranked.
type GormAgentFinder struct {
	db *gorm.DB
}

// NewGormAgentFinder creates an agent finder backed by the given database
func NewGormAgentFinder(db *gorm.DB) *GormAgentFinder {
	return &GormAgentFinder{db: db}
}

var _ order.AgentFinder = (*GormAgentFinder)(nil)

// AvailableAgents returns every on-duty agent with a known position
func (f *GormAgentFinder) AvailableAgents(ctx context.Context) ([]order.AgentCandidate, error) {
	var profiles []AgentProfile
	err := f.db.WithContext(ctx).
		Where("available = ? AND current_lat IS NOT NULL AND current_lng IS NOT NULL", true).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	candidates := make([]order.AgentCandidate, 0, len(profiles))
	for _, p := range profiles {
		candidates = append(candidates, order.AgentCandidate{
			ID:  p.ID,
			Lat: *p.CurrentLat,
			Lng: *p.CurrentLng,
		})
	}
	return candidates, nil
}
