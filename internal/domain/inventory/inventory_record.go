package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Availability represents the purchasable state of a product as derived
// from its stock counters.
type Availability string

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilitySoldOut   Availability = "SOLD_OUT"
)

// InventoryRecord is the aggregate root for per-product inventory.
// StockQuantity is the on-hand count; ReservedStock is the portion held
// for unpaid orders. Both counters are cached projections of the stock
// movement ledger and are only ever mutated through the methods below.
type InventoryRecord struct {
	shared.BaseAggregateRoot
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	SellerID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	StockQuantity     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedStock     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LowStockThreshold decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinOrderQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
	StockManaged      bool            `gorm:"not null;default:true"`
	AllowBackorders   bool            `gorm:"not null;default:false"`
	Availability      Availability    `gorm:"type:varchar(20);not null;default:'AVAILABLE'"`
}

// TableName returns the table name for GORM
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// NewInventoryRecord creates a new inventory record for a product
func NewInventoryRecord(productID, sellerID uuid.UUID) (*InventoryRecord, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if sellerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SELLER", "Seller ID cannot be empty")
	}

	return &InventoryRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		SellerID:          sellerID,
		StockQuantity:     decimal.Zero,
		ReservedStock:     decimal.Zero,
		LowStockThreshold: decimal.Zero,
		MinOrderQuantity:  decimal.NewFromInt(1),
		StockManaged:      true,
		AllowBackorders:   false,
		Availability:      AvailabilityAvailable,
	}, nil
}

// AvailableStock returns the quantity available for sale (on-hand minus reserved)
func (r *InventoryRecord) AvailableStock() decimal.Decimal {
	return r.StockQuantity.Sub(r.ReservedStock)
}

// AvailabilityCheck is the result of an availability inquiry
type AvailabilityCheck struct {
	Available   bool
	IsBackorder bool
	Reason      string
}

// CheckAvailability reports whether the requested quantity can be sold.
// Fails closed when stock management is enabled and the quantity is below
// the minimum order quantity, or when available stock is insufficient and
// backorders are disallowed. Products without stock management are always
// available.
func (r *InventoryRecord) CheckAvailability(quantity decimal.Decimal) AvailabilityCheck {
	if !r.StockManaged {
		return AvailabilityCheck{Available: true}
	}
	if quantity.LessThan(r.MinOrderQuantity) {
		return AvailabilityCheck{
			Available: false,
			Reason:    "quantity below minimum order quantity",
		}
	}
	if r.AvailableStock().LessThan(quantity) {
		if r.AllowBackorders {
			return AvailabilityCheck{Available: true, IsBackorder: true}
		}
		return AvailabilityCheck{
			Available: false,
			Reason:    "insufficient stock",
		}
	}
	return AvailabilityCheck{Available: true}
}

// Reserve places a hold on the given quantity for an unpaid order.
// The hold increases ReservedStock without touching StockQuantity.
// When backorders are allowed the hold is capped at the on-hand quantity
// so that ReservedStock never exceeds StockQuantity. Returns the reserved
// quantity; a zero result with no error means stock management is off.
func (r *InventoryRecord) Reserve(quantity decimal.Decimal) (decimal.Decimal, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if !r.StockManaged {
		return decimal.Zero, nil
	}

	check := r.CheckAvailability(quantity)
	if !check.Available {
		return decimal.Zero, shared.ErrInsufficientStock
	}

	reserved := quantity
	if r.ReservedStock.Add(reserved).GreaterThan(r.StockQuantity) {
		// Backorder path: only the on-hand remainder can be held.
		reserved = r.StockQuantity.Sub(r.ReservedStock)
	}
	r.ReservedStock = r.ReservedStock.Add(reserved)
	r.touch()

	r.AddDomainEvent(NewStockReservedEvent(r, quantity))
	r.recomputeAvailability()

	return reserved, nil
}

// ReleaseReservation frees a previously held quantity, floored at zero.
// Used when an order is cancelled before payment.
func (r *InventoryRecord) ReleaseReservation(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if !r.StockManaged {
		return nil
	}

	r.ReservedStock = r.ReservedStock.Sub(quantity)
	if r.ReservedStock.IsNegative() {
		r.ReservedStock = decimal.Zero
	}
	r.touch()

	r.AddDomainEvent(NewReservationReleasedEvent(r, quantity))
	r.recomputeAvailability()

	return nil
}

// DeductSale removes sold stock on payment confirmation. Both counters
// drop by the quantity in the same step, each floored at zero, so a
// reservation consumed by its sale leaves ReservedStock where it started.
func (r *InventoryRecord) DeductSale(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Deduct quantity must be positive")
	}
	if !r.StockManaged {
		return nil
	}

	r.StockQuantity = r.StockQuantity.Sub(quantity)
	if r.StockQuantity.IsNegative() {
		r.StockQuantity = decimal.Zero
	}
	r.ReservedStock = r.ReservedStock.Sub(quantity)
	if r.ReservedStock.IsNegative() {
		r.ReservedStock = decimal.Zero
	}
	r.touch()

	r.AddDomainEvent(NewStockDeductedEvent(r, quantity))
	if r.IsLowStock() {
		r.AddDomainEvent(NewLowStockEvent(r))
	}
	r.recomputeAvailability()

	return nil
}

// Restock adds returned or replenished goods back to on-hand stock
func (r *InventoryRecord) Restock(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}

	r.StockQuantity = r.StockQuantity.Add(quantity)
	r.touch()

	r.AddDomainEvent(NewStockRestockedEvent(r, quantity))
	r.recomputeAvailability()

	return nil
}

// Adjust sets StockQuantity to an absolute value (admin override) and
// returns the signed delta from the previous quantity. ReservedStock is
// clamped down if the new quantity is below it.
func (r *InventoryRecord) Adjust(newQuantity decimal.Decimal, reason string) (decimal.Decimal, error) {
	if newQuantity.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Adjusted quantity cannot be negative")
	}
	if reason == "" {
		return decimal.Zero, shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}

	delta := newQuantity.Sub(r.StockQuantity)
	r.StockQuantity = newQuantity
	if r.ReservedStock.GreaterThan(r.StockQuantity) {
		r.ReservedStock = r.StockQuantity
	}
	r.touch()

	r.AddDomainEvent(NewStockAdjustedEvent(r, delta, reason))
	r.recomputeAvailability()

	return delta, nil
}

// SetStockManagement toggles stock management and backorder policy
func (r *InventoryRecord) SetStockManagement(managed, allowBackorders bool) {
	r.StockManaged = managed
	r.AllowBackorders = allowBackorders
	r.touch()
	r.recomputeAvailability()
}

// SetThresholds sets the low-stock threshold and minimum order quantity
func (r *InventoryRecord) SetThresholds(lowStock, minOrder decimal.Decimal) error {
	if lowStock.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Low stock threshold cannot be negative")
	}
	if minOrder.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Minimum order quantity must be positive")
	}
	r.LowStockThreshold = lowStock
	r.MinOrderQuantity = minOrder
	r.touch()
	return nil
}

// IsLowStock returns true if available stock is at or below the threshold
func (r *InventoryRecord) IsLowStock() bool {
	return r.StockManaged &&
		r.LowStockThreshold.GreaterThan(decimal.Zero) &&
		r.AvailableStock().LessThanOrEqual(r.LowStockThreshold)
}

// recomputeAvailability derives the purchasable state from the counters:
// sold out when nothing is available and backorders are disallowed,
// available again as soon as stock rises above zero.
func (r *InventoryRecord) recomputeAvailability() {
	if !r.StockManaged {
		r.Availability = AvailabilityAvailable
		return
	}
	previous := r.Availability
	if r.AvailableStock().LessThanOrEqual(decimal.Zero) && !r.AllowBackorders {
		r.Availability = AvailabilitySoldOut
	} else {
		r.Availability = AvailabilityAvailable
	}
	if previous != r.Availability {
		r.AddDomainEvent(NewAvailabilityChangedEvent(r, previous, r.Availability))
	}
}

func (r *InventoryRecord) touch() {
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}
