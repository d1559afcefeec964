package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType classifies an entry in the stock movement ledger
type MovementType string

const (
	MovementSale               MovementType = "SALE"
	MovementRestock            MovementType = "RESTOCK"
	MovementAdjustment         MovementType = "ADJUSTMENT"
	MovementReturn             MovementType = "RETURN"
	MovementReservation        MovementType = "RESERVATION"
	MovementReservationRelease MovementType = "RESERVATION_RELEASE"
)

// IsValid checks whether the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementSale, MovementRestock, MovementAdjustment,
		MovementReturn, MovementReservation, MovementReservationRelease:
		return true
	}
	return false
}

// affectsStock reports whether this movement type changes on-hand stock.
// Reservation entries record holds only; their before/after quantities
// are equal.
func (t MovementType) affectsStock() bool {
	return t != MovementReservation && t != MovementReservationRelease
}

// StockMovement is one immutable entry in the per-product stock ledger.
// Quantity is signed: negative for sales and downward adjustments,
// positive for restocks, returns and upward adjustments. For movement
// types that affect on-hand stock, NewQuantity always equals
// PreviousQuantity plus Quantity; reservation entries carry the hold size
// in Quantity with PreviousQuantity == NewQuantity. Rows are append-only
// and never updated or deleted.
type StockMovement struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_movements_product_time"`
	MovementType     MovementType    `gorm:"type:varchar(30);not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PreviousQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NewQuantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reference        string          `gorm:"type:varchar(100);index"`
	Reason           string          `gorm:"type:varchar(255)"`
	PerformedBy      uuid.UUID       `gorm:"type:uuid"`
	CreatedAt        time.Time       `gorm:"not null;index:idx_movements_product_time"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a ledger entry. It validates the running
// balance for stock-affecting types and rejects zero quantities.
func NewStockMovement(
	productID uuid.UUID,
	movementType MovementType,
	quantity decimal.Decimal,
	previousQuantity decimal.Decimal,
	newQuantity decimal.Decimal,
	reference string,
	reason string,
	performedBy uuid.UUID,
) (*StockMovement, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Unknown stock movement type")
	}
	if quantity.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity cannot be zero")
	}
	if movementType.affectsStock() {
		if !newQuantity.Equal(previousQuantity.Add(quantity)) {
			return nil, shared.NewDomainError("INVALID_MOVEMENT", "Movement quantities do not balance")
		}
	} else if !newQuantity.Equal(previousQuantity) {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Reservation movements must not change stock")
	}

	return &StockMovement{
		ID:               uuid.New(),
		ProductID:        productID,
		MovementType:     movementType,
		Quantity:         quantity,
		PreviousQuantity: previousQuantity,
		NewQuantity:      newQuantity,
		Reference:        reference,
		Reason:           reason,
		PerformedBy:      performedBy,
		CreatedAt:        time.Now(),
	}, nil
}

// ReplayMovements folds a product's ledger, in order, into the stock
// quantity it implies. Used by consistency checks to verify that the
// cached counter on the inventory record matches the ledger.
func ReplayMovements(initial decimal.Decimal, movements []*StockMovement) decimal.Decimal {
	balance := initial
	for _, m := range movements {
		if m.MovementType.affectsStock() {
			balance = balance.Add(m.Quantity)
		}
	}
	return balance
}
