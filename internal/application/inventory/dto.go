package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/marketplace/backend/internal/domain/inventory"
)

// ReservationLine is one product/quantity pair to reserve or release
type ReservationLine struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// AvailabilityRequest asks whether a quantity of a product can be sold
type AvailabilityRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// AvailabilityResponse reports the result of an availability check
type AvailabilityResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Available      bool            `json:"available"`
	IsBackorder    bool            `json:"is_backorder"`
	AvailableStock decimal.Decimal `json:"available_stock"`
	Reason         string          `json:"reason,omitempty"`
}

// RestockRequest adds stock to a product
type RestockRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Reference   string          `json:"reference"`
	PerformedBy uuid.UUID       `json:"-"`
}

// AdjustRequest sets a product's stock to an absolute quantity
type AdjustRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	NewQuantity decimal.Decimal `json:"new_quantity" binding:"required"`
	Reason      string          `json:"reason" binding:"required"`
	PerformedBy uuid.UUID       `json:"-"`
}

// StockResponse is the API shape of an inventory record
type StockResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	SellerID       uuid.UUID       `json:"seller_id"`
	StockQuantity  decimal.Decimal `json:"stock_quantity"`
	ReservedStock  decimal.Decimal `json:"reserved_stock"`
	AvailableStock decimal.Decimal `json:"available_stock"`
	Availability   string          `json:"availability"`
	LowStock       bool            `json:"low_stock"`
	StockManaged   bool            `json:"stock_managed"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MovementResponse is the API shape of one ledger entry
type MovementResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	MovementType     string          `json:"movement_type"`
	Quantity         decimal.Decimal `json:"quantity"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	Reference        string          `json:"reference,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// LedgerCheckResponse reports whether a product's counter matches its
// replayed ledger
type LedgerCheckResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	StockQuantity  decimal.Decimal `json:"stock_quantity"`
	LedgerBalance  decimal.Decimal `json:"ledger_balance"`
	Consistent     bool            `json:"consistent"`
	MovementsCount int             `json:"movements_count"`
}

func toStockResponse(r *domain.InventoryRecord) *StockResponse {
	return &StockResponse{
		ProductID:      r.ProductID,
		SellerID:       r.SellerID,
		StockQuantity:  r.StockQuantity,
		ReservedStock:  r.ReservedStock,
		AvailableStock: r.AvailableStock(),
		Availability:   string(r.Availability),
		LowStock:       r.IsLowStock(),
		StockManaged:   r.StockManaged,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toMovementResponse(m *domain.StockMovement) *MovementResponse {
	return &MovementResponse{
		ID:               m.ID,
		ProductID:        m.ProductID,
		MovementType:     string(m.MovementType),
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Reference:        m.Reference,
		Reason:           m.Reason,
		CreatedAt:        m.CreatedAt,
	}
}
