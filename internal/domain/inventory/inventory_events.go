package inventory

import (
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Inventory domain event types
const (
	EventStockReserved       = "inventory.stock_reserved"
	EventReservationReleased = "inventory.reservation_released"
	EventStockDeducted       = "inventory.stock_deducted"
	EventStockRestocked      = "inventory.stock_restocked"
	EventStockAdjusted       = "inventory.stock_adjusted"
	EventLowStock            = "inventory.low_stock"
	EventAvailabilityChanged = "inventory.availability_changed"
)

// StockReservedEvent is raised when stock is held for an unpaid order
type StockReservedEvent struct {
	shared.BaseDomainEvent
	ProductID      string          `json:"product_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	ReservedStock  decimal.Decimal `json:"reserved_stock"`
	AvailableStock decimal.Decimal `json:"available_stock"`
}

func NewStockReservedEvent(r *InventoryRecord, quantity decimal.Decimal) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventStockReserved, "InventoryRecord", r.ID),
		ProductID:       r.ProductID.String(),
		Quantity:        quantity,
		ReservedStock:   r.ReservedStock,
		AvailableStock:  r.AvailableStock(),
	}
}

// ReservationReleasedEvent is raised when a hold is freed
type ReservationReleasedEvent struct {
	shared.BaseDomainEvent
	ProductID      string          `json:"product_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	AvailableStock decimal.Decimal `json:"available_stock"`
}

func NewReservationReleasedEvent(r *InventoryRecord, quantity decimal.Decimal) *ReservationReleasedEvent {
	return &ReservationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventReservationReleased, "InventoryRecord", r.ID),
		ProductID:       r.ProductID.String(),
		Quantity:        quantity,
		AvailableStock:  r.AvailableStock(),
	}
}

// StockDeductedEvent is raised when sold stock leaves on-hand inventory
type StockDeductedEvent struct {
	shared.BaseDomainEvent
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
}

func NewStockDeductedEvent(r *InventoryRecord, quantity decimal.Decimal) *StockDeductedEvent {
	return &StockDeductedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventStockDeducted, "InventoryRecord", r.ID),
		ProductID:       r.ProductID.String(),
		Quantity:        quantity,
		StockQuantity:   r.StockQuantity,
	}
}

// StockRestockedEvent is raised when goods are added back to stock
type StockRestockedEvent struct {
	shared.BaseDomainEvent
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
}

func NewStockRestockedEvent(r *InventoryRecord, quantity decimal.Decimal) *StockRestockedEvent {
	return &StockRestockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventStockRestocked, "InventoryRecord", r.ID),
		ProductID:       r.ProductID.String(),
		Quantity:        quantity,
		StockQuantity:   r.StockQuantity,
	}
}

// StockAdjustedEvent is raised on a manual stock correction
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID     string          `json:"product_id"`
	Delta         decimal.Decimal `json:"delta"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	Reason        string          `json:"reason"`
}

func NewStockAdjustedEvent(r *InventoryRecord, delta decimal.Decimal, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventStockAdjusted, "InventoryRecord", r.ID),
		ProductID:       r.ProductID.String(),
		Delta:           delta,
		StockQuantity:   r.StockQuantity,
		Reason:          reason,
	}
}

// LowStockEvent is raised when available stock drops to the threshold
type LowStockEvent struct {
	shared.BaseDomainEvent
	ProductID      string          `json:"product_id"`
	SellerID       string          `json:"seller_id"`
	AvailableStock decimal.Decimal `json:"available_stock"`
	Threshold      decimal.Decimal `json:"threshold"`
}

func NewLowStockEvent(r *InventoryRecord) *LowStockEvent {
	return &LowStockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventLowStock, "InventoryRecord", r.ID),
		ProductID:       r.ProductID.String(),
		SellerID:        r.SellerID.String(),
		AvailableStock:  r.AvailableStock(),
		Threshold:       r.LowStockThreshold,
	}
}

// AvailabilityChangedEvent is raised when the purchasable state flips
type AvailabilityChangedEvent struct {
	shared.BaseDomainEvent
	ProductID string       `json:"product_id"`
	From      Availability `json:"from"`
	To        Availability `json:"to"`
}

func NewAvailabilityChangedEvent(r *InventoryRecord, from, to Availability) *AvailabilityChangedEvent {
	return &AvailabilityChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventAvailabilityChanged, "InventoryRecord", r.ID),
		ProductID:       r.ProductID.String(),
		From:            from,
		To:              to,
	}
}
