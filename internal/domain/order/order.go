package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusApproved  OrderStatus = "APPROVED"
	OrderStatusAssigned  OrderStatus = "ASSIGNED"
	OrderStatusInTransit OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

// CanTransitionTo checks whether the fulfillment state machine permits
// moving to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPlaced:    {OrderStatusApproved, OrderStatusCancelled, OrderStatusFailed},
		OrderStatusApproved:  {OrderStatusAssigned, OrderStatusCancelled},
		OrderStatusAssigned:  {OrderStatusInTransit, OrderStatusCancelled},
		OrderStatusInTransit: {OrderStatusDelivered, OrderStatusFailed},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
		OrderStatusFailed:    {},
	}
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// PaymentStatus is the payment state of an order, synchronized with but
// distinct from the fulfillment status
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// OrderItem is a line on an order. Quantities and prices are captured at
// placement time and never change afterwards.
type OrderItem struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	SellerID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProductName string            `gorm:"type:varchar(255);not null"`
	Quantity    decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	UnitPrice   valueobject.Money `gorm:"type:decimal(18,2);not null"`
	LineTotal   valueobject.Money `gorm:"type:decimal(18,2);not null"`
	IsBackorder bool              `gorm:"not null;default:false"`
	CreatedAt   time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// Order is the aggregate root for a buyer's purchase: its items, its
// fulfillment status, and its payment status. The two status fields move
// through separate machines that are synchronized by the application
// layer: payment confirmation approves fulfillment, payment failure or
// refund terminates it.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string            `gorm:"type:varchar(32);not null;uniqueIndex"`
	BuyerID         uuid.UUID         `gorm:"type:uuid;not null;index"`
	SellerID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	AgentID         *uuid.UUID        `gorm:"type:uuid;index"`
	Status          OrderStatus       `gorm:"type:varchar(20);not null;index"`
	PaymentStatus   PaymentStatus     `gorm:"type:varchar(20);not null;index"`
	Subtotal        valueobject.Money `gorm:"type:decimal(18,2);not null"`
	DeliveryFee     valueobject.Money `gorm:"type:decimal(18,2);not null"`
	TotalAmount     valueobject.Money `gorm:"type:decimal(18,2);not null"`
	DeliveryAddress string            `gorm:"type:text"`
	DeliveryLat     *float64          `gorm:"type:decimal(10,7)"`
	DeliveryLng     *float64          `gorm:"type:decimal(10,7)"`
	Notes           string            `gorm:"type:text"`
	CancelReason    string            `gorm:"type:varchar(255)"`
	FailureReason   string            `gorm:"type:varchar(255)"`
	PaidAt          *time.Time
	DeliveredAt     *time.Time
	Items           []OrderItem `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrderItem builds an order line, computing the line total
func NewOrderItem(productID, sellerID uuid.UUID, productName string, quantity decimal.Decimal, unitPrice valueobject.Money, isBackorder bool) (*OrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Item quantity must be positive")
	}
	return &OrderItem{
		ID:          uuid.New(),
		ProductID:   productID,
		SellerID:    sellerID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Mul(quantity),
		IsBackorder: isBackorder,
		CreatedAt:   time.Now(),
	}, nil
}

// NewOrder places an order in PLACED/PENDING state. All items must
// belong to the given seller; mixed-seller carts are split upstream.
func NewOrder(orderNumber string, buyerID, sellerID uuid.UUID, items []OrderItem, deliveryFee valueobject.Money, address string) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer ID cannot be empty")
	}
	if sellerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SELLER", "Seller ID cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one item")
	}

	subtotal := valueobject.Zero(deliveryFee.Currency())
	for i := range items {
		if items[i].SellerID != sellerID {
			return nil, shared.NewDomainError("MIXED_SELLERS", "All items must belong to the same seller")
		}
		var err error
		subtotal, err = subtotal.Add(items[i].LineTotal)
		if err != nil {
			return nil, err
		}
	}
	total, err := subtotal.Add(deliveryFee)
	if err != nil {
		return nil, err
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		BuyerID:           buyerID,
		SellerID:          sellerID,
		Status:            OrderStatusPlaced,
		PaymentStatus:     PaymentStatusPending,
		Subtotal:          subtotal,
		DeliveryFee:       deliveryFee,
		TotalAmount:       total,
		DeliveryAddress:   address,
		Items:             items,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	order.AddDomainEvent(NewOrderPlacedEvent(order))
	return order, nil
}

// SetDeliveryLocation records the dropoff coordinates used for agent
// fee calculation
func (o *Order) SetDeliveryLocation(lat, lng float64) {
	o.DeliveryLat = &lat
	o.DeliveryLng = &lng
	o.touch()
}

// ConfirmPayment records a successful payment and approves the order
// for fulfillment. Idempotent: confirming an already paid order is a
// no-op so gateway callback retries are safe.
func (o *Order) ConfirmPayment(paymentRef string) error {
	if o.PaymentStatus == PaymentStatusPaid {
		return nil
	}
	if o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_PAYMENT_STATE", "Payment is not pending")
	}
	if !o.Status.CanTransitionTo(OrderStatusApproved) {
		return shared.ErrInvalidTransition
	}

	now := time.Now()
	o.PaymentStatus = PaymentStatusPaid
	o.PaidAt = &now
	o.Status = OrderStatusApproved
	o.touch()

	o.AddDomainEvent(NewOrderPaidEvent(o, paymentRef))
	return nil
}

// FailPayment records a definitive payment failure and terminates the
// order. Reserved stock is released by the application layer.
func (o *Order) FailPayment(reason string) error {
	if o.PaymentStatus != PaymentStatusPending {
		return shared.NewDomainError("INVALID_PAYMENT_STATE", "Payment is not pending")
	}
	if !o.Status.CanTransitionTo(OrderStatusFailed) {
		return shared.ErrInvalidTransition
	}

	o.PaymentStatus = PaymentStatusFailed
	o.Status = OrderStatusFailed
	o.FailureReason = reason
	o.touch()

	o.AddDomainEvent(NewOrderFailedEvent(o, reason))
	return nil
}

// AssignAgent hands the order to a delivery agent
func (o *Order) AssignAgent(agentID uuid.UUID) error {
	if agentID == uuid.Nil {
		return shared.NewDomainError("INVALID_AGENT", "Agent ID cannot be empty")
	}
	if !o.Status.CanTransitionTo(OrderStatusAssigned) {
		return shared.ErrInvalidTransition
	}

	o.AgentID = &agentID
	o.Status = OrderStatusAssigned
	o.touch()

	o.AddDomainEvent(NewOrderAssignedEvent(o, agentID))
	return nil
}

// StartDelivery marks the order as picked up by its agent
func (o *Order) StartDelivery() error {
	if o.AgentID == nil {
		return shared.NewDomainError("NO_AGENT", "Order has no assigned agent")
	}
	if !o.Status.CanTransitionTo(OrderStatusInTransit) {
		return shared.ErrInvalidTransition
	}

	o.Status = OrderStatusInTransit
	o.touch()

	o.AddDomainEvent(NewOrderInTransitEvent(o))
	return nil
}

// CompleteDelivery marks the order delivered after a verified handover.
// Requires a paid order; delivery of unpaid goods is never recorded.
func (o *Order) CompleteDelivery() error {
	if o.PaymentStatus != PaymentStatusPaid {
		return shared.NewDomainError("UNPAID_ORDER", "Cannot deliver an unpaid order")
	}
	if !o.Status.CanTransitionTo(OrderStatusDelivered) {
		return shared.ErrInvalidTransition
	}

	now := time.Now()
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &now
	o.touch()

	o.AddDomainEvent(NewOrderDeliveredEvent(o))
	return nil
}

// Cancel terminates the order before handover. If the order was already
// paid the payment flips to REFUNDED and the application layer restocks;
// if unpaid, only the reservation is released.
func (o *Order) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.ErrInvalidTransition
	}

	wasPaid := o.PaymentStatus == PaymentStatusPaid
	if wasPaid {
		o.PaymentStatus = PaymentStatusRefunded
	}
	o.Status = OrderStatusCancelled
	o.CancelReason = reason
	o.touch()

	o.AddDomainEvent(NewOrderCancelledEvent(o, reason, wasPaid))
	return nil
}

// FailDelivery terminates an in-transit order that could not be handed
// over. The paid amount is refunded.
func (o *Order) FailDelivery(reason string) error {
	if o.Status != OrderStatusInTransit {
		return shared.ErrInvalidTransition
	}

	if o.PaymentStatus == PaymentStatusPaid {
		o.PaymentStatus = PaymentStatusRefunded
	}
	o.Status = OrderStatusFailed
	o.FailureReason = reason
	o.touch()

	o.AddDomainEvent(NewOrderFailedEvent(o, reason))
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}
