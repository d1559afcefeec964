package order

import (
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// Order domain event types
const (
	EventOrderPlaced    = "order.placed"
	EventOrderPaid      = "order.paid"
	EventOrderAssigned  = "order.assigned"
	EventOrderInTransit = "order.in_transit"
	EventOrderDelivered = "order.delivered"
	EventOrderCancelled = "order.cancelled"
	EventOrderFailed    = "order.failed"
)

// OrderPlacedEvent is raised when a buyer places an order
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	BuyerID     string `json:"buyer_id"`
	SellerID    string `json:"seller_id"`
	TotalAmount string `json:"total_amount"`
	ItemCount   int    `json:"item_count"`
}

func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderPlaced, "Order", o.ID),
		OrderNumber:     o.OrderNumber,
		BuyerID:         o.BuyerID.String(),
		SellerID:        o.SellerID.String(),
		TotalAmount:     o.TotalAmount.String(),
		ItemCount:       len(o.Items),
	}
}

// OrderPaidEvent is raised when payment is confirmed and the order
// approved for fulfillment
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	SellerID    string `json:"seller_id"`
	PaymentRef  string `json:"payment_ref"`
	TotalAmount string `json:"total_amount"`
}

func NewOrderPaidEvent(o *Order, paymentRef string) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderPaid, "Order", o.ID),
		OrderNumber:     o.OrderNumber,
		SellerID:        o.SellerID.String(),
		PaymentRef:      paymentRef,
		TotalAmount:     o.TotalAmount.String(),
	}
}

// OrderAssignedEvent is raised when a delivery agent takes the order
type OrderAssignedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	AgentID     string `json:"agent_id"`
}

func NewOrderAssignedEvent(o *Order, agentID uuid.UUID) *OrderAssignedEvent {
	return &OrderAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderAssigned, "Order", o.ID),
		OrderNumber:     o.OrderNumber,
		AgentID:         agentID.String(),
	}
}

// OrderInTransitEvent is raised when the agent picks up the order
type OrderInTransitEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	AgentID     string `json:"agent_id"`
}

func NewOrderInTransitEvent(o *Order) *OrderInTransitEvent {
	evt := &OrderInTransitEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderInTransit, "Order", o.ID),
		OrderNumber:     o.OrderNumber,
	}
	if o.AgentID != nil {
		evt.AgentID = o.AgentID.String()
	}
	return evt
}

// OrderDeliveredEvent is raised after a verified handover. Settlement
// subscribes to this to create earning records.
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	SellerID    string `json:"seller_id"`
	AgentID     string `json:"agent_id"`
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"delivery_fee"`
}

func NewOrderDeliveredEvent(o *Order) *OrderDeliveredEvent {
	evt := &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderDelivered, "Order", o.ID),
		OrderNumber:     o.OrderNumber,
		SellerID:        o.SellerID.String(),
		Subtotal:        o.Subtotal.String(),
		DeliveryFee:     o.DeliveryFee.String(),
	}
	if o.AgentID != nil {
		evt.AgentID = o.AgentID.String()
	}
	return evt
}

// OrderCancelledEvent is raised when an order terminates before handover
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
	WasPaid     bool   `json:"was_paid"`
}

func NewOrderCancelledEvent(o *Order, reason string, wasPaid bool) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderCancelled, "Order", o.ID),
		OrderNumber:     o.OrderNumber,
		Reason:          reason,
		WasPaid:         wasPaid,
	}
}

// OrderFailedEvent is raised when payment or delivery fails terminally
type OrderFailedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

func NewOrderFailedEvent(o *Order, reason string) *OrderFailedEvent {
	return &OrderFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventOrderFailed, "Order", o.ID),
		OrderNumber:     o.OrderNumber,
		Reason:          reason,
	}
}
