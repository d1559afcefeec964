package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinv "github.com/marketplace/backend/internal/application/inventory"
	domain "github.com/marketplace/backend/internal/domain/order"
)

// PlaceOrderItem is one line of a placement request
type PlaceOrderItem struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// PlaceOrderRequest opens an order for a buyer
type PlaceOrderRequest struct {
	BuyerID         uuid.UUID        `json:"-"`
	SellerID        uuid.UUID        `json:"seller_id" binding:"required"`
	Items           []PlaceOrderItem `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress string           `json:"delivery_address" binding:"required"`
	DeliveryLat     *float64         `json:"delivery_lat"`
	DeliveryLng     *float64         `json:"delivery_lng"`
	Notes           string           `json:"notes"`
}

// PaymentCallbackRequest is the gateway's confirmation or failure notice
type PaymentCallbackRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
	PaymentRef  string `json:"payment_ref"`
	Success     bool   `json:"success"`
	Reason      string `json:"reason"`
}

// AssignAgentRequest hands an approved order to a delivery agent. An
// empty agent id asks the service to auto-assign the nearest available
// agent.
type AssignAgentRequest struct {
	OrderID uuid.UUID `json:"-"`
	AgentID uuid.UUID `json:"agent_id"`
}

// CancelOrderRequest terminates an order before handover
type CancelOrderRequest struct {
	OrderID uuid.UUID `json:"-"`
	Reason  string    `json:"reason" binding:"required"`
	ActorID uuid.UUID `json:"-"`
}

// OrderItemResponse is the API shape of an order line
type OrderItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   string          `json:"unit_price"`
	LineTotal   string          `json:"line_total"`
	IsBackorder bool            `json:"is_backorder"`
}

// OrderResponse is the API shape of an order
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	BuyerID         uuid.UUID           `json:"buyer_id"`
	SellerID        uuid.UUID           `json:"seller_id"`
	AgentID         *uuid.UUID          `json:"agent_id,omitempty"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	Subtotal        string              `json:"subtotal"`
	DeliveryFee     string              `json:"delivery_fee"`
	TotalAmount     string              `json:"total_amount"`
	DeliveryAddress string              `json:"delivery_address"`
	Items           []OrderItemResponse `json:"items"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// StatusSummaryResponse is an order count per fulfillment status
type StatusSummaryResponse struct {
	Counts map[string]int64 `json:"counts"`
}

func toOrderResponse(o *domain.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
			LineTotal:   item.LineTotal.String(),
			IsBackorder: item.IsBackorder,
		})
	}
	return &OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		AgentID:         o.AgentID,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		Subtotal:        o.Subtotal.String(),
		DeliveryFee:     o.DeliveryFee.String(),
		TotalAmount:     o.TotalAmount.String(),
		DeliveryAddress: o.DeliveryAddress,
		Items:           items,
		PaidAt:          o.PaidAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
	}
}

func reservationLines(o *domain.Order) []appinv.ReservationLine {
	lines := make([]appinv.ReservationLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, appinv.ReservationLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return lines
}
