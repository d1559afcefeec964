package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	orderapp "github.com/marketplace/backend/internal/application/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
)

// OrderHandler exposes the order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	orders *orderapp.OrderService
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orders *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes mounts the order routes on the API group
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", middleware.RequireRole(auth.RoleBuyer), h.PlaceOrder)
		orders.GET("", h.ListMine)
		orders.GET("/summary", middleware.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.StatusSummary)
		orders.GET("/number/:number", h.GetByNumber)
		orders.GET("/:id", h.Get)
		orders.POST("/:id/assign", middleware.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.AssignAgent)
		orders.POST("/:id/start-delivery", middleware.RequireRole(auth.RoleAgent), h.StartDelivery)
		orders.POST("/:id/cancel", h.Cancel)
	}

	// gateway callback, authenticated by the gateway itself
	rg.POST("/payments/callback", h.PaymentCallback)
}

// PlaceOrder opens an order for the authenticated buyer
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req orderapp.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	buyerID, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.BuyerID = buyerID

	resp, err := h.orders.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// PaymentCallback applies the gateway's confirmation or failure notice
func (h *OrderHandler) PaymentCallback(c *gin.Context) {
	var req orderapp.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.orders.HandlePaymentCallback(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AssignAgent hands an approved order to a delivery agent. Omitting
// agent_id in the body auto-assigns the nearest available agent.
func (h *OrderHandler) AssignAgent(c *gin.Context) {
	orderID, err := pathID(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	var req orderapp.AssignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.OrderID = orderID

	resp, err := h.orders.AssignAgent(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// StartDelivery marks the assigned agent as underway
func (h *OrderHandler) StartDelivery(c *gin.Context) {
	orderID, err := pathID(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}
	agentID, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.orders.StartDelivery(c.Request.Context(), orderID, agentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel terminates an order before handover
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, err := pathID(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	var req orderapp.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	actor, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.OrderID = orderID
	req.ActorID = actor

	resp, err := h.orders.CancelOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns one order by ID
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := pathID(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	resp, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByNumber returns one order by its human-facing number
func (h *OrderHandler) GetByNumber(c *gin.Context) {
	resp, err := h.orders.GetOrderByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListMine lists the authenticated actor's orders, scoped by role
func (h *OrderHandler) ListMine(c *gin.Context) {
	filter, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	actor, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var page *shared.Paginated[*orderapp.OrderResponse]
	switch middleware.GetRole(c) {
	case auth.RoleSeller:
		page, err = h.orders.ListSellerOrders(c.Request.Context(), actor, filter)
	case auth.RoleAgent:
		page, err = h.orders.ListAgentOrders(c.Request.Context(), actor, filter)
	default:
		page, err = h.orders.ListBuyerOrders(c.Request.Context(), actor, filter)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// StatusSummary returns order counts per status. Sellers see their own
// orders; admins see the whole platform.
func (h *OrderHandler) StatusSummary(c *gin.Context) {
	var sellerID *uuid.UUID
	if middleware.GetRole(c) == auth.RoleSeller {
		actor, err := actorID(c)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		sellerID = &actor
	}

	resp, err := h.orders.StatusSummary(c.Request.Context(), sellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
