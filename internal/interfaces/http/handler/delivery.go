package handler

import (
	"github.com/gin-gonic/gin"

	deliveryapp "github.com/marketplace/backend/internal/application/delivery"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
)

// DeliveryHandler exposes the handover verification endpoints
type DeliveryHandler struct {
	BaseHandler
	verification *deliveryapp.VerificationService
}

// NewDeliveryHandler creates a delivery handler
func NewDeliveryHandler(verification *deliveryapp.VerificationService) *DeliveryHandler {
	return &DeliveryHandler{verification: verification}
}

// RegisterRoutes mounts the delivery routes on the API group
func (h *DeliveryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	deliveries := rg.Group("/deliveries")
	{
		deliveries.GET("/:order_id", h.Get)
		deliveries.GET("/:order_id/qr", middleware.RequireRole(auth.RoleBuyer), h.GetHandoverQR)
		deliveries.POST("/:order_id/resend", middleware.RequireRole(auth.RoleBuyer), h.ResendSecret)
		deliveries.POST("/:order_id/verify-code", middleware.RequireRole(auth.RoleAgent), h.VerifyByCode)
		deliveries.POST("/:order_id/fail", middleware.RequireRole(auth.RoleAgent), h.FailDelivery)
		deliveries.POST("/verify-qr", middleware.RequireRole(auth.RoleAgent), h.VerifyByQR)
	}
}

// Get returns the handover record for an order
func (h *DeliveryHandler) Get(c *gin.Context) {
	orderID, err := pathID(c, "order_id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	resp, err := h.verification.GetDelivery(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetHandoverQR returns the QR document the buyer's app renders
func (h *DeliveryHandler) GetHandoverQR(c *gin.Context) {
	orderID, err := pathID(c, "order_id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}
	requester, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.verification.GetHandoverQR(c.Request.Context(), orderID, requester)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ResendSecret rotates and re-delivers the handover secret
func (h *DeliveryHandler) ResendSecret(c *gin.Context) {
	orderID, err := pathID(c, "order_id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}
	requester, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.verification.ResendSecret(c.Request.Context(), orderID, requester)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VerifyByCode completes a handover with a buyer-spoken code
func (h *DeliveryHandler) VerifyByCode(c *gin.Context) {
	orderID, err := pathID(c, "order_id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	var req deliveryapp.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	verifier, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.OrderID = orderID
	req.VerifierID = verifier

	resp, err := h.verification.VerifyByCode(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// FailDelivery reports an in-transit handover that cannot complete
func (h *DeliveryHandler) FailDelivery(c *gin.Context) {
	orderID, err := pathID(c, "order_id")
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	var req deliveryapp.FailDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	verifier, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.OrderID = orderID
	req.VerifierID = verifier

	resp, err := h.verification.FailDelivery(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VerifyByQR completes a handover with a scanned QR payload
func (h *DeliveryHandler) VerifyByQR(c *gin.Context) {
	var req deliveryapp.VerifyQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	verifier, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.VerifierID = verifier

	resp, err := h.verification.VerifyByQR(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
