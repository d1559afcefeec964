package handler

import (
	"github.com/gin-gonic/gin"

	settlementapp "github.com/marketplace/backend/internal/application/settlement"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
)

// SettlementHandler exposes the earnings and payout endpoints
type SettlementHandler struct {
	BaseHandler
	settlement *settlementapp.SettlementService
}

// NewSettlementHandler creates a settlement handler
func NewSettlementHandler(settlement *settlementapp.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlement: settlement}
}

// RegisterRoutes mounts the settlement routes on the API group
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	earners := middleware.RequireRole(auth.RoleSeller, auth.RoleAgent)
	admin := middleware.RequireRole(auth.RoleAdmin)

	earnings := rg.Group("/earnings")
	{
		earnings.GET("/balance", earners, h.GetBalance)
		earnings.GET("", earners, h.ListEarnings)
		earnings.POST("/:id/hold", admin, h.HoldEarning)
		earnings.POST("/:id/release", admin, h.ReleaseEarningHold)
	}

	payouts := rg.Group("/payouts")
	{
		payouts.POST("", earners, h.RequestPayout)
		payouts.GET("", earners, h.ListPayouts)
		payouts.GET("/status/:status", admin, h.ListPayoutsByStatus)
		payouts.POST("/:id/review", admin, h.ReviewPayout)
		payouts.POST("/:id/complete", admin, h.CompletePayout)
	}
}

// GetBalance returns the authenticated earner's settlement position
func (h *SettlementHandler) GetBalance(c *gin.Context) {
	owner, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.settlement.GetBalance(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListEarnings lists the authenticated earner's earning records
func (h *SettlementHandler) ListEarnings(c *gin.Context) {
	owner, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.settlement.ListEarnings(c.Request.Context(), owner, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// RequestPayout opens a withdrawal of matured earnings
func (h *SettlementHandler) RequestPayout(c *gin.Context) {
	var req settlementapp.RequestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	owner, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.OwnerID = owner
	req.Role = string(middleware.GetRole(c))

	resp, err := h.settlement.RequestPayout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListPayouts lists the authenticated earner's payout requests
func (h *SettlementHandler) ListPayouts(c *gin.Context) {
	owner, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.settlement.ListPayouts(c.Request.Context(), owner, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// ListPayoutsByStatus lists payout requests platform-wide by status
func (h *SettlementHandler) ListPayoutsByStatus(c *gin.Context) {
	filter, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.settlement.ListPayoutsByStatus(c.Request.Context(), c.Param("status"), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// ReviewPayout approves or rejects a pending payout
func (h *SettlementHandler) ReviewPayout(c *gin.Context) {
	payoutID, err := pathID(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid payout id")
		return
	}

	var req settlementapp.ReviewPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	reviewer, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.PayoutID = payoutID
	req.ReviewerID = reviewer

	resp, err := h.settlement.ReviewPayout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CompletePayout records the disbursement result for an approved payout
func (h *SettlementHandler) CompletePayout(c *gin.Context) {
	payoutID, err := pathID(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid payout id")
		return
	}

	var req settlementapp.CompletePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.PayoutID = payoutID

	resp, err := h.settlement.CompletePayout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// HoldEarning freezes an earning pending dispute resolution
func (h *SettlementHandler) HoldEarning(c *gin.Context) {
	earningID, err := pathID(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid earning id")
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.settlement.HoldEarning(c.Request.Context(), earningID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"held": true})
}

// ReleaseEarningHold lifts a dispute hold from an earning
func (h *SettlementHandler) ReleaseEarningHold(c *gin.Context) {
	earningID, err := pathID(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid earning id")
		return
	}

	if err := h.settlement.ReleaseEarningHold(c.Request.Context(), earningID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"released": true})
}
