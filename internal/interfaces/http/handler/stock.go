package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/marketplace/backend/internal/application/inventory"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
)

// StockHandler exposes the stock ledger endpoints
type StockHandler struct {
	BaseHandler
	stock *inventoryapp.StockService
}

// NewStockHandler creates a stock handler
func NewStockHandler(stock *inventoryapp.StockService) *StockHandler {
	return &StockHandler{stock: stock}
}

// RegisterRoutes mounts the inventory routes on the API group
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	{
		inv.POST("/records", middleware.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.CreateRecord)
		inv.POST("/availability", h.CheckAvailability)
		inv.POST("/restock", middleware.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.Restock)
		inv.POST("/adjust", middleware.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.Adjust)
		inv.GET("/low-stock", middleware.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.ListLowStock)
		inv.GET("/:product_id", h.GetStock)
		inv.GET("/:product_id/movements", middleware.RequireRole(auth.RoleSeller, auth.RoleAdmin), h.MovementHistory)
		inv.GET("/:product_id/ledger-check", middleware.RequireRole(auth.RoleAdmin), h.VerifyLedger)
	}
}

type createRecordRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	SellerID  *uuid.UUID `json:"seller_id"`
}

// CreateRecord opens stock tracking for a product
func (h *StockHandler) CreateRecord(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// sellers always act on their own catalog; admins may name a seller
	sellerID := middleware.GetUserID(c)
	if req.SellerID != nil && middleware.GetRole(c) == auth.RoleAdmin {
		sellerID = *req.SellerID
	}

	resp, err := h.stock.CreateRecord(c.Request.Context(), req.ProductID, sellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetStock returns the current counters for a product
func (h *StockHandler) GetStock(c *gin.Context) {
	productID, err := pathID(c, "product_id")
	if err != nil {
		h.BadRequest(c, "invalid product id")
		return
	}

	resp, err := h.stock.GetStock(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CheckAvailability reports whether a quantity can be sold
func (h *StockHandler) CheckAvailability(c *gin.Context) {
	var req inventoryapp.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.stock.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Restock adds received stock to a product
func (h *StockHandler) Restock(c *gin.Context) {
	var req inventoryapp.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	actor, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.PerformedBy = actor

	resp, err := h.stock.Restock(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Adjust sets a product's stock to a counted quantity
func (h *StockHandler) Adjust(c *gin.Context) {
	var req inventoryapp.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	actor, err := actorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.PerformedBy = actor

	resp, err := h.stock.Adjust(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MovementHistory lists the ledger entries of a product
func (h *StockHandler) MovementHistory(c *gin.Context) {
	productID, err := pathID(c, "product_id")
	if err != nil {
		h.BadRequest(c, "invalid product id")
		return
	}
	filter, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.stock.MovementHistory(c.Request.Context(), productID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// ListLowStock lists managed products at or below their threshold
func (h *StockHandler) ListLowStock(c *gin.Context) {
	filter, err := bindFilter(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.stock.ListLowStock(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Paginated(c, page.Items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// VerifyLedger replays a product's movement log against its counter
func (h *StockHandler) VerifyLedger(c *gin.Context) {
	productID, err := pathID(c, "product_id")
	if err != nil {
		h.BadRequest(c, "invalid product id")
		return
	}

	resp, err := h.stock.VerifyLedger(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
