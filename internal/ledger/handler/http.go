package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/auth"
	"github.com/fekuna/omnipos-warehouse-service/internal/httpapi"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type LedgerHandler struct {
	useCase ledger.UseCase
	logger  logger.ZapLogger
}

func NewLedgerHandler(useCase ledger.UseCase, log logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{useCase: useCase, logger: log}
}

func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/stock/receipts", h.Receive)
	rg.GET("/stock/positions", h.ListPositions)
	rg.GET("/stock/positions/expiring", h.ListExpiring)
	rg.GET("/stock/positions/:id", h.GetPosition)
	rg.GET("/stock/movements", h.ListMovements)
}

type receiveRequest struct {
	ProductID     string          `json:"product_id" binding:"required"`
	LocationID    string          `json:"location_id" binding:"required"`
	LotNumber     *string         `json:"lot_number"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Quantity      float64         `json:"quantity" binding:"required"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	Notes         string          `json:"notes"`
}

func (h *LedgerHandler) Receive(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	position, err := h.useCase.Receive(ctx, &dto.ReceiveStockInput{
		TenantID:      auth.GetTenantID(ctx),
		ProductID:     req.ProductID,
		LocationID:    req.LocationID,
		LotNumber:     req.LotNumber,
		ExpiryDate:    req.ExpiryDate,
		UnitCost:      req.UnitCost,
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Notes:         req.Notes,
		ActorID:       auth.GetActorID(ctx),
	})
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, position)
}

func (h *LedgerHandler) GetPosition(c *gin.Context) {
	ctx := c.Request.Context()
	position, err := h.useCase.GetPosition(ctx, auth.GetTenantID(ctx), c.Param("id"))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, position)
}

func (h *LedgerHandler) ListPositions(c *gin.Context) {
	ctx := c.Request.Context()
	filters := &dto.PositionFilters{
		TenantID:      auth.GetTenantID(ctx),
		ProductID:     c.Query("product_id"),
		LocationID:    c.Query("location_id"),
		WithStockOnly: c.Query("with_stock") == "true",
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 50),
	}
	items, total, err := h.useCase.ListPositions(ctx, filters)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *LedgerHandler) ListExpiring(c *gin.Context) {
	ctx := c.Request.Context()
	before, err := time.Parse(time.RFC3339, c.Query("before"))
	if err != nil {
		httpapi.RespondError(c, h.logger, apperrors.Validation("before", "must be an RFC3339 timestamp"))
		return
	}
	items, err := h.useCase.ListExpiring(ctx, auth.GetTenantID(ctx), before)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LedgerHandler) ListMovements(c *gin.Context) {
	ctx := c.Request.Context()
	filters := &dto.MovementFilters{
		TenantID:      auth.GetTenantID(ctx),
		PositionID:    c.Query("position_id"),
		ProductID:     c.Query("product_id"),
		LocationID:    c.Query("location_id"),
		MovementType:  c.Query("movement_type"),
		ReferenceType: c.Query("reference_type"),
		ReferenceID:   c.Query("reference_id"),
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 50),
	}
	if v := c.Query("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.StartDate = &t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.EndDate = &t
		}
	}
	items, total, err := h.useCase.ListMovements(ctx, filters)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
