package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-warehouse-service/internal/auth"
	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment"
	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/httpapi"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

type FulfillmentHandler struct {
	useCase fulfillment.UseCase
	logger  logger.ZapLogger
}

func NewFulfillmentHandler(useCase fulfillment.UseCase, log logger.ZapLogger) *FulfillmentHandler {
	return &FulfillmentHandler{useCase: useCase, logger: log}
}

func (h *FulfillmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders", h.Create)
	rg.GET("/orders", h.FindAll)
	rg.GET("/orders/:id", h.GetByID)
	rg.POST("/orders/:id/allocate", h.Allocate)
	rg.POST("/orders/:id/pick", h.Pick)
	rg.POST("/orders/:id/pack", h.Pack)
	rg.POST("/orders/:id/ship", h.Ship)
	rg.POST("/orders/:id/deliver", h.Deliver)
	rg.POST("/orders/:id/deliver-partial", h.DeliverPartial)
	rg.POST("/orders/:id/cancel", h.Cancel)
}

type createOrderRequest struct {
	CustomerRef string               `json:"customer_ref"`
	Notes       string               `json:"notes"`
	Lines       []dto.OrderLineInput `json:"lines" binding:"required"`
}

func (h *FulfillmentHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	order, err := h.useCase.CreateOrder(ctx, &dto.CreateOrderInput{
		TenantID:    auth.GetTenantID(ctx),
		CustomerRef: req.CustomerRef,
		Notes:       req.Notes,
		ActorID:     auth.GetActorID(ctx),
		Lines:       req.Lines,
	})
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *FulfillmentHandler) GetByID(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.useCase.GetByID(ctx, auth.GetTenantID(ctx), c.Param("id"))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *FulfillmentHandler) FindAll(c *gin.Context) {
	ctx := c.Request.Context()
	filters := &dto.OrderFilters{
		TenantID: auth.GetTenantID(ctx),
		State:    model.OrderState(c.Query("state")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 50),
	}
	items, total, err := h.useCase.FindAll(ctx, filters)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *FulfillmentHandler) Allocate(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.useCase.Allocate(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type pickRequest struct {
	Picks []dto.PickEntry `json:"picks" binding:"required"`
}

func (h *FulfillmentHandler) Pick(c *gin.Context) {
	var req pickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	order, err := h.useCase.Pick(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx), req.Picks)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type packRequest struct {
	Packages []dto.PackageInput `json:"packages" binding:"required"`
}

func (h *FulfillmentHandler) Pack(c *gin.Context) {
	var req packRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	order, err := h.useCase.Pack(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx), req.Packages)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *FulfillmentHandler) Ship(c *gin.Context) {
	var req dto.ShipInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	order, err := h.useCase.Ship(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx), &req)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *FulfillmentHandler) Deliver(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.useCase.Deliver(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type deliverPartialRequest struct {
	Lines []dto.PartialDeliveryLine `json:"lines" binding:"required"`
}

func (h *FulfillmentHandler) DeliverPartial(c *gin.Context) {
	var req deliverPartialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	order, err := h.useCase.DeliverPartial(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx), req.Lines)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *FulfillmentHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.useCase.Cancel(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
