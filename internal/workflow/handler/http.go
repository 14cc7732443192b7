package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-warehouse-service/internal/auth"
	"github.com/fekuna/omnipos-warehouse-service/internal/httpapi"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/internal/workflow"
	"github.com/fekuna/omnipos-warehouse-service/internal/workflow/dto"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	useCase workflow.UseCase
	logger  logger.ZapLogger
}

func NewWorkflowHandler(useCase workflow.UseCase, log logger.ZapLogger) *WorkflowHandler {
	return &WorkflowHandler{useCase: useCase, logger: log}
}

func (h *WorkflowHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/workflows", h.Create)
	rg.GET("/workflows", h.FindAll)
	rg.GET("/workflows/:id", h.GetByID)
	rg.PUT("/workflows/:id", h.Edit)
	rg.DELETE("/workflows/:id", h.Delete)
	rg.POST("/workflows/:id/approve", h.Approve)
	rg.POST("/workflows/:id/reject", h.Reject)
	rg.POST("/workflows/:id/counts", h.RecordCounts)
	rg.POST("/workflows/:id/submit-counts", h.SubmitCounts)
}

type createWorkflowRequest struct {
	Kind  model.WorkflowKind `json:"kind" binding:"required"`
	Notes string             `json:"notes"`
	Lines []dto.LineInput    `json:"lines"`
}

func (h *WorkflowHandler) Create(c *gin.Context) {
	var req createWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	wf, err := h.useCase.Create(ctx, &dto.CreateWorkflowInput{
		TenantID: auth.GetTenantID(ctx),
		Kind:     req.Kind,
		Notes:    req.Notes,
		ActorID:  auth.GetActorID(ctx),
		Lines:    req.Lines,
	})
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, wf)
}

func (h *WorkflowHandler) GetByID(c *gin.Context) {
	ctx := c.Request.Context()
	wf, err := h.useCase.GetByID(ctx, auth.GetTenantID(ctx), c.Param("id"))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *WorkflowHandler) FindAll(c *gin.Context) {
	ctx := c.Request.Context()
	filters := &dto.WorkflowFilters{
		TenantID: auth.GetTenantID(ctx),
		Kind:     model.WorkflowKind(c.Query("kind")),
		Status:   model.WorkflowStatus(c.Query("status")),
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

type editWorkflowRequest struct {
	Notes *string         `json:"notes"`
	Lines []dto.LineInput `json:"lines"`
}

func (h *WorkflowHandler) Edit(c *gin.Context) {
	var req editWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	wf, err := h.useCase.Edit(ctx, &dto.EditWorkflowInput{
		TenantID:   auth.GetTenantID(ctx),
		WorkflowID: c.Param("id"),
		Notes:      req.Notes,
		ActorID:    auth.GetActorID(ctx),
		Lines:      req.Lines,
	})
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *WorkflowHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.useCase.Delete(ctx, auth.GetTenantID(ctx), c.Param("id")); err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WorkflowHandler) Approve(c *gin.Context) {
	ctx := c.Request.Context()
	wf, err := h.useCase.Approve(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *WorkflowHandler) Reject(c *gin.Context) {
	ctx := c.Request.Context()
	wf, err := h.useCase.Reject(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

type recordCountsRequest struct {
	Entries []dto.CountEntryInput `json:"entries" binding:"required"`
}

func (h *WorkflowHandler) RecordCounts(c *gin.Context) {
	var req recordCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	wf, err := h.useCase.RecordCounts(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx), req.Entries)
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *WorkflowHandler) SubmitCounts(c *gin.Context) {
	ctx := c.Request.Context()
	wf, err := h.useCase.SubmitCounts(ctx, auth.GetTenantID(ctx), c.Param("id"), auth.GetActorID(ctx))
	if err != nil {
		httpapi.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
