package workflow

import (
	"context"

	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/internal/workflow/dto"
)

type UseCase interface {
	Create(ctx context.Context, input *dto.CreateWorkflowInput) (*model.StockWorkflow, error)
	GetByID(ctx context.Context, tenantID, id string) (*model.StockWorkflow, error)
	FindAll(ctx context.Context, filters *dto.WorkflowFilters) ([]model.StockWorkflow, int, error)
	Edit(ctx context.Context, input *dto.EditWorkflowInput) (*model.StockWorkflow, error)
	Delete(ctx context.Context, tenantID, id string) error

	Approve(ctx context.Context, tenantID, id, actorID string) (*model.StockWorkflow, error)
	Reject(ctx context.Context, tenantID, id, actorID string) (*model.StockWorkflow, error)

	// Cycle count only
	RecordCounts(ctx context.Context, tenantID, id, actorID string, entries []dto.CountEntryInput) (*model.StockWorkflow, error)
	SubmitCounts(ctx context.Context, tenantID, id, actorID string) (*model.StockWorkflow, error)
}
