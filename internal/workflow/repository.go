package workflow

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/internal/workflow/dto"
)

type Repository interface {
	Create(ctx context.Context, wf *model.StockWorkflow) error
	GetByID(ctx context.Context, tenantID, id string) (*model.StockWorkflow, error)
	// GetByIDForUpdate locks the workflow row. Only valid inside a
	// transaction; mutating operations read through it so a concurrent
	// approval and edit serialize on the row.
	GetByIDForUpdate(ctx context.Context, tenantID, id string) (*model.StockWorkflow, error)
	FindAll(ctx context.Context, filters *dto.WorkflowFilters) ([]model.StockWorkflow, int, error)

	// ReplaceLines applies only while the workflow is still created;
	// a terminal instance fails with InvalidStateTransition.
	ReplaceLines(ctx context.Context, tenantID, workflowID string, lines []model.WorkflowLine) error
	UpdateNotes(ctx context.Context, tenantID, id, notes string) error

	// Guarded transitions: the update applies only when the row is still in
	// from, so two concurrent approvals cannot both win.
	UpdateStatusFrom(ctx context.Context, tenantID, id string, from, to model.WorkflowStatus) error
	SetApproved(ctx context.Context, tenantID, id, approvedBy, artifactRef string, from model.WorkflowStatus, at time.Time) error

	// Delete removes the instance only while it is still created.
	Delete(ctx context.Context, tenantID, id string) error
}
