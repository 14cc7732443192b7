package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/catalog"
	"github.com/fekuna/omnipos-warehouse-service/internal/document"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/internal/sequence"
	"github.com/fekuna/omnipos-warehouse-service/internal/workflow"
	"github.com/fekuna/omnipos-warehouse-service/internal/workflow/dto"
	"github.com/fekuna/omnipos-warehouse-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type workflowUseCase struct {
	repo       workflow.Repository
	ledgerRepo ledger.Repository
	store      *ledger.Store
	catalog    catalog.Repository
	sequences  *sequence.Generator
	renderer   document.Renderer
	txm        postgres.TxManager
	logger     logger.ZapLogger
}

func NewWorkflowUseCase(
	repo workflow.Repository,
	ledgerRepo ledger.Repository,
	store *ledger.Store,
	catalogRepo catalog.Repository,
	sequences *sequence.Generator,
	renderer document.Renderer,
	txm postgres.TxManager,
	log logger.ZapLogger,
) workflow.UseCase {
	return &workflowUseCase{
		repo:       repo,
		ledgerRepo: ledgerRepo,
		store:      store,
		catalog:    catalogRepo,
		sequences:  sequences,
		renderer:   renderer,
		txm:        txm,
		logger:     log,
	}
}

func docTypeFor(kind model.WorkflowKind) string {
	switch kind {
	case model.WorkflowTransfer:
		return model.DocTypeTransfer
	case model.WorkflowAdjustment:
		return model.DocTypeAdjustment
	default:
		return model.DocTypeCycleCount
	}
}

func (uc *workflowUseCase) Create(ctx context.Context, input *dto.CreateWorkflowInput) (*model.StockWorkflow, error) {
	switch input.Kind {
	case model.WorkflowTransfer, model.WorkflowAdjustment, model.WorkflowCycleCount:
	default:
		return nil, apperrors.Validation("kind", "unknown workflow kind")
	}
	if len(input.Lines) == 0 {
		return nil, apperrors.Validation("lines", "at least one line required")
	}

	// 1. Validate lines before anything durable happens.
	lines, err := uc.validateLines(ctx, input.TenantID, input.Kind, input.Lines)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	wf := &model.StockWorkflow{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		TenantID:  input.TenantID,
		Kind:      input.Kind,
		Status:    model.WorkflowStatusCreated,
		Notes:     input.Notes,
		CreatedBy: input.ActorID,
	}
	for i := range lines {
		lines[i].WorkflowID = wf.ID
	}
	wf.Lines = lines

	// 2. Issue the instance document number and persist, atomically.
	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		number, err := uc.sequences.NextDocumentNumber(ctx, input.TenantID, docTypeFor(input.Kind), now)
		if err != nil {
			return err
		}
		wf.DocumentNumber = number
		return uc.repo.Create(ctx, wf)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("workflow created",
		zap.String("tenant_id", wf.TenantID),
		zap.String("workflow_id", wf.ID),
		zap.String("kind", string(wf.Kind)),
		zap.String("document_number", wf.DocumentNumber),
	)
	return wf, nil
}

func (uc *workflowUseCase) GetByID(ctx context.Context, tenantID, id string) (*model.StockWorkflow, error) {
	return uc.repo.GetByID(ctx, tenantID, id)
}

func (uc *workflowUseCase) FindAll(ctx context.Context, filters *dto.WorkflowFilters) ([]model.StockWorkflow, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *workflowUseCase) Edit(ctx context.Context, input *dto.EditWorkflowInput) (*model.StockWorkflow, error) {
	wf, err := uc.repo.GetByID(ctx, input.TenantID, input.WorkflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status != model.WorkflowStatusCreated {
		return nil, apperrors.InvalidState("workflow", string(wf.Status), "edit")
	}
	if len(input.Lines) == 0 {
		return nil, apperrors.Validation("lines", "at least one line required")
	}

	lines, err := uc.validateLines(ctx, input.TenantID, wf.Kind, input.Lines)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].WorkflowID = wf.ID
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.ReplaceLines(ctx, input.TenantID, wf.ID, lines); err != nil {
			return err
		}
		if input.Notes != nil {
			return uc.repo.UpdateNotes(ctx, input.TenantID, wf.ID, *input.Notes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, input.TenantID, input.WorkflowID)
}

func (uc *workflowUseCase) Delete(ctx context.Context, tenantID, id string) error {
	wf, err := uc.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if wf.Status != model.WorkflowStatusCreated {
		return apperrors.InvalidState("workflow", string(wf.Status), "delete")
	}
	return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		return uc.repo.Delete(ctx, tenantID, id)
	})
}

func (uc *workflowUseCase) Approve(ctx context.Context, tenantID, id, actorID string) (*model.StockWorkflow, error) {
	wf, err := uc.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	from := model.WorkflowStatusCreated
	if wf.Kind == model.WorkflowCycleCount {
		from = model.WorkflowStatusCounting
		for _, line := range wf.Lines {
			if line.SystemQuantity == nil {
				return nil, apperrors.Validation("lines", "counts not submitted")
			}
		}
	}
	if wf.Status != from {
		return nil, apperrors.InvalidState("workflow", string(wf.Status), "approve")
	}

	now := time.Now()
	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		// 1. Lock the row and re-read: the lines and status current at
		// approval are what gets applied, not a pre-transaction snapshot.
		wf, err = uc.repo.GetByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if wf.Status != from {
			return apperrors.InvalidState("workflow", string(wf.Status), "approve")
		}

		// 2. Apply every line effect; any failure rolls back the lot.
		for i, line := range wf.Lines {
			if err := uc.applyLine(ctx, wf, &wf.Lines[i], actorID); err != nil {
				return fmt.Errorf("line %d: %w", line.LineNo, err)
			}
		}

		// 3. Issue the approval artifact.
		artifactNumber, err := uc.sequences.NextDocumentNumber(ctx, tenantID, model.DocTypeDispatch, now)
		if err != nil {
			return err
		}
		data, err := uc.buildDocumentData(ctx, wf, artifactNumber, actorID, now)
		if err != nil {
			return err
		}
		artifactRef, err := uc.renderer.Render(ctx, data)
		if err != nil {
			return err
		}

		// 4. Flip status, guarded against a concurrent approval.
		return uc.repo.SetApproved(ctx, tenantID, id, actorID, artifactRef, from, now)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("workflow approved",
		zap.String("tenant_id", tenantID),
		zap.String("workflow_id", id),
		zap.String("kind", string(wf.Kind)),
		zap.String("approved_by", actorID),
	)
	return uc.repo.GetByID(ctx, tenantID, id)
}

func (uc *workflowUseCase) Reject(ctx context.Context, tenantID, id, actorID string) (*model.StockWorkflow, error) {
	wf, err := uc.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	from := model.WorkflowStatusCreated
	if wf.Kind == model.WorkflowCycleCount && wf.Status == model.WorkflowStatusCounting {
		from = model.WorkflowStatusCounting
	}
	if err := uc.repo.UpdateStatusFrom(ctx, tenantID, id, from, model.WorkflowStatusRejected); err != nil {
		return nil, err
	}
	uc.logger.Info("workflow rejected",
		zap.String("tenant_id", tenantID),
		zap.String("workflow_id", id),
		zap.String("rejected_by", actorID),
	)
	return uc.repo.GetByID(ctx, tenantID, id)
}

func (uc *workflowUseCase) RecordCounts(ctx context.Context, tenantID, id, actorID string, entries []dto.CountEntryInput) (*model.StockWorkflow, error) {
	wf, err := uc.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if wf.Kind != model.WorkflowCycleCount {
		return nil, apperrors.Validation("kind", "not a cycle count")
	}
	if !wf.Editable() {
		return nil, apperrors.InvalidState("workflow", string(wf.Status), "record counts")
	}
	if len(entries) == 0 {
		return nil, apperrors.Validation("entries", "at least one count entry required")
	}

	// Merge entries into the scope lines by (product, location); unknown pairs
	// extend the scope.
	type key struct{ product, location string }
	index := map[key]int{}
	for i, line := range wf.Lines {
		if line.SourceLocationID != nil {
			index[key{line.ProductID, *line.SourceLocationID}] = i
		}
	}

	lines := wf.Lines
	for _, entry := range entries {
		if entry.CountedQuantity < 0 {
			return nil, apperrors.Validation("counted_quantity", "must not be negative")
		}
		if _, err := uc.catalog.GetProduct(ctx, tenantID, entry.ProductID); err != nil {
			return nil, err
		}
		if _, err := uc.catalog.GetLocation(ctx, tenantID, entry.LocationID); err != nil {
			return nil, err
		}

		counted := entry.CountedQuantity
		if i, ok := index[key{entry.ProductID, entry.LocationID}]; ok {
			lines[i].CountedQuantity = &counted
			if entry.Notes != "" {
				lines[i].Notes = entry.Notes
			}
			continue
		}
		loc := entry.LocationID
		lines = append(lines, model.WorkflowLine{
			ID:               uuid.New().String(),
			WorkflowID:       wf.ID,
			LineNo:           len(lines) + 1,
			ProductID:        entry.ProductID,
			SourceLocationID: &loc,
			CountedQuantity:  &counted,
			Notes:            entry.Notes,
		})
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.ReplaceLines(ctx, tenantID, wf.ID, lines); err != nil {
			return err
		}
		if wf.Status == model.WorkflowStatusCreated {
			return uc.repo.UpdateStatusFrom(ctx, tenantID, wf.ID, model.WorkflowStatusCreated, model.WorkflowStatusCounting)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, tenantID, id)
}

func (uc *workflowUseCase) SubmitCounts(ctx context.Context, tenantID, id, actorID string) (*model.StockWorkflow, error) {
	wf, err := uc.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if wf.Kind != model.WorkflowCycleCount {
		return nil, apperrors.Validation("kind", "not a cycle count")
	}
	if wf.Status != model.WorkflowStatusCounting {
		return nil, apperrors.InvalidState("workflow", string(wf.Status), "submit counts")
	}

	// Variance per line = counted - system. Zero-variance lines drop out.
	lines := []model.WorkflowLine{}
	for _, line := range wf.Lines {
		if line.CountedQuantity == nil {
			return nil, apperrors.Validation("lines",
				fmt.Sprintf("line %d has no counted quantity", line.LineNo))
		}
		system, err := uc.ledgerRepo.SumAvailable(ctx, tenantID, line.ProductID, *line.SourceLocationID)
		if err != nil {
			return nil, err
		}
		variance := *line.CountedQuantity - system
		if variance == 0 {
			continue
		}
		line.SystemQuantity = &system
		line.Quantity = variance
		line.LineNo = len(lines) + 1
		lines = append(lines, line)
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		return uc.repo.ReplaceLines(ctx, tenantID, wf.ID, lines)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("cycle count submitted",
		zap.String("tenant_id", tenantID),
		zap.String("workflow_id", id),
		zap.Int("variance_lines", len(lines)),
	)
	return uc.repo.GetByID(ctx, tenantID, id)
}

func (uc *workflowUseCase) buildDocumentData(ctx context.Context, wf *model.StockWorkflow, artifactNumber, actorID string, at time.Time) (*document.Data, error) {
	productIDs := make([]string, 0, len(wf.Lines))
	locationIDs := []string{}
	for _, line := range wf.Lines {
		productIDs = append(productIDs, line.ProductID)
		if line.SourceLocationID != nil {
			locationIDs = append(locationIDs, *line.SourceLocationID)
		}
		if line.DestLocationID != nil {
			locationIDs = append(locationIDs, *line.DestLocationID)
		}
	}
	products, err := uc.catalog.GetProducts(ctx, wf.TenantID, productIDs)
	if err != nil {
		return nil, err
	}
	locations, err := uc.catalog.GetLocations(ctx, wf.TenantID, locationIDs)
	if err != nil {
		return nil, err
	}

	data := &document.Data{
		TenantID:       wf.TenantID,
		DocumentType:   docTypeFor(wf.Kind),
		DocumentNumber: artifactNumber,
		Title:          fmt.Sprintf("%s %s", wf.Kind, wf.DocumentNumber),
		IssuedAt:       at,
		IssuedBy:       actorID,
		Header: map[string]string{
			"workflow_document": wf.DocumentNumber,
			"notes":             wf.Notes,
		},
	}
	for _, line := range wf.Lines {
		dl := document.Line{
			LineNo:   line.LineNo,
			Quantity: line.Quantity,
		}
		if p, ok := products[line.ProductID]; ok {
			dl.ProductSKU = p.SKU
			dl.ProductName = p.Name
		}
		if line.SourceLocationID != nil {
			if l, ok := locations[*line.SourceLocationID]; ok {
				dl.SourceLocation = l.Code
			}
		}
		if line.DestLocationID != nil {
			if l, ok := locations[*line.DestLocationID]; ok {
				dl.DestLocation = l.Code
			}
		}
		data.Lines = append(data.Lines, dl)
	}
	return data, nil
}
