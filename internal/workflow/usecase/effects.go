package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/internal/workflow/dto"
	"github.com/google/uuid"
)

// validateLines runs the kind-specific, non-binding validation and converts
// inputs into workflow lines. Catalog lookups double as the cross-tenant
// reference guard.
func (uc *workflowUseCase) validateLines(ctx context.Context, tenantID string, kind model.WorkflowKind, inputs []dto.LineInput) ([]model.WorkflowLine, error) {
	lines := make([]model.WorkflowLine, 0, len(inputs))
	for i, in := range inputs {
		if in.ProductID == "" {
			return nil, apperrors.Validation("product_id", "required")
		}
		if _, err := uc.catalog.GetProduct(ctx, tenantID, in.ProductID); err != nil {
			return nil, err
		}

		line := model.WorkflowLine{
			ID:               uuid.New().String(),
			LineNo:           i + 1,
			ProductID:        in.ProductID,
			SourceLocationID: in.SourceLocationID,
			DestLocationID:   in.DestLocationID,
			Quantity:         in.Quantity,
			SystemQuantity:   in.SystemQuantity,
			CountedQuantity:  in.CountedQuantity,
			Notes:            in.Notes,
		}

		switch kind {
		case model.WorkflowTransfer:
			if err := uc.validateTransferLine(ctx, tenantID, &line); err != nil {
				return nil, err
			}
		case model.WorkflowAdjustment:
			if err := uc.validateAdjustmentLine(ctx, tenantID, &line); err != nil {
				return nil, err
			}
		case model.WorkflowCycleCount:
			if err := uc.validateCountLine(ctx, tenantID, &line); err != nil {
				return nil, err
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (uc *workflowUseCase) validateTransferLine(ctx context.Context, tenantID string, line *model.WorkflowLine) error {
	if line.SourceLocationID == nil {
		return apperrors.Validation("source_location_id", "required")
	}
	if line.DestLocationID == nil {
		return apperrors.Validation("dest_location_id", "required")
	}
	if *line.SourceLocationID == *line.DestLocationID {
		return apperrors.Validation("dest_location_id", "must differ from source")
	}
	if line.Quantity <= 0 {
		return apperrors.Validation("quantity", "must be positive")
	}
	if _, err := uc.catalog.GetLocation(ctx, tenantID, *line.SourceLocationID); err != nil {
		return err
	}
	if _, err := uc.catalog.GetLocation(ctx, tenantID, *line.DestLocationID); err != nil {
		return err
	}

	// Non-binding availability check; the binding one runs at approval.
	available, err := uc.ledgerRepo.SumAvailable(ctx, tenantID, line.ProductID, *line.SourceLocationID)
	if err != nil {
		return err
	}
	if available < line.Quantity {
		return apperrors.InsufficientQuantity(line.ProductID, *line.SourceLocationID, line.Quantity, available)
	}
	return nil
}

func (uc *workflowUseCase) validateAdjustmentLine(ctx context.Context, tenantID string, line *model.WorkflowLine) error {
	if line.SourceLocationID == nil {
		return apperrors.Validation("source_location_id", "required")
	}
	if _, err := uc.catalog.GetLocation(ctx, tenantID, *line.SourceLocationID); err != nil {
		return err
	}

	// A system/counted pair yields the delta; otherwise the delta is given.
	if line.SystemQuantity != nil && line.CountedQuantity != nil {
		line.Quantity = *line.CountedQuantity - *line.SystemQuantity
	}
	if line.Quantity == 0 {
		return apperrors.Validation("quantity", "delta must be non-zero")
	}
	return nil
}

func (uc *workflowUseCase) validateCountLine(ctx context.Context, tenantID string, line *model.WorkflowLine) error {
	if line.SourceLocationID == nil {
		return apperrors.Validation("source_location_id", "required")
	}
	if _, err := uc.catalog.GetLocation(ctx, tenantID, *line.SourceLocationID); err != nil {
		return err
	}
	if line.CountedQuantity != nil && *line.CountedQuantity < 0 {
		return apperrors.Validation("counted_quantity", "must not be negative")
	}
	line.Quantity = 0
	return nil
}

// applyLine translates one approved line into quantity-store ops. Runs inside
// the approval transaction.
func (uc *workflowUseCase) applyLine(ctx context.Context, wf *model.StockWorkflow, line *model.WorkflowLine, actorID string) error {
	switch wf.Kind {
	case model.WorkflowTransfer:
		return uc.applyTransferLine(ctx, wf, line, actorID)
	default:
		// Adjustment, and cycle count variance lines delegate to the same
		// delta application.
		return uc.applyAdjustmentLine(ctx, wf, line, actorID)
	}
}

func (uc *workflowUseCase) applyTransferLine(ctx context.Context, wf *model.StockWorkflow, line *model.WorkflowLine, actorID string) error {
	source := *line.SourceLocationID
	dest := *line.DestLocationID

	positions, err := uc.ledgerRepo.ListAvailableAtLocationForUpdate(ctx, wf.TenantID, line.ProductID, source)
	if err != nil {
		return err
	}

	// Binding check against the locked rows.
	available := 0.0
	for _, pos := range positions {
		available += pos.AvailableQuantity
	}
	if available < line.Quantity {
		return apperrors.InsufficientQuantity(line.ProductID, source, line.Quantity, available)
	}

	movement := func(movementType string) *ledger.MovementSpec {
		return &ledger.MovementSpec{
			Type:            movementType,
			ReferenceType:   "stock_workflow",
			ReferenceID:     wf.ID,
			ReferenceNumber: wf.DocumentNumber,
			Notes:           line.Notes,
			ActorID:         actorID,
		}
	}

	// Drain source lots oldest-first, landing each chunk in the matching lot
	// at the destination so traceability survives the move.
	remaining := line.Quantity
	for _, pos := range positions {
		if remaining <= 0 {
			break
		}
		take := pos.AvailableQuantity
		if take > remaining {
			take = remaining
		}

		if _, err := uc.store.Apply(ctx, wf.TenantID, ledger.StockOp{
			PositionID:     pos.ID,
			AvailableDelta: -take,
			Movement:       movement(model.MovementTransferOut),
		}); err != nil {
			return err
		}

		now := time.Now()
		destPos := pos
		destPos.ID = uuid.New().String()
		destPos.LocationID = dest
		destPos.AvailableQuantity = 0
		destPos.ReservedQuantity = 0
		destPos.CreatedAt = now
		destPos.UpdatedAt = now
		if _, err := uc.store.Apply(ctx, wf.TenantID, ledger.StockOp{
			Create:         &destPos,
			AvailableDelta: take,
			Movement:       movement(model.MovementTransferIn),
		}); err != nil {
			return err
		}
		remaining -= take
	}
	return nil
}

func (uc *workflowUseCase) applyAdjustmentLine(ctx context.Context, wf *model.StockWorkflow, line *model.WorkflowLine, actorID string) error {
	location := *line.SourceLocationID
	movement := &ledger.MovementSpec{
		Type:            model.MovementAdjustment,
		ReferenceType:   "stock_workflow",
		ReferenceID:     wf.ID,
		ReferenceNumber: wf.DocumentNumber,
		Notes:           line.Notes,
		ActorID:         actorID,
	}

	if line.Quantity > 0 {
		// Gains land on the location's un-lotted position.
		now := time.Now()
		pos := &model.Position{
			BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			TenantID:   wf.TenantID,
			ProductID:  line.ProductID,
			LocationID: location,
			ReceivedAt: now,
		}
		_, err := uc.store.Apply(ctx, wf.TenantID, ledger.StockOp{
			Create:         pos,
			AvailableDelta: line.Quantity,
			Movement:       movement,
		})
		return err
	}

	// Losses drain lots oldest-first under lock; shortfall fails the whole
	// approval.
	positions, err := uc.ledgerRepo.ListAvailableAtLocationForUpdate(ctx, wf.TenantID, line.ProductID, location)
	if err != nil {
		return err
	}
	available := 0.0
	for _, pos := range positions {
		available += pos.AvailableQuantity
	}
	needed := -line.Quantity
	if available < needed {
		return apperrors.InsufficientQuantity(line.ProductID, location, needed, available)
	}

	remaining := needed
	for _, pos := range positions {
		if remaining <= 0 {
			break
		}
		take := pos.AvailableQuantity
		if take > remaining {
			take = remaining
		}
		if _, err := uc.store.Apply(ctx, wf.TenantID, ledger.StockOp{
			PositionID:     pos.ID,
			AvailableDelta: -take,
			Movement:       movement,
		}); err != nil {
			return err
		}
		remaining -= take
	}
	return nil
}
