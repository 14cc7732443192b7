package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/catalog"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ledgerUseCase struct {
	repo    ledger.Repository
	store   *ledger.Store
	catalog catalog.Repository
	txm     postgres.TxManager
	logger  logger.ZapLogger
}

func NewLedgerUseCase(repo ledger.Repository, store *ledger.Store, catalogRepo catalog.Repository, txm postgres.TxManager, log logger.ZapLogger) ledger.UseCase {
	return &ledgerUseCase{
		repo:    repo,
		store:   store,
		catalog: catalogRepo,
		txm:     txm,
		logger:  log,
	}
}

func (uc *ledgerUseCase) Receive(ctx context.Context, input *dto.ReceiveStockInput) (*model.Position, error) {
	// 1. Validate before touching the ledger.
	if input.Quantity <= 0 {
		return nil, apperrors.Validation("quantity", "must be positive")
	}
	if _, err := uc.catalog.GetProduct(ctx, input.TenantID, input.ProductID); err != nil {
		return nil, err
	}
	if _, err := uc.catalog.GetLocation(ctx, input.TenantID, input.LocationID); err != nil {
		return nil, err
	}

	now := time.Now()
	create := &model.Position{
		BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		TenantID:   input.TenantID,
		ProductID:  input.ProductID,
		LocationID: input.LocationID,
		LotNumber:  input.LotNumber,
		ExpiryDate: input.ExpiryDate,
		ReceivedAt: now,
		UnitCost:   input.UnitCost,
	}

	// 2. Book the receipt atomically with its movement.
	var pos *model.Position
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		pos, err = uc.store.Apply(ctx, input.TenantID, ledger.StockOp{
			Create:         create,
			AvailableDelta: input.Quantity,
			Movement: &ledger.MovementSpec{
				Type:          model.MovementReceipt,
				ReferenceType: input.ReferenceType,
				ReferenceID:   input.ReferenceID,
				Notes:         input.Notes,
				ActorID:       input.ActorID,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock received",
		zap.String("tenant_id", input.TenantID),
		zap.String("product_id", input.ProductID),
		zap.String("location_id", input.LocationID),
		zap.Float64("quantity", input.Quantity),
	)
	return pos, nil
}

func (uc *ledgerUseCase) GetPosition(ctx context.Context, tenantID, positionID string) (*model.Position, error) {
	return uc.repo.GetPosition(ctx, tenantID, positionID)
}

func (uc *ledgerUseCase) ListPositions(ctx context.Context, filters *dto.PositionFilters) ([]model.Position, int, error) {
	return uc.repo.ListPositions(ctx, filters)
}

func (uc *ledgerUseCase) ListExpiring(ctx context.Context, tenantID string, before time.Time) ([]model.Position, error) {
	return uc.repo.ListExpiring(ctx, tenantID, before)
}

func (uc *ledgerUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error) {
	return uc.repo.ListMovements(ctx, filters)
}

func (uc *ledgerUseCase) ListMovementsByReference(ctx context.Context, tenantID, referenceType, referenceID string) ([]model.Movement, error) {
	return uc.repo.ListMovementsByReference(ctx, tenantID, referenceType, referenceID)
}
