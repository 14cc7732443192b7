package ledger

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
)

type UseCase interface {
	// Receive books quantity into a (possibly new) position and records the
	// receipt movement.
	Receive(ctx context.Context, input *dto.ReceiveStockInput) (*model.Position, error)

	GetPosition(ctx context.Context, tenantID, positionID string) (*model.Position, error)
	ListPositions(ctx context.Context, filters *dto.PositionFilters) ([]model.Position, int, error)
	ListExpiring(ctx context.Context, tenantID string, before time.Time) ([]model.Position, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error)
	ListMovementsByReference(ctx context.Context, tenantID, referenceType, referenceID string) ([]model.Movement, error)
}
