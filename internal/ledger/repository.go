package ledger

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/shopspring/decimal"
)

// LotKey identifies a lot within a (product, location). Positions are the
// same position only when every lot attribute compares equal, received date
// and unit cost included: a second receipt of the same lot number at a
// different time or cost is a distinct position.
type LotKey struct {
	LotNumber  *string
	ExpiryDate *time.Time
	ReceivedAt time.Time
	UnitCost   decimal.Decimal
}

// LotKeyOf derives the lot key a position occupies.
func LotKeyOf(pos *model.Position) LotKey {
	return LotKey{
		LotNumber:  pos.LotNumber,
		ExpiryDate: pos.ExpiryDate,
		ReceivedAt: pos.ReceivedAt,
		UnitCost:   pos.UnitCost,
	}
}

type Repository interface {
	// Positions
	GetPosition(ctx context.Context, tenantID, positionID string) (*model.Position, error)
	// FindPosition returns (nil, nil) when no position occupies the lot key;
	// the first receipt creates it.
	FindPosition(ctx context.Context, tenantID, productID, locationID string, lot LotKey) (*model.Position, error)
	GetOrCreatePosition(ctx context.Context, pos *model.Position) (*model.Position, error)
	ListPositions(ctx context.Context, filters *dto.PositionFilters) ([]model.Position, int, error)
	ListExpiring(ctx context.Context, tenantID string, before time.Time) ([]model.Position, error)

	// Locked reads. Only valid inside a transaction.
	GetPositionForUpdate(ctx context.Context, tenantID, positionID string) (*model.Position, error)
	ListAvailableForUpdate(ctx context.Context, tenantID, productID string) ([]model.Position, error)
	ListAvailableAtLocationForUpdate(ctx context.Context, tenantID, productID, locationID string) ([]model.Position, error)

	// SumAvailable totals available quantity across all lots of a product at a
	// location. Used for non-binding checks and cycle-count system quantity.
	SumAvailable(ctx context.Context, tenantID, productID, locationID string) (float64, error)

	// Core stock mutation. Fails when a resulting quantity would go negative.
	ApplyDelta(ctx context.Context, tenantID, positionID string, availableDelta, reservedDelta float64) (*model.Position, error)

	// Movements / audit
	RecordMovement(ctx context.Context, movement *model.Movement) error
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error)
	ListMovementsByReference(ctx context.Context, tenantID, referenceType, referenceID string) ([]model.Movement, error)
}
