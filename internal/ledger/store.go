package ledger

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/google/uuid"
)

// StockOp is one position mutation, optionally paired with the movement that
// documents it. Reservations (available <-> reserved) carry no movement; every
// change to the position's total quantity must.
type StockOp struct {
	PositionID     string          // target position; ignored when Create is set
	Create         *model.Position // receipt into a possibly-new position
	AvailableDelta float64
	ReservedDelta  float64
	Movement       *MovementSpec
}

type MovementSpec struct {
	Type            string
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string
	Notes           string
	ActorID         string
}

// Store applies StockOps against the quantity store and movement ledger. It
// never opens a transaction itself; callers wrap Apply in the ledger
// transaction so a multi-op mutation commits or rolls back whole.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) Apply(ctx context.Context, tenantID string, op StockOp) (*model.Position, error) {
	var pos *model.Position
	var err error

	// 1. Resolve and lock the target position.
	if op.Create != nil {
		pos, err = s.repo.GetOrCreatePosition(ctx, op.Create)
	} else {
		pos, err = s.repo.GetPositionForUpdate(ctx, tenantID, op.PositionID)
	}
	if err != nil {
		return nil, err
	}

	quantityBefore := pos.TotalQuantity()

	// 2. Apply the delta. The repository guards non-negativity.
	updated, err := s.repo.ApplyDelta(ctx, tenantID, pos.ID, op.AvailableDelta, op.ReservedDelta)
	if err != nil {
		return nil, err
	}

	// 3. Record the paired movement.
	if op.Movement != nil {
		m := &model.Movement{
			ID:             uuid.New().String(),
			TenantID:       tenantID,
			PositionID:     updated.ID,
			ProductID:      updated.ProductID,
			LocationID:     updated.LocationID,
			MovementType:   op.Movement.Type,
			QuantityChange: op.AvailableDelta + op.ReservedDelta,
			QuantityBefore: quantityBefore,
			QuantityAfter:  updated.TotalQuantity(),
			Notes:          op.Movement.Notes,
			CreatedAt:      time.Now(),
		}
		if op.Movement.ReferenceType != "" {
			m.ReferenceType = &op.Movement.ReferenceType
		}
		if op.Movement.ReferenceID != "" {
			m.ReferenceID = &op.Movement.ReferenceID
		}
		if op.Movement.ReferenceNumber != "" {
			m.ReferenceNumber = &op.Movement.ReferenceNumber
		}
		if op.Movement.ActorID != "" {
			actor := op.Movement.ActorID
			m.CreatedBy = &actor
		}
		if err := s.repo.RecordMovement(ctx, m); err != nil {
			return nil, err
		}
	}

	return updated, nil
}
