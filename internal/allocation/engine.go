package allocation

import (
	"context"
	"sort"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/google/uuid"
)

type Strategy string

const (
	FIFO Strategy = "FIFO" // oldest receipt first
	FEFO Strategy = "FEFO" // earliest expiry first, no-expiry lots last
)

// Engine reserves stock for order lines. Reserving moves quantity from
// available to reserved on the chosen positions without writing a movement;
// the later pick does that.
type Engine struct {
	repo ledger.Repository
}

func NewEngine(repo ledger.Repository) *Engine {
	return &Engine{repo: repo}
}

// Allocate reserves requested quantity across the product's positions. It is
// all-or-nothing: when total availability falls short it returns
// InsufficientStock and touches no position. Must run inside the ledger
// transaction; the candidate scan locks every row it may touch.
func (e *Engine) Allocate(ctx context.Context, tenantID, productID string, requested float64, strategy Strategy) ([]model.Allocation, error) {
	if requested <= 0 {
		return nil, apperrors.Validation("quantity", "must be positive")
	}

	candidates, err := e.repo.ListAvailableForUpdate(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	sortCandidates(candidates, strategy)

	// Plan first so a shortfall leaves nothing reserved.
	type take struct {
		positionID string
		quantity   float64
	}
	var plan []take
	remaining := requested
	available := 0.0
	for _, c := range candidates {
		available += c.AvailableQuantity
		if remaining <= 0 {
			continue
		}
		qty := c.AvailableQuantity
		if qty > remaining {
			qty = remaining
		}
		plan = append(plan, take{positionID: c.ID, quantity: qty})
		remaining -= qty
	}
	if remaining > 0 {
		return nil, apperrors.InsufficientStock(productID, requested, available)
	}

	now := time.Now()
	allocations := make([]model.Allocation, 0, len(plan))
	for _, t := range plan {
		if _, err := e.repo.ApplyDelta(ctx, tenantID, t.positionID, -t.quantity, t.quantity); err != nil {
			return nil, err
		}
		allocations = append(allocations, model.Allocation{
			ID:                uuid.New().String(),
			PositionID:        t.positionID,
			AllocatedQuantity: t.quantity,
			CreatedAt:         now,
		})
	}
	return allocations, nil
}

// Release returns reserved quantity to available. No movement is written;
// the stock never left the position.
func (e *Engine) Release(ctx context.Context, tenantID, positionID string, quantity float64) error {
	if quantity <= 0 {
		return apperrors.Validation("quantity", "must be positive")
	}
	_, err := e.repo.ApplyDelta(ctx, tenantID, positionID, quantity, -quantity)
	return err
}

func sortCandidates(positions []model.Position, strategy Strategy) {
	switch strategy {
	case FEFO:
		sort.Slice(positions, func(i, j int) bool {
			ei, ej := positions[i].ExpiryDate, positions[j].ExpiryDate
			switch {
			case ei == nil && ej == nil:
				return positions[i].ID < positions[j].ID
			case ei == nil:
				return false
			case ej == nil:
				return true
			case !ei.Equal(*ej):
				return ei.Before(*ej)
			default:
				return positions[i].ID < positions[j].ID
			}
		})
	default: // FIFO
		sort.Slice(positions, func(i, j int) bool {
			if !positions[i].ReceivedAt.Equal(positions[j].ReceivedAt) {
				return positions[i].ReceivedAt.Before(positions[j].ReceivedAt)
			}
			return positions[i].ID < positions[j].ID
		})
	}
}
