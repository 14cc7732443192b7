// Package memory holds an in-memory ledger repository. It backs unit tests
// for everything that sits on top of the quantity store; the postgres
// repository is the production implementation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/google/uuid"
)

type LedgerRepository struct {
	mu        sync.Mutex
	positions map[string]*model.Position
	movements []model.Movement
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{positions: map[string]*model.Position{}}
}

// Seed inserts a position directly, bypassing the receive flow.
func (r *LedgerRepository) Seed(pos model.Position) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pos.ID == "" {
		pos.ID = uuid.New().String()
	}
	r.positions[pos.ID] = &pos
	return pos.ID
}

func (r *LedgerRepository) Movements() []model.Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Movement, len(r.movements))
	copy(out, r.movements)
	return out
}

// Snapshot captures the full repository state so a transaction-manager fake
// can roll mutations back.
type Snapshot struct {
	positions map[string]*model.Position
	movements []model.Movement
}

func (r *LedgerRepository) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{positions: make(map[string]*model.Position, len(r.positions))}
	for id, pos := range r.positions {
		clone := *pos
		s.positions[id] = &clone
	}
	s.movements = make([]model.Movement, len(r.movements))
	copy(s.movements, r.movements)
	return s
}

func (r *LedgerRepository) Restore(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = make(map[string]*model.Position, len(s.positions))
	for id, pos := range s.positions {
		clone := *pos
		r.positions[id] = &clone
	}
	r.movements = make([]model.Movement, len(s.movements))
	copy(r.movements, s.movements)
}

func (r *LedgerRepository) GetPosition(_ context.Context, tenantID, positionID string) (*model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[positionID]
	if !ok || pos.TenantID != tenantID {
		return nil, apperrors.NotFound("position", positionID)
	}
	clone := *pos
	return &clone, nil
}

func (r *LedgerRepository) FindPosition(_ context.Context, tenantID, productID, locationID string, lot ledger.LotKey) (*model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pos := range r.positions {
		if pos.TenantID == tenantID && pos.ProductID == productID && pos.LocationID == locationID && lotMatches(pos, lot) {
			clone := *pos
			return &clone, nil
		}
	}
	return nil, nil // first receipt creates the position
}

func lotMatches(pos *model.Position, lot ledger.LotKey) bool {
	if !strPtrEqual(pos.LotNumber, lot.LotNumber) {
		return false
	}
	if !timePtrEqual(pos.ExpiryDate, lot.ExpiryDate) {
		return false
	}
	return pos.ReceivedAt.Equal(lot.ReceivedAt) && pos.UnitCost.Equal(lot.UnitCost)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *LedgerRepository) GetOrCreatePosition(ctx context.Context, pos *model.Position) (*model.Position, error) {
	existing, err := r.FindPosition(ctx, pos.TenantID, pos.ProductID, pos.LocationID, ledger.LotKeyOf(pos))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *pos
	if clone.ID == "" {
		clone.ID = uuid.New().String()
	}
	r.positions[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *LedgerRepository) ListPositions(_ context.Context, filters *dto.PositionFilters) ([]model.Position, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Position
	for _, pos := range r.positions {
		if pos.TenantID != filters.TenantID {
			continue
		}
		if filters.ProductID != "" && pos.ProductID != filters.ProductID {
			continue
		}
		if filters.LocationID != "" && pos.LocationID != filters.LocationID {
			continue
		}
		if filters.WithStockOnly && pos.TotalQuantity() <= 0 {
			continue
		}
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *LedgerRepository) ListExpiring(_ context.Context, tenantID string, before time.Time) ([]model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Position
	for _, pos := range r.positions {
		if pos.TenantID != tenantID || pos.ExpiryDate == nil || pos.TotalQuantity() <= 0 {
			continue
		}
		if pos.ExpiryDate.Before(before) {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return out, nil
}

func (r *LedgerRepository) GetPositionForUpdate(ctx context.Context, tenantID, positionID string) (*model.Position, error) {
	return r.GetPosition(ctx, tenantID, positionID)
}

func (r *LedgerRepository) ListAvailableForUpdate(_ context.Context, tenantID, productID string) ([]model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Position
	for _, pos := range r.positions {
		if pos.TenantID == tenantID && pos.ProductID == productID && pos.AvailableQuantity > 0 {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LedgerRepository) ListAvailableAtLocationForUpdate(_ context.Context, tenantID, productID, locationID string) ([]model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Position
	for _, pos := range r.positions {
		if pos.TenantID == tenantID && pos.ProductID == productID && pos.LocationID == locationID && pos.AvailableQuantity > 0 {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *LedgerRepository) SumAvailable(_ context.Context, tenantID, productID, locationID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0.0
	for _, pos := range r.positions {
		if pos.TenantID == tenantID && pos.ProductID == productID && pos.LocationID == locationID {
			total += pos.AvailableQuantity
		}
	}
	return total, nil
}

func (r *LedgerRepository) ApplyDelta(_ context.Context, tenantID, positionID string, availableDelta, reservedDelta float64) (*model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[positionID]
	if !ok || pos.TenantID != tenantID {
		return nil, apperrors.NotFound("position", positionID)
	}
	if pos.AvailableQuantity+availableDelta < 0 {
		return nil, apperrors.InsufficientQuantity(pos.ProductID, pos.LocationID, -availableDelta, pos.AvailableQuantity)
	}
	if pos.ReservedQuantity+reservedDelta < 0 {
		return nil, apperrors.InsufficientQuantity(pos.ProductID, pos.LocationID, -reservedDelta, pos.ReservedQuantity)
	}
	pos.AvailableQuantity += availableDelta
	pos.ReservedQuantity += reservedDelta
	pos.UpdatedAt = time.Now()
	clone := *pos
	return &clone, nil
}

func (r *LedgerRepository) RecordMovement(_ context.Context, movement *model.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *LedgerRepository) ListMovements(_ context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Movement
	for _, m := range r.movements {
		if m.TenantID != filters.TenantID {
			continue
		}
		if filters.PositionID != "" && m.PositionID != filters.PositionID {
			continue
		}
		if filters.ProductID != "" && m.ProductID != filters.ProductID {
			continue
		}
		if filters.MovementType != "" && m.MovementType != filters.MovementType {
			continue
		}
		out = append(out, m)
	}
	return out, len(out), nil
}

func (r *LedgerRepository) ListMovementsByReference(_ context.Context, tenantID, referenceType, referenceID string) ([]model.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Movement
	for _, m := range r.movements {
		if m.TenantID != tenantID {
			continue
		}
		if m.ReferenceType == nil || m.ReferenceID == nil {
			continue
		}
		if *m.ReferenceType == referenceType && *m.ReferenceID == referenceID {
			out = append(out, m)
		}
	}
	return out, nil
}
