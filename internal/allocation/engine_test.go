package allocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/allocation"
	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/repository/memory"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantID = "tenant-1"

func seedLot(repo *memory.LedgerRepository, id, productID string, available float64, receivedAt time.Time, expiry *time.Time) string {
	return repo.Seed(model.Position{
		BaseModel:         model.BaseModel{ID: id},
		TenantID:          tenantID,
		ProductID:         productID,
		LocationID:        "loc-1",
		ExpiryDate:        expiry,
		ReceivedAt:        receivedAt,
		AvailableQuantity: available,
	})
}

func TestAllocate_FIFO_OldestReceiptFirst(t *testing.T) {
	repo := memory.NewLedgerRepository()
	engine := allocation.NewEngine(repo)

	old := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	oldID := seedLot(repo, "pos-old", "prod-1", 5, old, nil)
	recentID := seedLot(repo, "pos-recent", "prod-1", 10, recent, nil)

	allocs, err := engine.Allocate(context.Background(), tenantID, "prod-1", 8, allocation.FIFO)
	require.NoError(t, err)
	require.Len(t, allocs, 2)

	assert.Equal(t, oldID, allocs[0].PositionID)
	assert.Equal(t, 5.0, allocs[0].AllocatedQuantity)
	assert.Equal(t, recentID, allocs[1].PositionID)
	assert.Equal(t, 3.0, allocs[1].AllocatedQuantity)

	oldPos, err := repo.GetPosition(context.Background(), tenantID, oldID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, oldPos.AvailableQuantity)
	assert.Equal(t, 5.0, oldPos.ReservedQuantity)

	recentPos, err := repo.GetPosition(context.Background(), tenantID, recentID)
	require.NoError(t, err)
	assert.Equal(t, 7.0, recentPos.AvailableQuantity)
	assert.Equal(t, 3.0, recentPos.ReservedQuantity)
}

func TestAllocate_FEFO_EarliestExpiryFirst(t *testing.T) {
	repo := memory.NewLedgerRepository()
	engine := allocation.NewEngine(repo)

	received := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	soon := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	soonID := seedLot(repo, "pos-soon", "prod-1", 4, received, &soon)
	laterID := seedLot(repo, "pos-later", "prod-1", 10, received, &later)
	noExpiryID := seedLot(repo, "pos-none", "prod-1", 10, received, nil)

	allocs, err := engine.Allocate(context.Background(), tenantID, "prod-1", 16, allocation.FEFO)
	require.NoError(t, err)
	require.Len(t, allocs, 3)

	// Expiring lots drain first, no-expiry lots last.
	assert.Equal(t, soonID, allocs[0].PositionID)
	assert.Equal(t, laterID, allocs[1].PositionID)
	assert.Equal(t, noExpiryID, allocs[2].PositionID)
	assert.Equal(t, 2.0, allocs[2].AllocatedQuantity)
}

func TestAllocate_TieBreaksOnPositionID(t *testing.T) {
	repo := memory.NewLedgerRepository()
	engine := allocation.NewEngine(repo)

	received := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	seedLot(repo, "pos-b", "prod-1", 5, received, nil)
	seedLot(repo, "pos-a", "prod-1", 5, received, nil)

	allocs, err := engine.Allocate(context.Background(), tenantID, "prod-1", 6, allocation.FIFO)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "pos-a", allocs[0].PositionID)
	assert.Equal(t, "pos-b", allocs[1].PositionID)
}

func TestAllocate_ShortfallTouchesNothing(t *testing.T) {
	repo := memory.NewLedgerRepository()
	engine := allocation.NewEngine(repo)

	received := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lot1 := seedLot(repo, "pos-1", "prod-1", 5, received, nil)
	lot2 := seedLot(repo, "pos-2", "prod-1", 3, received.Add(24*time.Hour), nil)

	_, err := engine.Allocate(context.Background(), tenantID, "prod-1", 10, allocation.FIFO)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	// All-or-nothing: neither lot was reserved.
	for _, id := range []string{lot1, lot2} {
		pos, err := repo.GetPosition(context.Background(), tenantID, id)
		require.NoError(t, err)
		assert.Equal(t, 0.0, pos.ReservedQuantity)
	}
}

func TestAllocate_RejectsNonPositiveQuantity(t *testing.T) {
	repo := memory.NewLedgerRepository()
	engine := allocation.NewEngine(repo)

	_, err := engine.Allocate(context.Background(), tenantID, "prod-1", 0, allocation.FIFO)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAllocate_WritesNoMovements(t *testing.T) {
	repo := memory.NewLedgerRepository()
	engine := allocation.NewEngine(repo)

	seedLot(repo, "pos-1", "prod-1", 5, time.Now(), nil)
	_, err := engine.Allocate(context.Background(), tenantID, "prod-1", 5, allocation.FIFO)
	require.NoError(t, err)
	assert.Empty(t, repo.Movements())
}

func TestRelease_ReturnsReservedToAvailable(t *testing.T) {
	repo := memory.NewLedgerRepository()
	engine := allocation.NewEngine(repo)

	id := repo.Seed(model.Position{
		BaseModel:         model.BaseModel{ID: "pos-1"},
		TenantID:          tenantID,
		ProductID:         "prod-1",
		LocationID:        "loc-1",
		AvailableQuantity: 2,
		ReservedQuantity:  3,
	})

	require.NoError(t, engine.Release(context.Background(), tenantID, id, 3))

	pos, err := repo.GetPosition(context.Background(), tenantID, id)
	require.NoError(t, err)
	assert.Equal(t, 5.0, pos.AvailableQuantity)
	assert.Equal(t, 0.0, pos.ReservedQuantity)
	assert.Empty(t, repo.Movements())
}
