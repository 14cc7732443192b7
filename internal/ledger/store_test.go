package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/repository/memory"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantID = "tenant-1"

func TestStoreApply_ReceiptCreatesPositionAndMovement(t *testing.T) {
	repo := memory.NewLedgerRepository()
	store := ledger.NewStore(repo)

	lot := "LOT-A"
	pos, err := store.Apply(context.Background(), tenantID, ledger.StockOp{
		Create: &model.Position{
			TenantID:   tenantID,
			ProductID:  "prod-1",
			LocationID: "loc-1",
			LotNumber:  &lot,
			ReceivedAt: time.Now(),
		},
		AvailableDelta: 10,
		Movement: &ledger.MovementSpec{
			Type:          model.MovementReceipt,
			ReferenceType: "purchase_order",
			ReferenceID:   "po-1",
			ActorID:       "user-1",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, pos.AvailableQuantity)

	movements := repo.Movements()
	require.Len(t, movements, 1)
	m := movements[0]
	assert.Equal(t, model.MovementReceipt, m.MovementType)
	assert.Equal(t, 10.0, m.QuantityChange)
	assert.Equal(t, 0.0, m.QuantityBefore)
	assert.Equal(t, 10.0, m.QuantityAfter)
	require.NotNil(t, m.ReferenceType)
	assert.Equal(t, "purchase_order", *m.ReferenceType)
	require.NotNil(t, m.CreatedBy)
	assert.Equal(t, "user-1", *m.CreatedBy)
}

func TestStoreApply_PickRecordsBeforeAfterTotals(t *testing.T) {
	repo := memory.NewLedgerRepository()
	store := ledger.NewStore(repo)

	id := repo.Seed(model.Position{
		BaseModel:         model.BaseModel{ID: "pos-1"},
		TenantID:          tenantID,
		ProductID:         "prod-1",
		LocationID:        "loc-1",
		AvailableQuantity: 4,
		ReservedQuantity:  6,
	})

	_, err := store.Apply(context.Background(), tenantID, ledger.StockOp{
		PositionID:    id,
		ReservedDelta: -6,
		Movement: &ledger.MovementSpec{
			Type:        model.MovementPick,
			ReferenceID: "ord-1",
		},
	})
	require.NoError(t, err)

	movements := repo.Movements()
	require.Len(t, movements, 1)
	assert.Equal(t, 10.0, movements[0].QuantityBefore)
	assert.Equal(t, 4.0, movements[0].QuantityAfter)
	assert.Equal(t, -6.0, movements[0].QuantityChange)
}

func TestStoreApply_ReservationWritesNoMovement(t *testing.T) {
	repo := memory.NewLedgerRepository()
	store := ledger.NewStore(repo)

	id := repo.Seed(model.Position{
		BaseModel:         model.BaseModel{ID: "pos-1"},
		TenantID:          tenantID,
		ProductID:         "prod-1",
		LocationID:        "loc-1",
		AvailableQuantity: 8,
	})

	pos, err := store.Apply(context.Background(), tenantID, ledger.StockOp{
		PositionID:     id,
		AvailableDelta: -3,
		ReservedDelta:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, pos.AvailableQuantity)
	assert.Equal(t, 3.0, pos.ReservedQuantity)
	assert.Empty(t, repo.Movements())
}

func TestStoreApply_NegativeResultRejected(t *testing.T) {
	repo := memory.NewLedgerRepository()
	store := ledger.NewStore(repo)

	id := repo.Seed(model.Position{
		BaseModel:         model.BaseModel{ID: "pos-1"},
		TenantID:          tenantID,
		ProductID:         "prod-1",
		LocationID:        "loc-1",
		AvailableQuantity: 2,
	})

	_, err := store.Apply(context.Background(), tenantID, ledger.StockOp{
		PositionID:     id,
		AvailableDelta: -5,
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientQuantity)
	assert.Empty(t, repo.Movements())
}
