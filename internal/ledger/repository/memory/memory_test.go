package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPosition_MissReturnsNilWithoutError(t *testing.T) {
	repo := NewLedgerRepository()

	pos, err := repo.FindPosition(context.Background(), "tenant-1", "prod-1", "loc-1", ledger.LotKey{
		ReceivedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestGetOrCreatePosition_IdempotentForIdenticalLotAttributes(t *testing.T) {
	repo := NewLedgerRepository()
	ctx := context.Background()

	lot := "LOT-1"
	receivedAt := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	template := model.Position{
		TenantID:   "tenant-1",
		ProductID:  "prod-1",
		LocationID: "loc-1",
		LotNumber:  &lot,
		ReceivedAt: receivedAt,
		UnitCost:   decimal.NewFromFloat(2.5),
	}

	first, err := repo.GetOrCreatePosition(ctx, &template)
	require.NoError(t, err)
	again := template
	second, err := repo.GetOrCreatePosition(ctx, &again)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreatePosition_ReceivedAtDistinguishesPositions(t *testing.T) {
	repo := NewLedgerRepository()
	ctx := context.Background()

	lot := "LOT-1"
	base := model.Position{
		TenantID:   "tenant-1",
		ProductID:  "prod-1",
		LocationID: "loc-1",
		LotNumber:  &lot,
		ReceivedAt: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
		UnitCost:   decimal.NewFromFloat(2.5),
	}

	first, err := repo.GetOrCreatePosition(ctx, &base)
	require.NoError(t, err)

	// Same lot number and cost, later delivery.
	later := base
	later.ID = ""
	later.ReceivedAt = base.ReceivedAt.Add(time.Hour)
	second, err := repo.GetOrCreatePosition(ctx, &later)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// Same arrival, different cost.
	repriced := base
	repriced.ID = ""
	repriced.UnitCost = decimal.NewFromFloat(3.1)
	third, err := repo.GetOrCreatePosition(ctx, &repriced)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.NotEqual(t, second.ID, third.ID)
}
