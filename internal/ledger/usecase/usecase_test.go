package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/repository/memory"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/usecase"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantID = "tenant-1"

type nopTxManager struct{}

func (nopTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memCatalogRepo struct {
	products  map[string]model.Product
	locations map[string]model.Location
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{
		products:  map[string]model.Product{},
		locations: map[string]model.Location{},
	}
}

func (r *memCatalogRepo) GetProduct(_ context.Context, tid, id string) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok || p.TenantID != tid {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (r *memCatalogRepo) GetLocation(_ context.Context, tid, id string) (*model.Location, error) {
	l, ok := r.locations[id]
	if !ok || l.TenantID != tid {
		return nil, apperrors.NotFound("location", id)
	}
	return &l, nil
}

func (r *memCatalogRepo) GetProducts(_ context.Context, tid string, ids []string) (map[string]model.Product, error) {
	return nil, nil
}

func (r *memCatalogRepo) GetLocations(_ context.Context, tid string, ids []string) (map[string]model.Location, error) {
	return nil, nil
}

func newUseCase(repo *memory.LedgerRepository, catalogRepo *memCatalogRepo) ledger.UseCase {
	return usecase.NewLedgerUseCase(repo, ledger.NewStore(repo), catalogRepo, nopTxManager{}, logger.NewNop())
}

func TestReceive_BooksStockWithMovement(t *testing.T) {
	repo := memory.NewLedgerRepository()
	catalogRepo := newMemCatalogRepo()
	catalogRepo.products["prod-1"] = model.Product{BaseModel: model.BaseModel{ID: "prod-1"}, TenantID: tenantID}
	catalogRepo.locations["loc-1"] = model.Location{BaseModel: model.BaseModel{ID: "loc-1"}, TenantID: tenantID}
	uc := newUseCase(repo, catalogRepo)

	lot := "LOT-9"
	pos, err := uc.Receive(context.Background(), &dto.ReceiveStockInput{
		TenantID:      tenantID,
		ProductID:     "prod-1",
		LocationID:    "loc-1",
		LotNumber:     &lot,
		Quantity:      25,
		ReferenceType: "purchase_order",
		ReferenceID:   "po-7",
		ActorID:       "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, pos.AvailableQuantity)
	require.NotNil(t, pos.LotNumber)
	assert.Equal(t, "LOT-9", *pos.LotNumber)

	movements := repo.Movements()
	require.Len(t, movements, 1)
	assert.Equal(t, model.MovementReceipt, movements[0].MovementType)
	assert.Equal(t, 25.0, movements[0].QuantityChange)
}

func TestReceive_RepeatedReceiptsKeepSeparatePositions(t *testing.T) {
	repo := memory.NewLedgerRepository()
	catalogRepo := newMemCatalogRepo()
	catalogRepo.products["prod-1"] = model.Product{BaseModel: model.BaseModel{ID: "prod-1"}, TenantID: tenantID}
	catalogRepo.locations["loc-1"] = model.Location{BaseModel: model.BaseModel{ID: "loc-1"}, TenantID: tenantID}
	uc := newUseCase(repo, catalogRepo)

	// Two deliveries of the same lot number arrive at different times. The
	// received timestamp is part of the position identity, so they must not
	// collapse into one position: merging them would rewrite the first
	// delivery's place in the consumption order.
	lot := "LOT-1"
	input := &dto.ReceiveStockInput{
		TenantID:   tenantID,
		ProductID:  "prod-1",
		LocationID: "loc-1",
		LotNumber:  &lot,
		Quantity:   10,
	}
	first, err := uc.Receive(context.Background(), input)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	input.Quantity = 5
	second, err := uc.Receive(context.Background(), input)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 10.0, first.AvailableQuantity)
	assert.Equal(t, 5.0, second.AvailableQuantity)
	assert.True(t, first.ReceivedAt.Before(second.ReceivedAt))

	got, err := repo.GetPosition(context.Background(), tenantID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.AvailableQuantity)
	assert.True(t, got.ReceivedAt.Equal(first.ReceivedAt))

	total, err := repo.SumAvailable(context.Background(), tenantID, "prod-1", "loc-1")
	require.NoError(t, err)
	assert.Equal(t, 15.0, total)
	assert.Len(t, repo.Movements(), 2)
}

func TestReceive_RejectsUnknownReferences(t *testing.T) {
	repo := memory.NewLedgerRepository()
	catalogRepo := newMemCatalogRepo()
	catalogRepo.products["prod-1"] = model.Product{BaseModel: model.BaseModel{ID: "prod-1"}, TenantID: tenantID}
	uc := newUseCase(repo, catalogRepo)

	_, err := uc.Receive(context.Background(), &dto.ReceiveStockInput{
		TenantID:   tenantID,
		ProductID:  "prod-1",
		LocationID: "loc-unknown",
		Quantity:   5,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = uc.Receive(context.Background(), &dto.ReceiveStockInput{
		TenantID:   tenantID,
		ProductID:  "prod-1",
		LocationID: "loc-1",
		Quantity:   -5,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestListExpiring_FiltersOnHorizon(t *testing.T) {
	repo := memory.NewLedgerRepository()
	catalogRepo := newMemCatalogRepo()
	uc := newUseCase(repo, catalogRepo)

	soon := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	later := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.Seed(model.Position{
		BaseModel: model.BaseModel{ID: "pos-soon"}, TenantID: tenantID,
		ProductID: "prod-1", LocationID: "loc-1", ExpiryDate: &soon, AvailableQuantity: 5,
	})
	repo.Seed(model.Position{
		BaseModel: model.BaseModel{ID: "pos-later"}, TenantID: tenantID,
		ProductID: "prod-1", LocationID: "loc-1", ExpiryDate: &later, AvailableQuantity: 5,
	})

	horizon := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	expiring, err := uc.ListExpiring(context.Background(), tenantID, horizon)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "pos-soon", expiring[0].ID)
}
