package fulfillment

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
)

type Repository interface {
	CreateOrder(ctx context.Context, order *model.FulfillmentOrder) error
	GetByID(ctx context.Context, tenantID, id string) (*model.FulfillmentOrder, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.FulfillmentOrder, int, error)

	// Guarded state transition; fails with InvalidStateTransition when the
	// order is no longer in from.
	UpdateStateFrom(ctx context.Context, tenantID, id string, from, to model.OrderState) error

	SaveAllocations(ctx context.Context, allocations []model.Allocation) error
	DeleteAllocationsForOrder(ctx context.Context, orderID string) error
	UpdateAllocationPicked(ctx context.Context, allocationID string, pickedQuantity float64) error
	UpdateLineQuantities(ctx context.Context, lineID string, pickedQuantity, packedQuantity float64) error
	// AddLinePacked increments packed_quantity by delta. The increment is
	// guarded in SQL so the packed total can never exceed the picked total,
	// whatever interleaving got us here.
	AddLinePacked(ctx context.Context, lineID string, delta float64) error

	CreatePackage(ctx context.Context, pkg *model.Package) error
	CountPackages(ctx context.Context, orderID string) (int, error)

	SetShipped(ctx context.Context, tenantID, id, transporterID, trackingCode, artifactRef string, at time.Time) error
	SetDelivered(ctx context.Context, tenantID, id string, state model.OrderState, at time.Time) error

	CreateReturn(ctx context.Context, ret *model.ReturnOrder) error
}
