package fulfillment

import (
	"context"

	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
)

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.FulfillmentOrder, error)
	GetByID(ctx context.Context, tenantID, id string) (*model.FulfillmentOrder, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.FulfillmentOrder, int, error)

	// Stage transitions, strictly sequential.
	Allocate(ctx context.Context, tenantID, orderID, actorID string) (*model.FulfillmentOrder, error)
	Pick(ctx context.Context, tenantID, orderID, actorID string, picks []dto.PickEntry) (*model.FulfillmentOrder, error)
	Pack(ctx context.Context, tenantID, orderID, actorID string, packages []dto.PackageInput) (*model.FulfillmentOrder, error)
	Ship(ctx context.Context, tenantID, orderID, actorID string, input *dto.ShipInput) (*model.FulfillmentOrder, error)
	Deliver(ctx context.Context, tenantID, orderID, actorID string) (*model.FulfillmentOrder, error)
	DeliverPartial(ctx context.Context, tenantID, orderID, actorID string, lines []dto.PartialDeliveryLine) (*model.FulfillmentOrder, error)

	// Cancel releases any reservations and parks the order; allowed before
	// picking starts.
	Cancel(ctx context.Context, tenantID, orderID, actorID string) (*model.FulfillmentOrder, error)
}
