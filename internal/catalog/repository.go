package catalog

import (
	"context"

	"github.com/fekuna/omnipos-warehouse-service/internal/model"
)

// Repository is the read-only boundary to catalog-owned entities. Lookups are
// tenant scoped; a reference to another tenant's product or location resolves
// as NotFound.
type Repository interface {
	GetProduct(ctx context.Context, tenantID, productID string) (*model.Product, error)
	GetLocation(ctx context.Context, tenantID, locationID string) (*model.Location, error)
	GetLocations(ctx context.Context, tenantID string, locationIDs []string) (map[string]model.Location, error)
	GetProducts(ctx context.Context, tenantID string, productIDs []string) (map[string]model.Product, error)
}
