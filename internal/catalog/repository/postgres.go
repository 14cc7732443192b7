package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetProduct(ctx context.Context, tenantID, productID string) (*model.Product, error) {
	var product model.Product
	query := `SELECT * FROM products WHERE tenant_id = $1 AND id = $2 AND is_active = true`
	err := r.DB.GetContext(ctx, &product, query, tenantID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) GetLocation(ctx context.Context, tenantID, locationID string) (*model.Location, error) {
	var location model.Location
	query := `SELECT * FROM locations WHERE tenant_id = $1 AND id = $2 AND is_active = true`
	err := r.DB.GetContext(ctx, &location, query, tenantID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("location", locationID)
		}
		return nil, err
	}
	return &location, nil
}

func (r *PGRepository) GetProducts(ctx context.Context, tenantID string, productIDs []string) (map[string]model.Product, error) {
	result := map[string]model.Product{}
	if len(productIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM products WHERE tenant_id = ? AND id IN (?)`, tenantID, productIDs)
	if err != nil {
		return nil, err
	}

	var items []model.Product
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range items {
		result[p.ID] = p
	}
	return result, nil
}

func (r *PGRepository) GetLocations(ctx context.Context, tenantID string, locationIDs []string) (map[string]model.Location, error) {
	result := map[string]model.Location{}
	if len(locationIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM locations WHERE tenant_id = ? AND id IN (?)`, tenantID, locationIDs)
	if err != nil {
		return nil, err
	}

	var items []model.Location
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, l := range items {
		result[l.ID] = l
	}
	return result, nil
}
