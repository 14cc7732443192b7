package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/pkg/database/postgres"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Next(ctx context.Context, tenantID, documentType, periodKey string) (int64, error) {
	// Single-statement upsert keeps the increment atomic; the row lock it
	// takes serializes concurrent callers for the same key.
	query := `
        INSERT INTO sequence_counters (tenant_id, document_type, period_key, next_value, updated_at)
        VALUES ($1, $2, $3, 1, now())
        ON CONFLICT (tenant_id, document_type, period_key)
        DO UPDATE SET next_value = sequence_counters.next_value + 1, updated_at = now()
        RETURNING next_value
    `
	var value int64
	q := postgres.QuerierFromContext(ctx, r.DB)
	if err := q.GetContext(ctx, &value, query, tenantID, documentType, periodKey); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s/%s/%s: %w", tenantID, documentType, periodKey, err)
	}
	return value, nil
}

func (r *PGRepository) GetActiveTemplate(ctx context.Context, tenantID, documentType string) (*model.NumberingTemplate, error) {
	var tpl model.NumberingTemplate
	query := `
        SELECT * FROM numbering_templates
        WHERE tenant_id = $1 AND document_type = $2 AND is_active = true
        LIMIT 1
    `
	q := postgres.QuerierFromContext(ctx, r.DB)
	err := q.GetContext(ctx, &tpl, query, tenantID, documentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ConfigurationMissing(fmt.Sprintf("numbering template for %s", documentType))
		}
		return nil, err
	}
	return &tpl, nil
}
