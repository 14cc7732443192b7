package sequence

import (
	"context"

	"github.com/fekuna/omnipos-warehouse-service/internal/model"
)

type Repository interface {
	// Next atomically increments and returns the counter for the key. Two
	// concurrent callers never observe the same value. Values consumed by a
	// rolled-back transaction are skipped, never reissued.
	Next(ctx context.Context, tenantID, documentType, periodKey string) (int64, error)

	GetActiveTemplate(ctx context.Context, tenantID, documentType string) (*model.NumberingTemplate, error)
}
