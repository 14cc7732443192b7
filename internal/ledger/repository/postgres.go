package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger/dto"
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

func (r *PGRepository) q(ctx context.Context) postgres.Querier {
	return postgres.QuerierFromContext(ctx, r.DB)
}

func (r *PGRepository) GetPosition(ctx context.Context, tenantID, positionID string) (*model.Position, error) {
	var pos model.Position
	query := `SELECT * FROM positions WHERE tenant_id = $1 AND id = $2`
	err := r.q(ctx).GetContext(ctx, &pos, query, tenantID, positionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("position", positionID)
		}
		return nil, err
	}
	return &pos, nil
}

func (r *PGRepository) FindPosition(ctx context.Context, tenantID, productID, locationID string, lot ledger.LotKey) (*model.Position, error) {
	query := `SELECT * FROM positions WHERE tenant_id = $1 AND product_id = $2 AND location_id = $3`
	args := []interface{}{tenantID, productID, locationID}

	if lot.LotNumber != nil {
		args = append(args, *lot.LotNumber)
		query += fmt.Sprintf(` AND lot_number = $%d`, len(args))
	} else {
		query += ` AND lot_number IS NULL`
	}
	if lot.ExpiryDate != nil {
		args = append(args, *lot.ExpiryDate)
		query += fmt.Sprintf(` AND expiry_date = $%d`, len(args))
	} else {
		query += ` AND expiry_date IS NULL`
	}
	args = append(args, lot.ReceivedAt)
	query += fmt.Sprintf(` AND received_at = $%d`, len(args))
	args = append(args, lot.UnitCost)
	query += fmt.Sprintf(` AND unit_cost = $%d`, len(args))

	var pos model.Position
	err := r.q(ctx).GetContext(ctx, &pos, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // caller creates on first receipt
		}
		return nil, err
	}
	return &pos, nil
}

func (r *PGRepository) GetOrCreatePosition(ctx context.Context, pos *model.Position) (*model.Position, error) {
	lot := ledger.LotKeyOf(pos)

	existing, err := r.FindPosition(ctx, pos.TenantID, pos.ProductID, pos.LocationID, lot)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	query := `
        INSERT INTO positions (
            id, tenant_id, product_id, location_id, lot_number, expiry_date,
            received_at, unit_cost, available_quantity, reserved_quantity,
            created_at, updated_at
        )
        VALUES (
            :id, :tenant_id, :product_id, :location_id, :lot_number, :expiry_date,
            :received_at, :unit_cost, :available_quantity, :reserved_quantity,
            :created_at, :updated_at
        )
        ON CONFLICT (tenant_id, product_id, location_id, lot_fingerprint) DO NOTHING
    `
	if _, err := r.q(ctx).NamedExecContext(ctx, query, pos); err != nil {
		return nil, fmt.Errorf("failed to create position: %w", err)
	}

	// Re-read so a concurrent creator's row wins over ours.
	created, err := r.FindPosition(ctx, pos.TenantID, pos.ProductID, pos.LocationID, lot)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("position vanished after upsert for product %s", pos.ProductID)
	}
	return created, nil
}

func (r *PGRepository) ListPositions(ctx context.Context, f *dto.PositionFilters) ([]model.Position, int, error) {
	conditions := []string{"tenant_id = :tenant_id"}
	args := map[string]interface{}{"tenant_id": f.TenantID}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.LocationID != "" {
		conditions = append(conditions, "location_id = :location_id")
		args["location_id"] = f.LocationID
	}
	if f.WithStockOnly {
		conditions = append(conditions, "available_quantity + reserved_quantity > 0")
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	items := []model.Position{}
	query := "SELECT * FROM positions" + whereClause + " ORDER BY product_id, location_id, received_at"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	q, qargs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.q(ctx).SelectContext(ctx, &items, r.DB.Rebind(q), qargs...); err != nil {
		return nil, 0, err
	}

	var count int
	cq, cargs, err := sqlx.Named("SELECT count(*) FROM positions"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.q(ctx).GetContext(ctx, &count, r.DB.Rebind(cq), cargs...); err != nil {
		return nil, 0, err
	}

	return items, count, nil
}

func (r *PGRepository) ListExpiring(ctx context.Context, tenantID string, before time.Time) ([]model.Position, error) {
	items := []model.Position{}
	query := `
        SELECT * FROM positions
        WHERE tenant_id = $1 AND expiry_date IS NOT NULL AND expiry_date <= $2
          AND available_quantity + reserved_quantity > 0
        ORDER BY expiry_date, id
    `
	err := r.q(ctx).SelectContext(ctx, &items, query, tenantID, before)
	return items, err
}

func (r *PGRepository) GetPositionForUpdate(ctx context.Context, tenantID, positionID string) (*model.Position, error) {
	var pos model.Position
	query := `SELECT * FROM positions WHERE tenant_id = $1 AND id = $2 FOR UPDATE`
	err := r.q(ctx).GetContext(ctx, &pos, query, tenantID, positionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("position", positionID)
		}
		return nil, fmt.Errorf("failed to lock position: %w", err)
	}
	return &pos, nil
}

func (r *PGRepository) ListAvailableForUpdate(ctx context.Context, tenantID, productID string) ([]model.Position, error) {
	items := []model.Position{}
	query := `
        SELECT * FROM positions
        WHERE tenant_id = $1 AND product_id = $2 AND available_quantity > 0
        ORDER BY id
        FOR UPDATE
    `
	err := r.q(ctx).SelectContext(ctx, &items, query, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock candidate positions: %w", err)
	}
	return items, nil
}

func (r *PGRepository) ListAvailableAtLocationForUpdate(ctx context.Context, tenantID, productID, locationID string) ([]model.Position, error) {
	items := []model.Position{}
	query := `
        SELECT * FROM positions
        WHERE tenant_id = $1 AND product_id = $2 AND location_id = $3 AND available_quantity > 0
        ORDER BY received_at, id
        FOR UPDATE
    `
	err := r.q(ctx).SelectContext(ctx, &items, query, tenantID, productID, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock positions at location: %w", err)
	}
	return items, nil
}

func (r *PGRepository) SumAvailable(ctx context.Context, tenantID, productID, locationID string) (float64, error) {
	var total float64
	query := `
        SELECT COALESCE(SUM(available_quantity), 0) FROM positions
        WHERE tenant_id = $1 AND product_id = $2 AND location_id = $3
    `
	err := r.q(ctx).GetContext(ctx, &total, query, tenantID, productID, locationID)
	return total, err
}

func (r *PGRepository) ApplyDelta(ctx context.Context, tenantID, positionID string, availableDelta, reservedDelta float64) (*model.Position, error) {
	var pos model.Position
	query := `
        UPDATE positions
        SET available_quantity = available_quantity + $3,
            reserved_quantity  = reserved_quantity + $4,
            updated_at         = now()
        WHERE tenant_id = $1 AND id = $2
          AND available_quantity + $3 >= 0
          AND reserved_quantity + $4 >= 0
        RETURNING *
    `
	err := r.q(ctx).GetContext(ctx, &pos, query, tenantID, positionID, availableDelta, reservedDelta)
	if err == nil {
		return &pos, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to apply delta: %w", err)
	}

	// No row updated: either the position is missing or a quantity would go
	// negative. Re-read to tell the two apart.
	current, getErr := r.GetPosition(ctx, tenantID, positionID)
	if getErr != nil {
		return nil, getErr
	}
	if availableDelta < 0 && current.AvailableQuantity+availableDelta < 0 {
		return nil, apperrors.InsufficientQuantity(current.ProductID, current.LocationID, -availableDelta, current.AvailableQuantity)
	}
	return nil, apperrors.InsufficientQuantity(current.ProductID, current.LocationID, -reservedDelta, current.ReservedQuantity)
}

func (r *PGRepository) RecordMovement(ctx context.Context, m *model.Movement) error {
	query := `
        INSERT INTO movements (
            id, tenant_id, position_id, product_id, location_id,
            movement_type, quantity_change, quantity_before, quantity_after,
            reference_type, reference_id, reference_number, notes, created_by, created_at
        )
        VALUES (
            :id, :tenant_id, :position_id, :product_id, :location_id,
            :movement_type, :quantity_change, :quantity_before, :quantity_after,
            :reference_type, :reference_id, :reference_number, :notes, :created_by, :created_at
        )
    `
	if _, err := r.q(ctx).NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("failed to record movement: %w", err)
	}
	return nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.Movement, int, error) {
	conditions := []string{"tenant_id = :tenant_id"}
	args := map[string]interface{}{"tenant_id": f.TenantID}

	if f.PositionID != "" {
		conditions = append(conditions, "position_id = :position_id")
		args["position_id"] = f.PositionID
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.LocationID != "" {
		conditions = append(conditions, "location_id = :location_id")
		args["location_id"] = f.LocationID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}
	if f.ReferenceType != "" {
		conditions = append(conditions, "reference_type = :reference_type")
		args["reference_type"] = f.ReferenceType
	}
	if f.ReferenceID != "" {
		conditions = append(conditions, "reference_id = :reference_id")
		args["reference_id"] = f.ReferenceID
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	items := []model.Movement{}
	query := "SELECT * FROM movements" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	q, qargs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.q(ctx).SelectContext(ctx, &items, r.DB.Rebind(q), qargs...); err != nil {
		return nil, 0, err
	}

	var count int
	cq, cargs, err := sqlx.Named("SELECT count(*) FROM movements"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.q(ctx).GetContext(ctx, &count, r.DB.Rebind(cq), cargs...); err != nil {
		return nil, 0, err
	}

	return items, count, nil
}

func (r *PGRepository) ListMovementsByReference(ctx context.Context, tenantID, referenceType, referenceID string) ([]model.Movement, error) {
	items := []model.Movement{}
	query := `
        SELECT * FROM movements
        WHERE tenant_id = $1 AND reference_type = $2 AND reference_id = $3
        ORDER BY created_at, id
    `
	err := r.q(ctx).SelectContext(ctx, &items, query, tenantID, referenceType, referenceID)
	return items, err
}
