package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/dto"
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

func (r *PGRepository) CreateOrder(ctx context.Context, order *model.FulfillmentOrder) error {
	query := `
        INSERT INTO fulfillment_orders (
            id, tenant_id, order_number, state, customer_ref, notes,
            created_by, created_at, updated_at
        )
        VALUES (
            :id, :tenant_id, :order_number, :state, :customer_ref, :notes,
            :created_by, :created_at, :updated_at
        )
    `
	if _, err := r.q(ctx).NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	lineQuery := `
        INSERT INTO order_lines (
            id, order_id, line_no, product_id, ordered_quantity, unit_price,
            picked_quantity, packed_quantity
        )
        VALUES (
            :id, :order_id, :line_no, :product_id, :ordered_quantity, :unit_price,
            :picked_quantity, :packed_quantity
        )
    `
	for i := range order.Lines {
		if _, err := r.q(ctx).NamedExecContext(ctx, lineQuery, &order.Lines[i]); err != nil {
			return fmt.Errorf("failed to insert order line %d: %w", order.Lines[i].LineNo, err)
		}
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, tenantID, id string) (*model.FulfillmentOrder, error) {
	var order model.FulfillmentOrder
	query := `SELECT * FROM fulfillment_orders WHERE tenant_id = $1 AND id = $2`
	err := r.q(ctx).GetContext(ctx, &order, query, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, err
	}

	lines := []model.OrderLine{}
	lineQuery := `SELECT * FROM order_lines WHERE order_id = $1 ORDER BY line_no`
	if err := r.q(ctx).SelectContext(ctx, &lines, lineQuery, id); err != nil {
		return nil, err
	}

	allocs := []model.Allocation{}
	allocQuery := `
        SELECT a.* FROM allocations a
        JOIN order_lines ol ON ol.id = a.order_line_id
        WHERE ol.order_id = $1
        ORDER BY a.created_at, a.id
    `
	if err := r.q(ctx).SelectContext(ctx, &allocs, allocQuery, id); err != nil {
		return nil, err
	}
	for i := range lines {
		for _, a := range allocs {
			if a.OrderLineID == lines[i].ID {
				lines[i].Allocations = append(lines[i].Allocations, a)
			}
		}
	}
	order.Lines = lines
	return &order, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.FulfillmentOrder, int, error) {
	conditions := []string{"tenant_id = :tenant_id"}
	args := map[string]interface{}{"tenant_id": f.TenantID}

	if f.State != "" {
		conditions = append(conditions, "state = :state")
		args["state"] = f.State
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	items := []model.FulfillmentOrder{}
	query := "SELECT * FROM fulfillment_orders" + whereClause + " ORDER BY created_at DESC"
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
	cq, cargs, err := sqlx.Named("SELECT count(*) FROM fulfillment_orders"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.q(ctx).GetContext(ctx, &count, r.DB.Rebind(cq), cargs...); err != nil {
		return nil, 0, err
	}

	return items, count, nil
}

func (r *PGRepository) UpdateStateFrom(ctx context.Context, tenantID, id string, from, to model.OrderState) error {
	query := `
        UPDATE fulfillment_orders SET state = $3, updated_at = now()
        WHERE tenant_id = $1 AND id = $2 AND state = $4
    `
	res, err := r.q(ctx).ExecContext(ctx, query, tenantID, id, to, from)
	if err != nil {
		return err
	}
	return r.requireTransition(ctx, res, tenantID, id, string(to))
}

func (r *PGRepository) requireTransition(ctx context.Context, res sql.Result, tenantID, id, operation string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var current string
	query := `SELECT state FROM fulfillment_orders WHERE tenant_id = $1 AND id = $2`
	if err := r.q(ctx).GetContext(ctx, &current, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("order", id)
		}
		return err
	}
	return apperrors.InvalidState("order", current, operation)
}

func (r *PGRepository) SaveAllocations(ctx context.Context, allocations []model.Allocation) error {
	query := `
        INSERT INTO allocations (
            id, order_line_id, position_id, allocated_quantity, picked_quantity, created_at
        )
        VALUES (
            :id, :order_line_id, :position_id, :allocated_quantity, :picked_quantity, :created_at
        )
    `
	for i := range allocations {
		if _, err := r.q(ctx).NamedExecContext(ctx, query, &allocations[i]); err != nil {
			return fmt.Errorf("failed to save allocation: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) DeleteAllocationsForOrder(ctx context.Context, orderID string) error {
	query := `
        DELETE FROM allocations
        WHERE order_line_id IN (SELECT id FROM order_lines WHERE order_id = $1)
    `
	_, err := r.q(ctx).ExecContext(ctx, query, orderID)
	return err
}

func (r *PGRepository) UpdateAllocationPicked(ctx context.Context, allocationID string, pickedQuantity float64) error {
	query := `UPDATE allocations SET picked_quantity = $2 WHERE id = $1`
	res, err := r.q(ctx).ExecContext(ctx, query, allocationID, pickedQuantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound("allocation", allocationID)
	}
	return nil
}

func (r *PGRepository) UpdateLineQuantities(ctx context.Context, lineID string, pickedQuantity, packedQuantity float64) error {
	query := `UPDATE order_lines SET picked_quantity = $2, packed_quantity = $3 WHERE id = $1`
	res, err := r.q(ctx).ExecContext(ctx, query, lineID, pickedQuantity, packedQuantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound("order line", lineID)
	}
	return nil
}

func (r *PGRepository) AddLinePacked(ctx context.Context, lineID string, delta float64) error {
	query := `
        UPDATE order_lines SET packed_quantity = packed_quantity + $2
        WHERE id = $1 AND packed_quantity + $2 <= picked_quantity
    `
	res, err := r.q(ctx).ExecContext(ctx, query, lineID, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var line model.OrderLine
	readQuery := `SELECT * FROM order_lines WHERE id = $1`
	if err := r.q(ctx).GetContext(ctx, &line, readQuery, lineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("order line", lineID)
		}
		return err
	}
	return apperrors.QuantityMismatch(
		fmt.Sprintf("order line %d", line.LineNo),
		line.PickedQuantity, line.PackedQuantity+delta)
}

func (r *PGRepository) CreatePackage(ctx context.Context, pkg *model.Package) error {
	query := `
        INSERT INTO packages (id, order_id, package_no, created_at)
        VALUES (:id, :order_id, :package_no, :created_at)
    `
	if _, err := r.q(ctx).NamedExecContext(ctx, query, pkg); err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}

	lineQuery := `
        INSERT INTO package_lines (id, package_id, order_line_id, quantity)
        VALUES (:id, :package_id, :order_line_id, :quantity)
    `
	for i := range pkg.Lines {
		if _, err := r.q(ctx).NamedExecContext(ctx, lineQuery, &pkg.Lines[i]); err != nil {
			return fmt.Errorf("failed to create package line: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) CountPackages(ctx context.Context, orderID string) (int, error) {
	var count int
	query := `SELECT count(*) FROM packages WHERE order_id = $1`
	err := r.q(ctx).GetContext(ctx, &count, query, orderID)
	return count, err
}

func (r *PGRepository) SetShipped(ctx context.Context, tenantID, id, transporterID, trackingCode, artifactRef string, at time.Time) error {
	query := `
        UPDATE fulfillment_orders
        SET state = $3, transporter_id = $4, tracking_code = $5, artifact_ref = $6,
            shipped_at = $7, updated_at = now()
        WHERE tenant_id = $1 AND id = $2 AND state = $8
    `
	res, err := r.q(ctx).ExecContext(ctx, query, tenantID, id,
		model.OrderStateShipped, transporterID, trackingCode, artifactRef, at, model.OrderStatePacked)
	if err != nil {
		return err
	}
	return r.requireTransition(ctx, res, tenantID, id, "ship")
}

func (r *PGRepository) SetDelivered(ctx context.Context, tenantID, id string, state model.OrderState, at time.Time) error {
	query := `
        UPDATE fulfillment_orders
        SET state = $3, delivered_at = $4, updated_at = now()
        WHERE tenant_id = $1 AND id = $2 AND state = $5
    `
	res, err := r.q(ctx).ExecContext(ctx, query, tenantID, id, state, at, model.OrderStateShipped)
	if err != nil {
		return err
	}
	return r.requireTransition(ctx, res, tenantID, id, string(state))
}

func (r *PGRepository) CreateReturn(ctx context.Context, ret *model.ReturnOrder) error {
	query := `
        INSERT INTO return_orders (id, tenant_id, order_id, document_number, created_by, created_at, updated_at)
        VALUES (:id, :tenant_id, :order_id, :document_number, :created_by, :created_at, :updated_at)
    `
	if _, err := r.q(ctx).NamedExecContext(ctx, query, ret); err != nil {
		return fmt.Errorf("failed to create return order: %w", err)
	}

	lineQuery := `
        INSERT INTO return_lines (id, return_id, order_line_id, product_id, rejected_quantity, reason)
        VALUES (:id, :return_id, :order_line_id, :product_id, :rejected_quantity, :reason)
    `
	for i := range ret.Lines {
		if _, err := r.q(ctx).NamedExecContext(ctx, lineQuery, &ret.Lines[i]); err != nil {
			return fmt.Errorf("failed to create return line: %w", err)
		}
	}
	return nil
}
