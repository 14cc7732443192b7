package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/fekuna/omnipos-warehouse-service/internal/workflow/dto"
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

func (r *PGRepository) Create(ctx context.Context, wf *model.StockWorkflow) error {
	query := `
        INSERT INTO stock_workflows (
            id, tenant_id, kind, document_number, status, notes,
            created_by, created_at, updated_at
        )
        VALUES (
            :id, :tenant_id, :kind, :document_number, :status, :notes,
            :created_by, :created_at, :updated_at
        )
    `
	if _, err := r.q(ctx).NamedExecContext(ctx, query, wf); err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	return r.insertLines(ctx, wf.Lines)
}

func (r *PGRepository) insertLines(ctx context.Context, lines []model.WorkflowLine) error {
	query := `
        INSERT INTO workflow_lines (
            id, workflow_id, line_no, product_id, source_location_id, dest_location_id,
            quantity, system_quantity, counted_quantity, notes
        )
        VALUES (
            :id, :workflow_id, :line_no, :product_id, :source_location_id, :dest_location_id,
            :quantity, :system_quantity, :counted_quantity, :notes
        )
    `
	for i := range lines {
		if _, err := r.q(ctx).NamedExecContext(ctx, query, &lines[i]); err != nil {
			return fmt.Errorf("failed to insert workflow line %d: %w", lines[i].LineNo, err)
		}
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, tenantID, id string) (*model.StockWorkflow, error) {
	return r.getByID(ctx, tenantID, id, false)
}

func (r *PGRepository) GetByIDForUpdate(ctx context.Context, tenantID, id string) (*model.StockWorkflow, error) {
	return r.getByID(ctx, tenantID, id, true)
}

func (r *PGRepository) getByID(ctx context.Context, tenantID, id string, forUpdate bool) (*model.StockWorkflow, error) {
	var wf model.StockWorkflow
	query := `SELECT * FROM stock_workflows WHERE tenant_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	err := r.q(ctx).GetContext(ctx, &wf, query, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("workflow", id)
		}
		return nil, err
	}

	lines := []model.WorkflowLine{}
	lineQuery := `SELECT * FROM workflow_lines WHERE workflow_id = $1 ORDER BY line_no`
	if err := r.q(ctx).SelectContext(ctx, &lines, lineQuery, id); err != nil {
		return nil, err
	}
	wf.Lines = lines
	return &wf, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.WorkflowFilters) ([]model.StockWorkflow, int, error) {
	conditions := []string{"tenant_id = :tenant_id"}
	args := map[string]interface{}{"tenant_id": f.TenantID}

	if f.Kind != "" {
		conditions = append(conditions, "kind = :kind")
		args["kind"] = f.Kind
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	items := []model.StockWorkflow{}
	query := "SELECT * FROM stock_workflows" + whereClause + " ORDER BY created_at DESC"
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
	cq, cargs, err := sqlx.Named("SELECT count(*) FROM stock_workflows"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.q(ctx).GetContext(ctx, &count, r.DB.Rebind(cq), cargs...); err != nil {
		return nil, 0, err
	}

	return items, count, nil
}

func (r *PGRepository) ReplaceLines(ctx context.Context, tenantID, workflowID string, lines []model.WorkflowLine) error {
	// Lock the row and re-check the status inside the transaction so a
	// concurrent approval cannot commit against lines we are replacing.
	var status string
	query := `SELECT status FROM stock_workflows WHERE tenant_id = $1 AND id = $2 FOR UPDATE`
	if err := r.q(ctx).GetContext(ctx, &status, query, tenantID, workflowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("workflow", workflowID)
		}
		return err
	}
	if status != string(model.WorkflowStatusCreated) {
		return apperrors.InvalidState("workflow", status, "edit")
	}
	if _, err := r.q(ctx).ExecContext(ctx, `DELETE FROM workflow_lines WHERE workflow_id = $1`, workflowID); err != nil {
		return fmt.Errorf("failed to clear workflow lines: %w", err)
	}
	return r.insertLines(ctx, lines)
}

func (r *PGRepository) UpdateNotes(ctx context.Context, tenantID, id, notes string) error {
	query := `UPDATE stock_workflows SET notes = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2`
	res, err := r.q(ctx).ExecContext(ctx, query, tenantID, id, notes)
	if err != nil {
		return err
	}
	return requireRow(res, "workflow", id)
}

func (r *PGRepository) UpdateStatusFrom(ctx context.Context, tenantID, id string, from, to model.WorkflowStatus) error {
	query := `
        UPDATE stock_workflows SET status = $3, updated_at = now()
        WHERE tenant_id = $1 AND id = $2 AND status = $4
    `
	res, err := r.q(ctx).ExecContext(ctx, query, tenantID, id, to, from)
	if err != nil {
		return err
	}
	return r.requireTransition(ctx, res, tenantID, id, string(to))
}

func (r *PGRepository) SetApproved(ctx context.Context, tenantID, id, approvedBy, artifactRef string, from model.WorkflowStatus, at time.Time) error {
	query := `
        UPDATE stock_workflows
        SET status = $3, approved_by = $4, approved_at = $5, artifact_ref = $6, updated_at = now()
        WHERE tenant_id = $1 AND id = $2 AND status = $7
    `
	res, err := r.q(ctx).ExecContext(ctx, query, tenantID, id, model.WorkflowStatusApproved, approvedBy, at, artifactRef, from)
	if err != nil {
		return err
	}
	return r.requireTransition(ctx, res, tenantID, id, "approve")
}

// requireTransition distinguishes a missing row from a lost status race.
func (r *PGRepository) requireTransition(ctx context.Context, res sql.Result, tenantID, id, operation string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var current string
	query := `SELECT status FROM stock_workflows WHERE tenant_id = $1 AND id = $2`
	if err := r.q(ctx).GetContext(ctx, &current, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("workflow", id)
		}
		return err
	}
	return apperrors.InvalidState("workflow", current, operation)
}

func (r *PGRepository) Delete(ctx context.Context, tenantID, id string) error {
	// Terminal instances are immutable: the status guard makes the delete a
	// no-op when a concurrent approval committed first. Lines go via cascade.
	query := `DELETE FROM stock_workflows WHERE tenant_id = $1 AND id = $2 AND status = $3`
	res, err := r.q(ctx).ExecContext(ctx, query, tenantID, id, model.WorkflowStatusCreated)
	if err != nil {
		return err
	}
	return r.requireTransition(ctx, res, tenantID, id, "delete")
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound(entity, id)
	}
	return nil
}
