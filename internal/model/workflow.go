package model

import "time"

type WorkflowKind string

const (
	WorkflowTransfer   WorkflowKind = "transfer"
	WorkflowAdjustment WorkflowKind = "adjustment"
	WorkflowCycleCount WorkflowKind = "cycle_count"
)

type WorkflowStatus string

const (
	WorkflowStatusCreated  WorkflowStatus = "created"
	WorkflowStatusCounting WorkflowStatus = "counting" // cycle count only
	WorkflowStatusApproved WorkflowStatus = "approved"
	WorkflowStatusRejected WorkflowStatus = "rejected"
)

// StockWorkflow is the shared aggregate behind transfers, adjustments and
// cycle counts. The kinds differ only in how their lines translate into
// position deltas at approval.
type StockWorkflow struct {
	BaseModel
	TenantID       string         `db:"tenant_id" json:"tenant_id"`
	Kind           WorkflowKind   `db:"kind" json:"kind"`
	DocumentNumber string         `db:"document_number" json:"document_number"`
	Status         WorkflowStatus `db:"status" json:"status"`
	Notes          string         `db:"notes" json:"notes"`
	CreatedBy      string         `db:"created_by" json:"created_by"`
	ApprovedBy     *string        `db:"approved_by" json:"approved_by"`
	ApprovedAt     *time.Time     `db:"approved_at" json:"approved_at"`
	ArtifactRef    *string        `db:"artifact_ref" json:"artifact_ref"`
	Lines          []WorkflowLine `db:"-" json:"lines"`
}

func (w *StockWorkflow) Editable() bool {
	return w.Status == WorkflowStatusCreated || w.Status == WorkflowStatusCounting
}

// WorkflowLine covers all three kinds: a transfer line has source and
// destination, an adjustment line has one location and a signed Quantity, a
// cycle-count line has one location plus system/counted quantities from which
// the variance is derived.
type WorkflowLine struct {
	ID                string   `db:"id" json:"id"`
	WorkflowID        string   `db:"workflow_id" json:"workflow_id"`
	LineNo            int      `db:"line_no" json:"line_no"`
	ProductID         string   `db:"product_id" json:"product_id"`
	SourceLocationID  *string  `db:"source_location_id" json:"source_location_id"`
	DestLocationID    *string  `db:"dest_location_id" json:"dest_location_id"`
	Quantity          float64  `db:"quantity" json:"quantity"`
	SystemQuantity    *float64 `db:"system_quantity" json:"system_quantity"`
	CountedQuantity   *float64 `db:"counted_quantity" json:"counted_quantity"`
	Notes             string   `db:"notes" json:"notes"`
}
