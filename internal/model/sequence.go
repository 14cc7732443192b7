package model

import "time"

// Document types that consume sequence numbers.
const (
	DocTypeTransfer   = "TRF"
	DocTypeAdjustment = "ADJ"
	DocTypeCycleCount = "CNT"
	DocTypeOrder      = "ORD"
	DocTypeDispatch   = "DSP" // approval/ship artifact
	DocTypeReturn     = "RET"
)

// SequenceCounter holds the next value per (tenant, document type, period).
// Mutated only through the repository's atomic increment.
type SequenceCounter struct {
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	DocumentType string    `db:"document_type" json:"document_type"`
	PeriodKey    string    `db:"period_key" json:"period_key"`
	NextValue    int64     `db:"next_value" json:"next_value"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NumberingTemplate configures how a sequence value renders into a document
// number for a tenant. Approval fails with ConfigurationMissing when no active
// template exists for the document type.
type NumberingTemplate struct {
	BaseModel
	TenantID     string `db:"tenant_id" json:"tenant_id"`
	DocumentType string `db:"document_type" json:"document_type"`
	Prefix       string `db:"prefix" json:"prefix"`
	PeriodFormat string `db:"period_format" json:"period_format"` // "YYMM", "YYYY", ""
	Padding      int    `db:"padding" json:"padding"`
	Separator    string `db:"separator" json:"separator"`
	IsActive     bool   `db:"is_active" json:"is_active"`
}
