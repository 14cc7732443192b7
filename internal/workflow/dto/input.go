package dto

import "github.com/fekuna/omnipos-warehouse-service/internal/model"

type LineInput struct {
	ProductID        string   `json:"product_id"`
	SourceLocationID *string  `json:"source_location_id"`
	DestLocationID   *string  `json:"dest_location_id"`
	Quantity         float64  `json:"quantity"`
	SystemQuantity   *float64 `json:"system_quantity"`
	CountedQuantity  *float64 `json:"counted_quantity"`
	Notes            string   `json:"notes"`
}

type CreateWorkflowInput struct {
	TenantID string
	Kind     model.WorkflowKind
	Notes    string
	ActorID  string
	Lines    []LineInput
}

type EditWorkflowInput struct {
	TenantID   string
	WorkflowID string
	Notes      *string
	ActorID    string
	Lines      []LineInput
}

// CountEntryInput records one physical count during a cycle count.
type CountEntryInput struct {
	ProductID       string  `json:"product_id"`
	LocationID      string  `json:"location_id"`
	CountedQuantity float64 `json:"counted_quantity"`
	Notes           string  `json:"notes"`
}

type WorkflowFilters struct {
	TenantID string
	Kind     model.WorkflowKind
	Status   model.WorkflowStatus
	Page     int
	PageSize int
}
