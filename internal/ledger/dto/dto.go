package dto

import "time"

type PositionFilters struct {
	TenantID      string
	ProductID     string
	LocationID    string
	WithStockOnly bool // only positions with available+reserved > 0
	Page          int
	PageSize      int
}

type MovementFilters struct {
	TenantID      string
	PositionID    string
	ProductID     string
	LocationID    string
	MovementType  string
	ReferenceType string
	ReferenceID   string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	PageSize      int
}
