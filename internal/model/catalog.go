package model

// Product and Location are owned by the catalog service; this service reads
// them only to validate references and pick allocation strategy.
type Product struct {
	BaseModel
	TenantID    string `db:"tenant_id" json:"tenant_id"`
	SKU         string `db:"sku" json:"sku"`
	Name        string `db:"name" json:"name"`
	TrackExpiry bool   `db:"track_expiry" json:"track_expiry"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}

type Location struct {
	BaseModel
	TenantID    string  `db:"tenant_id" json:"tenant_id"`
	WarehouseID *string `db:"warehouse_id" json:"warehouse_id"`
	Code        string  `db:"code" json:"code"`
	Name        string  `db:"name" json:"name"`
	IsActive    bool    `db:"is_active" json:"is_active"`
}
