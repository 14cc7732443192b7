package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderState string

const (
	OrderStateCreated            OrderState = "created"
	OrderStateAllocated          OrderState = "allocated"
	OrderStatePicked             OrderState = "picked"
	OrderStatePacked             OrderState = "packed"
	OrderStateShipped            OrderState = "shipped"
	OrderStateDelivered          OrderState = "delivered"
	OrderStatePartiallyDelivered OrderState = "partially_delivered"
	OrderStateCancelled          OrderState = "cancelled"
)

// FulfillmentOrder progresses strictly created -> allocated -> picked ->
// packed -> shipped -> delivered; shipped may instead end at
// partially_delivered with a linked return order.
type FulfillmentOrder struct {
	BaseModel
	TenantID      string      `db:"tenant_id" json:"tenant_id"`
	OrderNumber   string      `db:"order_number" json:"order_number"`
	State         OrderState  `db:"state" json:"state"`
	CustomerRef   *string     `db:"customer_ref" json:"customer_ref"`
	Notes         string      `db:"notes" json:"notes"`
	CreatedBy     string      `db:"created_by" json:"created_by"`
	TransporterID *string     `db:"transporter_id" json:"transporter_id"`
	TrackingCode  *string     `db:"tracking_code" json:"tracking_code"`
	ShippedAt     *time.Time  `db:"shipped_at" json:"shipped_at"`
	DeliveredAt   *time.Time  `db:"delivered_at" json:"delivered_at"`
	ArtifactRef   *string     `db:"artifact_ref" json:"artifact_ref"`
	Lines         []OrderLine `db:"-" json:"lines"`
}

type OrderLine struct {
	ID              string          `db:"id" json:"id"`
	OrderID         string          `db:"order_id" json:"order_id"`
	LineNo          int             `db:"line_no" json:"line_no"`
	ProductID       string          `db:"product_id" json:"product_id"`
	OrderedQuantity float64         `db:"ordered_quantity" json:"ordered_quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	PickedQuantity  float64         `db:"picked_quantity" json:"picked_quantity"`
	PackedQuantity  float64         `db:"packed_quantity" json:"packed_quantity"`
	Allocations     []Allocation    `db:"-" json:"allocations"`
}

// Allocation is a reservation of quantity on a specific position for an order
// line. Reserving does not write a Movement; the pick that consumes it does.
type Allocation struct {
	ID                string    `db:"id" json:"id"`
	OrderLineID       string    `db:"order_line_id" json:"order_line_id"`
	PositionID        string    `db:"position_id" json:"position_id"`
	AllocatedQuantity float64   `db:"allocated_quantity" json:"allocated_quantity"`
	PickedQuantity    float64   `db:"picked_quantity" json:"picked_quantity"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

type Package struct {
	ID        string        `db:"id" json:"id"`
	OrderID   string        `db:"order_id" json:"order_id"`
	PackageNo int           `db:"package_no" json:"package_no"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	Lines     []PackageLine `db:"-" json:"lines"`
}

type PackageLine struct {
	ID          string  `db:"id" json:"id"`
	PackageID   string  `db:"package_id" json:"package_id"`
	OrderLineID string  `db:"order_line_id" json:"order_line_id"`
	Quantity    float64 `db:"quantity" json:"quantity"`
}

// ReturnOrder is the compensating inbound document spawned by a partial
// delivery. Receiving it back into stock is handled by the inbound side.
type ReturnOrder struct {
	BaseModel
	TenantID       string       `db:"tenant_id" json:"tenant_id"`
	OrderID        string       `db:"order_id" json:"order_id"`
	DocumentNumber string       `db:"document_number" json:"document_number"`
	CreatedBy      string       `db:"created_by" json:"created_by"`
	Lines          []ReturnLine `db:"-" json:"lines"`
}

type ReturnLine struct {
	ID               string  `db:"id" json:"id"`
	ReturnID         string  `db:"return_id" json:"return_id"`
	OrderLineID      string  `db:"order_line_id" json:"order_line_id"`
	ProductID        string  `db:"product_id" json:"product_id"`
	RejectedQuantity float64 `db:"rejected_quantity" json:"rejected_quantity"`
	Reason           string  `db:"reason" json:"reason"`
}
