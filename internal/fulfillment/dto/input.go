package dto

import (
	"github.com/fekuna/omnipos-warehouse-service/internal/model"
	"github.com/shopspring/decimal"
)

type OrderLineInput struct {
	ProductID string          `json:"product_id"`
	Quantity  float64         `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateOrderInput struct {
	TenantID    string
	CustomerRef string
	Notes       string
	ActorID     string
	Lines       []OrderLineInput
}

type PickEntry struct {
	AllocationID string  `json:"allocation_id"`
	Quantity     float64 `json:"quantity"`
}

type PackageLineInput struct {
	OrderLineID string  `json:"order_line_id"`
	Quantity    float64 `json:"quantity"`
}

type PackageInput struct {
	Lines []PackageLineInput `json:"lines"`
}

type ShipInput struct {
	TransporterID string `json:"transporter_id"`
	TrackingCode  string `json:"tracking_code"`
}

// PartialDeliveryLine reports what the recipient accepted for one order line.
// A rejection reason is required whenever accepted < shipped.
type PartialDeliveryLine struct {
	OrderLineID      string  `json:"order_line_id"`
	AcceptedQuantity float64 `json:"accepted_quantity"`
	Reason           string  `json:"reason"`
}

type OrderFilters struct {
	TenantID string
	State    model.OrderState
	Page     int
	PageSize int
}
