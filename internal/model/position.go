package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the authoritative balance for one (product, location, lot).
// Two positions for the same product/location are distinct when any lot
// attribute differs.
type Position struct {
	BaseModel
	TenantID          string          `db:"tenant_id" json:"tenant_id"`
	ProductID         string          `db:"product_id" json:"product_id"`
	LocationID        string          `db:"location_id" json:"location_id"`
	LotNumber         *string         `db:"lot_number" json:"lot_number"` // Nullable
	ExpiryDate        *time.Time      `db:"expiry_date" json:"expiry_date"`
	ReceivedAt        time.Time       `db:"received_at" json:"received_at"`
	UnitCost          decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	AvailableQuantity float64         `db:"available_quantity" json:"available_quantity"`
	ReservedQuantity  float64         `db:"reserved_quantity" json:"reserved_quantity"`
}

func (p *Position) TotalQuantity() float64 {
	return p.AvailableQuantity + p.ReservedQuantity
}

// Movement types. transfer_out/transfer_in always come in pairs carrying the
// same reference.
const (
	MovementReceipt     = "receipt"
	MovementPick        = "pick"
	MovementAdjustment  = "adjustment"
	MovementTransferOut = "transfer_out"
	MovementTransferIn  = "transfer_in"
)

// Movement is an immutable quantity-change fact. Written exactly once, in the
// same transaction as the position mutation it documents.
type Movement struct {
	ID              string    `db:"id" json:"id"`
	TenantID        string    `db:"tenant_id" json:"tenant_id"`
	PositionID      string    `db:"position_id" json:"position_id"`
	ProductID       string    `db:"product_id" json:"product_id"`
	LocationID      string    `db:"location_id" json:"location_id"`
	MovementType    string    `db:"movement_type" json:"movement_type"`
	QuantityChange  float64   `db:"quantity_change" json:"quantity_change"`
	QuantityBefore  float64   `db:"quantity_before" json:"quantity_before"`
	QuantityAfter   float64   `db:"quantity_after" json:"quantity_after"`
	ReferenceType   *string   `db:"reference_type" json:"reference_type"`
	ReferenceID     *string   `db:"reference_id" json:"reference_id"`
	ReferenceNumber *string   `db:"reference_number" json:"reference_number"`
	Notes           string    `db:"notes" json:"notes"`
	CreatedBy       *string   `db:"created_by" json:"created_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
