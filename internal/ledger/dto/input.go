package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiveStockInput struct {
	TenantID      string
	ProductID     string
	LocationID    string
	LotNumber     *string
	ExpiryDate    *time.Time
	UnitCost      decimal.Decimal
	Quantity      float64
	ReferenceType string
	ReferenceID   string
	Notes         string
	ActorID       string
}
