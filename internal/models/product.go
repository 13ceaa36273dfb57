package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry. Qty is derived from shipments and orders and is never
// written directly after creation.
type Product struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Qty         int             `json:"qty"`
	Created     time.Time       `json:"created"`
	LastUpdated time.Time       `json:"last_updated"`
}

type Shipment struct {
	ShipmentID string    `json:"shipment_id"`
	ProductID  string    `json:"product_id"`
	Qty        int       `json:"qty"`
	Created    time.Time `json:"created"`
}
