package handlers

import (
	"github.com/shopspring/decimal"

	"github.com/rogerio-castellano/inventory-orders/internal/orders"
)

// ProductRequest is the body of POST and PUT /inventory. Qty is only honoured on creation.
type ProductRequest struct {
	ProductID   string          `json:"product_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" swaggertype:"string" example:"19.99"`
	Qty         int             `json:"qty"`
}

type ShipmentRequest struct {
	ShipmentID string `json:"shipment_id,omitempty"`
	Qty        int    `json:"qty"`
}

type OrderRequest struct {
	OrderID  string               `json:"order_id,omitempty"`
	Email    string               `json:"email"`
	Products []orders.LineRequest `json:"products"`
}

type OrderUpdateRequest struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
}

type UserLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string `json:"token"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ImportProductsResult struct {
	ImportedProductsCount int               `json:"imported"`
	Errors                []ValidationError `json:"errors"`
}
