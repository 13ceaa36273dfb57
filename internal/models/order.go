package models

import "time"

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	return s == OrderStatusNew || s == OrderStatusCancelled
}

type Order struct {
	OrderID     string      `json:"order_id"`
	Email       string      `json:"email"`
	OrderStatus OrderStatus `json:"order_status"`
	Created     time.Time   `json:"created"`
	LastUpdated time.Time   `json:"last_updated"`
}

// LineItem is one product on an order.
type LineItem struct {
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Qty       int       `json:"qty"`
	Created   time.Time `json:"created"`
}

// OrderWithLines is an order together with its line items. Products is never nil.
type OrderWithLines struct {
	Order
	Products []LineItem `json:"products"`
}
