package handlers

import (
	"fmt"
	"strings"

	"github.com/rogerio-castellano/inventory-orders/internal/models"
)

type ValidationError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func validateProduct(p ProductRequest, update bool) []ValidationError {
	errs := []ValidationError{}
	if update && strings.TrimSpace(p.ProductID) == "" {
		errs = append(errs, ValidationError{Field: "product_id", Description: "product_id is required"})
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Description: "name is required"})
	}
	if !p.Price.IsPositive() {
		errs = append(errs, ValidationError{Field: "price", Description: "price must be greater than zero"})
	}
	if !update && p.Qty < 0 {
		errs = append(errs, ValidationError{Field: "qty", Description: "qty cannot be negative"})
	}
	return errs
}

func validateShipment(s ShipmentRequest) []ValidationError {
	errs := []ValidationError{}
	if s.Qty <= 0 {
		errs = append(errs, ValidationError{Field: "qty", Description: "qty must be greater than zero"})
	}
	return errs
}

func validateOrder(o OrderRequest) []ValidationError {
	errs := []ValidationError{}
	email := strings.TrimSpace(o.Email)
	if len(email) < 3 || len(email) > 128 || !strings.Contains(email, "@") {
		errs = append(errs, ValidationError{Field: "email", Description: "email must be a valid address"})
	}
	if len(o.Products) == 0 {
		errs = append(errs, ValidationError{Field: "products", Description: "at least one product is required"})
	}
	for i, l := range o.Products {
		if strings.TrimSpace(l.ProductID) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("products[%d].product_id", i), Description: "product_id is required"})
		}
		if l.Qty <= 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("products[%d].qty", i), Description: "qty must be greater than zero"})
		}
	}
	return errs
}

func validateOrderUpdate(o OrderUpdateRequest) []ValidationError {
	errs := []ValidationError{}
	if strings.TrimSpace(o.OrderID) == "" {
		errs = append(errs, ValidationError{Field: "order_id", Description: "order_id is required"})
	}
	if !models.OrderStatus(o.OrderStatus).Valid() {
		errs = append(errs, ValidationError{Field: "order_status", Description: "order_status must be new or cancelled"})
	}
	return errs
}
