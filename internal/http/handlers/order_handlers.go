package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rogerio-castellano/inventory-orders/internal/models"
	"github.com/rogerio-castellano/inventory-orders/internal/orders"
)

// GetOrdersHandler godoc
// @Summary List all orders, newest first
// @Tags orders
// @Produce json
// @Success 200 {array} models.OrderWithLines
// @Router /orders [get]
func (s *Server) GetOrdersHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.ListOrders(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, list)
}

// GetOrderByIDHandler godoc
// @Summary Get order by ID
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.OrderWithLines
// @Failure 404 {object} ErrorResponse
// @Router /order/{id} [get]
func (s *Server) GetOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, order)
}

// CreateOrderHandler godoc
// @Summary Place an order
// @Description Creates the order only if every product has enough stock.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replay key"
// @Param order body OrderRequest true "Order to place"
// @Success 201 {object} models.OrderWithLines
// @Failure 400 {object} ValidationErrors
// @Failure 406 {object} ErrorResponse
// @Failure 409 {string} string "Idempotency-Key still in progress"
// @Router /order [post]
func (s *Server) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, "invalid input")
		return
	}
	if errs := validateOrder(req); len(errs) > 0 {
		s.invalid(w, errs)
		return
	}

	order, err := s.orders.CreateOrder(r.Context(), orders.NewOrder{
		OrderID:  req.OrderID,
		Email:    req.Email,
		Products: req.Products,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, order)
}

// UpdateOrderHandler godoc
// @Summary Change an order's status
// @Description Only new to cancelled is supported.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body OrderUpdateRequest true "Order id and target status"
// @Success 200 {object} models.OrderWithLines
// @Failure 400 {object} ValidationErrors
// @Failure 404 {object} ErrorResponse
// @Failure 406 {object} ErrorResponse
// @Router /order [put]
func (s *Server) UpdateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req OrderUpdateRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, "invalid input")
		return
	}
	if errs := validateOrderUpdate(req); len(errs) > 0 {
		s.invalid(w, errs)
		return
	}

	order, err := s.orders.UpdateOrder(r.Context(), orders.OrderUpdate{
		OrderID:     req.OrderID,
		OrderStatus: models.OrderStatus(req.OrderStatus),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, order)
}
