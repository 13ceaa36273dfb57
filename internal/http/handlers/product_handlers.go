package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rogerio-castellano/inventory-orders/internal/inventory"
)

// HealthHandler godoc
// @Summary Liveness check
// @Tags general
// @Produce plain
// @Success 200 {string} string "works"
// @Router / [get]
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("works"))
}

// GetProductsHandler godoc
// @Summary List all products
// @Tags inventory
// @Produce json
// @Success 200 {array} models.Product
// @Failure 503 {object} ErrorResponse
// @Router /inventory [get]
func (s *Server) GetProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := s.ledger.ListProducts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, products)
}

// GetProductByIDHandler godoc
// @Summary Get product by ID
// @Tags inventory
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} ErrorResponse
// @Router /inventory/{id} [get]
func (s *Server) GetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	product, err := s.ledger.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, product)
}

// CreateProductHandler godoc
// @Summary Create a new product
// @Description Adds a product to the inventory. The initial qty is recorded as its first shipment.
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replay key"
// @Param product body ProductRequest true "Product to add"
// @Success 201 {object} models.Product
// @Failure 400 {object} ValidationErrors
// @Failure 406 {object} ErrorResponse
// @Failure 409 {string} string "Idempotency-Key still in progress"
// @Router /inventory [post]
func (s *Server) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, "invalid input")
		return
	}
	if errs := validateProduct(req, false); len(errs) > 0 {
		s.invalid(w, errs)
		return
	}

	created, err := s.ledger.CreateProduct(r.Context(), inventory.NewProduct{
		ProductID:   req.ProductID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Qty:         req.Qty,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	product, err := s.ledger.GetProduct(r.Context(), created.Product.ProductID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, product)
}

// UpdateProductHandler godoc
// @Summary Update a product
// @Description Updates name, description and price. A qty in the body is ignored.
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product body ProductRequest true "Product fields"
// @Success 200 {object} models.Product
// @Failure 400 {object} ValidationErrors
// @Failure 404 {object} ErrorResponse
// @Router /inventory [put]
func (s *Server) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, "invalid input")
		return
	}
	if errs := validateProduct(req, true); len(errs) > 0 {
		s.invalid(w, errs)
		return
	}

	product, err := s.ledger.UpdateProduct(r.Context(), inventory.ProductUpdate{
		ProductID:   req.ProductID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, product)
}
