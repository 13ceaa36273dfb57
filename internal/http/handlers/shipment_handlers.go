package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rogerio-castellano/inventory-orders/internal/inventory"
)

// ReceiveShipmentHandler godoc
// @Summary Record a received shipment
// @Tags shipments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param shipment body ShipmentRequest true "Units received"
// @Success 201 {object} models.Shipment
// @Failure 400 {object} ValidationErrors
// @Failure 404 {object} ErrorResponse
// @Router /inventory/{id}/shipments [post]
func (s *Server) ReceiveShipmentHandler(w http.ResponseWriter, r *http.Request) {
	var req ShipmentRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, "invalid input")
		return
	}
	if errs := validateShipment(req); len(errs) > 0 {
		s.invalid(w, errs)
		return
	}

	shipment, err := s.ledger.ReceiveShipment(r.Context(), inventory.NewShipment{
		ShipmentID: req.ShipmentID,
		ProductID:  chi.URLParam(r, "id"),
		Qty:        req.Qty,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, shipment)
}

// GetShipmentsHandler godoc
// @Summary Shipment history of a product
// @Tags shipments
// @Produce json,text/csv
// @Param id path string true "Product ID"
// @Param format query string false "json (default) or csv"
// @Success 200 {array} models.Shipment
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /inventory/{id}/shipments [get]
func (s *Server) GetShipmentsHandler(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "csv" {
		s.badRequest(w, "format must be 'csv' or 'json'")
		return
	}

	productID := chi.URLParam(r, "id")
	shipments, err := s.ledger.ListShipments(r.Context(), productID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if format != "csv" {
		s.respond(w, http.StatusOK, shipments)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="shipments-`+productID+`.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"shipment_id", "product_id", "qty", "created"})
	for _, sh := range shipments {
		_ = cw.Write([]string{sh.ShipmentID, sh.ProductID, strconv.Itoa(sh.Qty), sh.Created.Format(time.RFC3339)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Error("failed to write CSV", zap.Error(err))
	}
}
