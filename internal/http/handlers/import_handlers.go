package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rogerio-castellano/inventory-orders/internal/apperr"
	"github.com/rogerio-castellano/inventory-orders/internal/inventory"
)

type csvRow struct {
	ProductID   string
	Name        string
	Description string
	Price       decimal.Decimal
	Qty         int
}

func parseCSV(r io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(r)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV header")
	}

	index := map[string]int{}
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "price"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("CSV header is missing %q", required)
		}
	}
	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []csvRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error: %v", err)
		}

		price, _ := decimal.NewFromString(field(record, "price"))
		qty, _ := strconv.Atoi(field(record, "qty"))
		rows = append(rows, csvRow{
			ProductID:   field(record, "product_id"),
			Name:        field(record, "name"),
			Description: field(record, "description"),
			Price:       price,
			Qty:         qty,
		})
	}
	return rows, nil
}

func validateRow(r csvRow) error {
	if r.Name == "" {
		return errors.New("missing name")
	}
	if !r.Price.IsPositive() {
		return errors.New("invalid price")
	}
	if r.Qty < 0 {
		return errors.New("invalid qty")
	}
	return nil
}

// ImportProductsHandler godoc
// @Summary Import products via CSV
// @Description Columns: product_id (optional), name, description, price, qty. Existing products are skipped, or updated with mode=update (qty is never updated).
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param mode query string false "Import mode (skip|update)"
// @Success 200 {object} ImportProductsResult
// @Failure 400 {object} ErrorResponse
// @Router /inventory/import [post]
// @Security BearerAuth
func (s *Server) ImportProductsHandler(w http.ResponseWriter, r *http.Request) {
	mode := strings.ToLower(r.URL.Query().Get("mode"))
	if mode != "update" {
		mode = "skip" // default
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, "missing file")
		return
	}
	defer file.Close()

	records, err := parseCSV(file)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}

	imported := 0
	errorsList := []ValidationError{}
	rowError := func(rowNum int, format string, args ...any) {
		errorsList = append(errorsList, ValidationError{
			Field:       fmt.Sprintf("row %d", rowNum),
			Description: fmt.Sprintf(format, args...),
		})
	}

	for i, rec := range records {
		rowNum := i + 2 // header is row 1

		if err := validateRow(rec); err != nil {
			rowError(rowNum, "%v", err)
			continue
		}

		if rec.ProductID != "" {
			_, err := s.ledger.GetProduct(r.Context(), rec.ProductID)
			switch {
			case err == nil && mode == "skip":
				rowError(rowNum, "product '%s' already exists", rec.ProductID)
				continue
			case err == nil:
				if _, err := s.ledger.UpdateProduct(r.Context(), inventory.ProductUpdate{
					ProductID:   rec.ProductID,
					Name:        rec.Name,
					Description: rec.Description,
					Price:       rec.Price,
				}); err != nil {
					rowError(rowNum, "failed to update '%s'", rec.ProductID)
					continue
				}
				imported++
				continue
			case apperr.Kind(err) != apperr.ErrNotFound:
				s.fail(w, r, err)
				return
			}
		}

		if _, err := s.ledger.CreateProduct(r.Context(), inventory.NewProduct{
			ProductID:   rec.ProductID,
			Name:        rec.Name,
			Description: rec.Description,
			Price:       rec.Price,
			Qty:         rec.Qty,
		}); err != nil {
			rowError(rowNum, "%v", err)
			continue
		}
		imported++
	}

	s.respond(w, http.StatusOK, ImportProductsResult{
		ImportedProductsCount: imported,
		Errors:                errorsList,
	})
}
