// Package inventory owns the product catalog and the quantity ledger. A product's qty is never
// adjusted in place: it is recomputed from the shipment and order fact tables.
package inventory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rogerio-castellano/inventory-orders/internal/apperr"
	"github.com/rogerio-castellano/inventory-orders/internal/models"
	"github.com/rogerio-castellano/inventory-orders/internal/store"
)

var (
	ErrProductNotFound = apperr.New(apperr.ErrNotFound, "product not found")
	ErrInsertFailed    = apperr.New(apperr.ErrInsertFailure, "insert affected no rows")
	ErrInvalidProduct  = apperr.New(apperr.ErrValidation, "invalid product")
	ErrInvalidShipment = apperr.New(apperr.ErrValidation, "invalid shipment")
)

type Ledger struct {
	st     store.Store
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewLedger(st store.Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		st:     st,
		logger: logger.Named("inventory"),
		tracer: otel.Tracer("inventory"),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// WithStore returns a copy of the ledger bound to st, typically a transaction-scoped store.
func (l *Ledger) WithStore(st store.Store) *Ledger {
	cp := *l
	cp.st = st
	return &cp
}

type NewProduct struct {
	ProductID   string
	Name        string
	Description string
	Price       decimal.Decimal
	Qty         int
}

// ProductUpdate carries every editable field. Quantity is not one of them.
type ProductUpdate struct {
	ProductID   string
	Name        string
	Description string
	Price       decimal.Decimal
}

type NewShipment struct {
	ShipmentID string
	ProductID  string
	Qty        int
}

// Created is the result of CreateProduct. Shipment is nil when the product starts with no stock.
type Created struct {
	Product  models.Product   `json:"product"`
	Shipment *models.Shipment `json:"shipment,omitempty"`
}

func (l *Ledger) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, "inventory."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (l *Ledger) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := l.st.Find(ctx, store.Products, store.Query{SortBy: &store.Sort{Field: "created"}})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products := make([]models.Product, len(rows))
	for i, r := range rows {
		products[i] = productFromRow(r)
	}
	return products, nil
}

func (l *Ledger) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	r, err := l.st.FindOne(ctx, store.Products, store.Eq("product_id", productID))
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	if r == nil {
		return models.Product{}, ErrProductNotFound
	}
	return productFromRow(r), nil
}

// CreateProduct stores the product with its opening stock and records that stock as the first
// shipment, both in one transaction.
func (l *Ledger) CreateProduct(ctx context.Context, np NewProduct) (created Created, err error) {
	ctx, span := l.startSpan(ctx, "create_product")
	defer func() { endSpan(span, err) }()

	if np.Name == "" || !np.Price.IsPositive() || np.Qty < 0 {
		return Created{}, ErrInvalidProduct
	}
	if np.ProductID == "" {
		np.ProductID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("product_id", np.ProductID))

	now := l.now()
	p := models.Product{
		ProductID:   np.ProductID,
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Qty:         np.Qty,
		Created:     now,
		LastUpdated: now,
	}

	err = l.st.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		n, err := tx.InsertOne(ctx, store.Products, productRow(p))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsertFailed
		}
		created = Created{Product: p}
		if p.Qty == 0 {
			return nil
		}

		s := models.Shipment{
			ShipmentID: uuid.NewString(),
			ProductID:  p.ProductID,
			Qty:        p.Qty,
			Created:    now,
		}
		n, err = tx.InsertOne(ctx, store.Shipments, shipmentRow(s))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsertFailed
		}
		created.Shipment = &s
		return nil
	})
	if err != nil {
		return Created{}, fmt.Errorf("create product %s: %w", np.ProductID, err)
	}

	l.logger.Info("product created", zap.String("product_id", p.ProductID), zap.Int("qty", p.Qty))
	return created, nil
}

func (l *Ledger) UpdateProduct(ctx context.Context, pu ProductUpdate) (models.Product, error) {
	if pu.ProductID == "" || pu.Name == "" || !pu.Price.IsPositive() {
		return models.Product{}, ErrInvalidProduct
	}
	patch := store.Row{
		"name":         pu.Name,
		"description":  pu.Description,
		"price":        pu.Price,
		"last_updated": l.now(),
	}
	n, err := l.st.UpdateOne(ctx, store.Products, []store.Filter{store.Eq("product_id", pu.ProductID)}, patch)
	if err != nil {
		return models.Product{}, fmt.Errorf("update product %s: %w", pu.ProductID, err)
	}
	if n == 0 {
		return models.Product{}, ErrProductNotFound
	}
	return l.GetProduct(ctx, pu.ProductID)
}

// RecomputeQuantity rederives qty for the given products. It is the only writer of qty once a
// product exists.
func (l *Ledger) RecomputeQuantity(ctx context.Context, productIDs []string) (err error) {
	ids := uniqueIDs(productIDs)
	if len(ids) == 0 {
		return nil
	}
	ctx, span := l.startSpan(ctx, "recompute_quantity", attribute.StringSlice("product_ids", ids))
	defer func() { endSpan(span, err) }()

	n, err := l.st.RecomputeQuantity(ctx, ids)
	if err != nil {
		return fmt.Errorf("recompute quantity: %w", err)
	}
	l.logger.Debug("quantity recomputed", zap.Strings("product_ids", ids), zap.Int64("updated", n))
	return nil
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// ReceiveShipment appends a shipment fact for an existing product and refreshes its qty.
func (l *Ledger) ReceiveShipment(ctx context.Context, ns NewShipment) (shipment models.Shipment, err error) {
	ctx, span := l.startSpan(ctx, "receive_shipment", attribute.String("product_id", ns.ProductID))
	defer func() { endSpan(span, err) }()

	if ns.ProductID == "" || ns.Qty <= 0 {
		return models.Shipment{}, ErrInvalidShipment
	}
	if ns.ShipmentID == "" {
		ns.ShipmentID = uuid.NewString()
	}
	shipment = models.Shipment{
		ShipmentID: ns.ShipmentID,
		ProductID:  ns.ProductID,
		Qty:        ns.Qty,
		Created:    l.now(),
	}

	err = l.st.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		r, err := tx.FindOne(ctx, store.Products, store.Eq("product_id", ns.ProductID))
		if err != nil {
			return err
		}
		if r == nil {
			return ErrProductNotFound
		}
		n, err := tx.InsertOne(ctx, store.Shipments, shipmentRow(shipment))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsertFailed
		}
		return l.WithStore(tx).RecomputeQuantity(ctx, []string{ns.ProductID})
	})
	if err != nil {
		return models.Shipment{}, fmt.Errorf("receive shipment for %s: %w", ns.ProductID, err)
	}

	l.logger.Info("shipment received",
		zap.String("product_id", shipment.ProductID),
		zap.String("shipment_id", shipment.ShipmentID),
		zap.Int("qty", shipment.Qty))
	return shipment, nil
}

// ListShipments returns the product's shipment history, newest first.
func (l *Ledger) ListShipments(ctx context.Context, productID string) ([]models.Shipment, error) {
	if _, err := l.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	rows, err := l.st.Find(ctx, store.Shipments, store.Query{
		Filters: []store.Filter{store.Eq("product_id", productID)},
		SortBy:  &store.Sort{Field: "created", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("list shipments for %s: %w", productID, err)
	}
	shipments := make([]models.Shipment, len(rows))
	for i, r := range rows {
		shipments[i] = shipmentFromRow(r)
	}
	return shipments, nil
}

func productRow(p models.Product) store.Row {
	return store.Row{
		"product_id":   p.ProductID,
		"name":         p.Name,
		"description":  p.Description,
		"price":        p.Price,
		"qty":          p.Qty,
		"created":      p.Created,
		"last_updated": p.LastUpdated,
	}
}

func productFromRow(r store.Row) models.Product {
	return models.Product{
		ProductID:   r.String("product_id"),
		Name:        r.String("name"),
		Description: r.String("description"),
		Price:       r.Decimal("price"),
		Qty:         r.Int("qty"),
		Created:     r.Time("created"),
		LastUpdated: r.Time("last_updated"),
	}
}

func shipmentRow(s models.Shipment) store.Row {
	return store.Row{
		"shipment_id": s.ShipmentID,
		"product_id":  s.ProductID,
		"qty":         s.Qty,
		"created":     s.Created,
	}
}

func shipmentFromRow(r store.Row) models.Shipment {
	return models.Shipment{
		ShipmentID: r.String("shipment_id"),
		ProductID:  r.String("product_id"),
		Qty:        r.Int("qty"),
		Created:    r.Time("created"),
	}
}
