// Package orders implements the order workflow: availability check, creation and cancellation.
// Quantities are never adjusted here; the inventory ledger recomputes them after each change.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rogerio-castellano/inventory-orders/internal/apperr"
	"github.com/rogerio-castellano/inventory-orders/internal/events"
	"github.com/rogerio-castellano/inventory-orders/internal/inventory"
	"github.com/rogerio-castellano/inventory-orders/internal/models"
	"github.com/rogerio-castellano/inventory-orders/internal/store"
)

var (
	ErrOrderNotFound         = apperr.New(apperr.ErrNotFound, "order not found")
	ErrInvalidOrder          = apperr.New(apperr.ErrValidation, "invalid order")
	ErrOrderRejected         = apperr.New(apperr.ErrRejected, "cannot purchase these products")
	ErrInsertFailed          = apperr.New(apperr.ErrInsertFailure, "failed to insert order")
	ErrUnsupportedTransition = apperr.New(apperr.ErrUnsupportedTransition, "unsupported order transition")
	ErrNoChangeNeeded        = apperr.New(apperr.ErrNoChangeNeeded, "order already has this status")
)

// LineRequest asks for Qty units of one product.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type NewOrder struct {
	OrderID  string
	Email    string
	Products []LineRequest
}

type OrderUpdate struct {
	OrderID     string
	OrderStatus models.OrderStatus
}

type Workflow struct {
	st        store.Store
	ledger    *inventory.Ledger
	logger    *zap.Logger
	publisher events.Publisher
	lockRows  bool
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Workflow)

func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger.Named("orders")
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(w *Workflow) {
		if p != nil {
			w.publisher = p
		}
	}
}

// WithInventoryLocks makes CreateOrder lock the requested product rows before checking
// availability, so concurrent orders for the same product cannot both pass.
func WithInventoryLocks(enabled bool) Option {
	return func(w *Workflow) {
		w.lockRows = enabled
	}
}

func NewWorkflow(st store.Store, ledger *inventory.Ledger, opts ...Option) *Workflow {
	w := &Workflow{
		st:        st,
		ledger:    ledger,
		logger:    zap.NewNop(),
		publisher: events.Noop{},
		tracer:    otel.Tracer("orders"),
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CanFulfill reports whether current stock covers every requested line. Lines for the same
// product are added up. An empty request or an unknown product is never fulfillable. The
// answer is only valid at the moment it is computed; nothing is reserved.
func (w *Workflow) CanFulfill(ctx context.Context, lines []LineRequest) (bool, error) {
	return canFulfill(ctx, w.st, lines)
}

func canFulfill(ctx context.Context, st store.Store, lines []LineRequest) (bool, error) {
	if len(lines) == 0 {
		return false, nil
	}
	requested := map[string]int{}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, seen := requested[l.ProductID]; !seen {
			ids = append(ids, l.ProductID)
		}
		requested[l.ProductID] += l.Qty
	}

	rows, err := st.FindWhereIn(ctx, store.Products, "product_id", ids)
	if err != nil {
		return false, fmt.Errorf("load quantities: %w", err)
	}
	current := make(map[string]int, len(rows))
	for _, r := range rows {
		current[r.String("product_id")] = r.Int("qty")
	}

	for id, want := range requested {
		have, ok := current[id]
		if !ok || have-want < 0 {
			return false, nil
		}
	}
	return true, nil
}

func validateLines(lines []LineRequest) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: no products", ErrInvalidOrder)
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return fmt.Errorf("%w: products[%d] has no product_id", ErrInvalidOrder, i)
		}
		if l.Qty <= 0 {
			return fmt.Errorf("%w: products[%d] qty must be positive", ErrInvalidOrder, i)
		}
	}
	return nil
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(lines []LineRequest) []LineRequest {
	idx := map[string]int{}
	var out []LineRequest
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Qty += l.Qty
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// CreateOrder checks availability, writes the order and its line items and recomputes stock
// for the ordered products, all in one transaction.
func (w *Workflow) CreateOrder(ctx context.Context, no NewOrder) (order models.OrderWithLines, err error) {
	ctx, span := w.tracer.Start(ctx, "orders.create")
	defer func() { endSpan(span, err) }()

	if no.Email == "" {
		return models.OrderWithLines{}, fmt.Errorf("%w: email is required", ErrInvalidOrder)
	}
	if err := validateLines(no.Products); err != nil {
		return models.OrderWithLines{}, err
	}
	if no.OrderID == "" {
		no.OrderID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("order_id", no.OrderID))

	lines := mergeLines(no.Products)
	productIDs := make([]string, len(lines))
	for i, l := range lines {
		productIDs[i] = l.ProductID
	}

	now := w.now()
	err = w.st.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if w.lockRows {
			if err := tx.LockRows(ctx, store.Products, "product_id", productIDs); err != nil {
				return err
			}
		}
		ok, err := canFulfill(ctx, tx, lines)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderRejected
		}

		n, err := tx.InsertOne(ctx, store.Orders, store.Row{
			"order_id":     no.OrderID,
			"email":        no.Email,
			"order_status": string(models.OrderStatusNew),
			"created":      now,
			"last_updated": now,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsertFailed
		}

		rows := make([]store.Row, len(lines))
		for i, l := range lines {
			rows[i] = store.Row{
				"order_id":   no.OrderID,
				"product_id": l.ProductID,
				"qty":        l.Qty,
				"created":    now,
			}
		}
		n, err = tx.InsertMany(ctx, store.OrderLineItems, rows)
		if err != nil {
			return err
		}
		if n != int64(len(rows)) {
			return ErrInsertFailed
		}

		return w.ledger.WithStore(tx).RecomputeQuantity(ctx, productIDs)
	})
	if err != nil {
		if apperr.Kind(err) == apperr.ErrRejected {
			w.logger.Info("order rejected", zap.String("order_id", no.OrderID), zap.String("email", no.Email))
		}
		return models.OrderWithLines{}, fmt.Errorf("create order %s: %w", no.OrderID, err)
	}

	// Committed: a failed reload falls back to the order as written.
	order, err = w.GetOrder(ctx, no.OrderID)
	if err != nil {
		w.logger.Warn("reload after create failed", zap.String("order_id", no.OrderID), zap.Error(err))
		order = committedOrder(no.OrderID, no.Email, lines, now)
	}
	w.logger.Info("order created", zap.String("order_id", order.OrderID), zap.Int("lines", len(order.Products)))
	w.publish(ctx, events.OrderCreated, order)
	return order, nil
}

// UpdateOrder applies a status change. The only supported change is new to cancelled, which
// returns the order's units to stock.
func (w *Workflow) UpdateOrder(ctx context.Context, ou OrderUpdate) (order models.OrderWithLines, err error) {
	ctx, span := w.tracer.Start(ctx, "orders.update", trace.WithAttributes(attribute.String("order_id", ou.OrderID)))
	defer func() { endSpan(span, err) }()

	if !ou.OrderStatus.Valid() {
		return models.OrderWithLines{}, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, ou.OrderStatus)
	}
	order, err = w.GetOrder(ctx, ou.OrderID)
	if err != nil {
		return models.OrderWithLines{}, err
	}

	switch {
	case order.OrderStatus == models.OrderStatusCancelled:
		return models.OrderWithLines{}, ErrUnsupportedTransition
	case ou.OrderStatus == order.OrderStatus:
		return models.OrderWithLines{}, ErrNoChangeNeeded
	}

	now := w.now()
	n, err := w.st.UpdateOne(ctx, store.Orders,
		[]store.Filter{
			store.Eq("order_id", order.OrderID),
			store.Eq("order_status", string(models.OrderStatusNew)),
		},
		store.Row{"order_status": string(models.OrderStatusCancelled), "last_updated": now})
	if err != nil {
		return models.OrderWithLines{}, fmt.Errorf("cancel order %s: %w", order.OrderID, err)
	}
	if n == 0 {
		// cancelled by a concurrent request since it was read
		return models.OrderWithLines{}, ErrUnsupportedTransition
	}
	order.OrderStatus = models.OrderStatusCancelled
	order.LastUpdated = now

	productIDs := make([]string, len(order.Products))
	for i, li := range order.Products {
		productIDs[i] = li.ProductID
	}
	if err := w.ledger.RecomputeQuantity(ctx, productIDs); err != nil {
		w.logger.Error("restock after cancel failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}

	w.logger.Info("order cancelled", zap.String("order_id", order.OrderID))
	w.publish(ctx, events.OrderCancelled, order)
	return order, nil
}

func (w *Workflow) publish(ctx context.Context, eventType string, order models.OrderWithLines) {
	if err := w.publisher.Publish(ctx, events.NewOrderEvent(eventType, order)); err != nil {
		w.logger.Warn("event not published",
			zap.String("event", eventType),
			zap.String("order_id", order.OrderID),
			zap.Error(err))
	}
}

// ListOrders returns every order newest first, each with its line items.
func (w *Workflow) ListOrders(ctx context.Context) ([]models.OrderWithLines, error) {
	rows, err := w.st.Find(ctx, store.Orders, store.Query{SortBy: &store.Sort{Field: "created", Desc: true}})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(rows) == 0 {
		return []models.OrderWithLines{}, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.String("order_id")
	}
	lineRows, err := w.st.FindWhereIn(ctx, store.OrderLineItems, "order_id", ids)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	byOrder := map[string][]models.LineItem{}
	for _, r := range lineRows {
		li := lineItemFromRow(r)
		byOrder[li.OrderID] = append(byOrder[li.OrderID], li)
	}

	out := make([]models.OrderWithLines, len(rows))
	for i, r := range rows {
		o := orderFromRow(r)
		lines := byOrder[o.OrderID]
		if lines == nil {
			lines = []models.LineItem{}
		}
		out[i] = models.OrderWithLines{Order: o, Products: lines}
	}
	return out, nil
}

func (w *Workflow) GetOrder(ctx context.Context, orderID string) (models.OrderWithLines, error) {
	r, err := w.st.FindOne(ctx, store.Orders, store.Eq("order_id", orderID))
	if err != nil {
		return models.OrderWithLines{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if r == nil {
		return models.OrderWithLines{}, ErrOrderNotFound
	}

	lineRows, err := w.st.Find(ctx, store.OrderLineItems, store.Query{
		Filters: []store.Filter{store.Eq("order_id", orderID)},
	})
	if err != nil {
		return models.OrderWithLines{}, fmt.Errorf("get order %s lines: %w", orderID, err)
	}
	lines := make([]models.LineItem, len(lineRows))
	for i, lr := range lineRows {
		lines[i] = lineItemFromRow(lr)
	}
	return models.OrderWithLines{Order: orderFromRow(r), Products: lines}, nil
}

func committedOrder(orderID, email string, lines []LineRequest, created time.Time) models.OrderWithLines {
	items := make([]models.LineItem, len(lines))
	for i, l := range lines {
		items[i] = models.LineItem{OrderID: orderID, ProductID: l.ProductID, Qty: l.Qty, Created: created}
	}
	return models.OrderWithLines{
		Order: models.Order{
			OrderID:     orderID,
			Email:       email,
			OrderStatus: models.OrderStatusNew,
			Created:     created,
			LastUpdated: created,
		},
		Products: items,
	}
}

func orderFromRow(r store.Row) models.Order {
	return models.Order{
		OrderID:     r.String("order_id"),
		Email:       r.String("email"),
		OrderStatus: models.OrderStatus(r.String("order_status")),
		Created:     r.Time("created"),
		LastUpdated: r.Time("last_updated"),
	}
}

func lineItemFromRow(r store.Row) models.LineItem {
	return models.LineItem{
		OrderID:   r.String("order_id"),
		ProductID: r.String("product_id"),
		Qty:       r.Int("qty"),
		Created:   r.Time("created"),
	}
}
