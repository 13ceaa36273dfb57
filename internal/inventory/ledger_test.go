package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogerio-castellano/inventory-orders/internal/apperr"
	"github.com/rogerio-castellano/inventory-orders/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	l := NewLedger(st, nil)
	clock := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return l, st
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// failingInsert reports zero affected rows for one entity.
type failingInsert struct {
	store.Store
	entity store.Entity
}

func (f failingInsert) InsertOne(ctx context.Context, e store.Entity, row store.Row) (int64, error) {
	if e.Table == f.entity.Table {
		return 0, nil
	}
	return f.Store.InsertOne(ctx, e, row)
}

func (f failingInsert) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		return fn(ctx, failingInsert{Store: tx, entity: f.entity})
	})
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("records opening stock as a shipment", func(t *testing.T) {
		l, _ := newTestLedger(t)
		created, err := l.CreateProduct(ctx, NewProduct{Name: "Laptop", Description: "15in", Price: price("1500.00"), Qty: 10})
		require.NoError(t, err)
		assert.NotEmpty(t, created.Product.ProductID)
		require.NotNil(t, created.Shipment)
		assert.Equal(t, 10, created.Shipment.Qty)

		p, err := l.GetProduct(ctx, created.Product.ProductID)
		require.NoError(t, err)
		assert.Equal(t, 10, p.Qty)
		assert.True(t, price("1500").Equal(p.Price))

		shipments, err := l.ListShipments(ctx, p.ProductID)
		require.NoError(t, err)
		require.Len(t, shipments, 1)
		assert.Equal(t, 10, shipments[0].Qty)
	})

	t.Run("zero stock creates no shipment", func(t *testing.T) {
		l, st := newTestLedger(t)
		created, err := l.CreateProduct(ctx, NewProduct{ProductID: "p1", Name: "Mouse", Price: price("9.99")})
		require.NoError(t, err)
		assert.Nil(t, created.Shipment)

		n, err := st.Count(ctx, store.Shipments)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("duplicate id is an insert failure", func(t *testing.T) {
		l, st := newTestLedger(t)
		_, err := l.CreateProduct(ctx, NewProduct{ProductID: "p1", Name: "Mouse", Price: price("9.99"), Qty: 1})
		require.NoError(t, err)

		_, err = l.CreateProduct(ctx, NewProduct{ProductID: "p1", Name: "Other", Price: price("1"), Qty: 5})
		assert.ErrorIs(t, err, ErrInsertFailed)
		assert.ErrorIs(t, err, apperr.ErrInsertFailure)

		n, err := st.Count(ctx, store.Shipments)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("failed shipment insert persists nothing", func(t *testing.T) {
		st := store.NewMemory()
		l := NewLedger(failingInsert{Store: st, entity: store.Shipments}, nil)

		_, err := l.CreateProduct(ctx, NewProduct{ProductID: "p1", Name: "Desk", Price: price("250"), Qty: 3})
		assert.ErrorIs(t, err, ErrInsertFailed)

		n, err := st.Count(ctx, store.Products)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("validation", func(t *testing.T) {
		l, _ := newTestLedger(t)
		for _, np := range []NewProduct{
			{Name: "", Price: price("1")},
			{Name: "x", Price: price("0")},
			{Name: "x", Price: price("-1")},
			{Name: "x", Price: price("1"), Qty: -1},
		} {
			_, err := l.CreateProduct(ctx, np)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		}
	})
}

func TestUpdateProductNeverTouchesQty(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	_, err := l.CreateProduct(ctx, NewProduct{ProductID: "p1", Name: "Laptop", Price: price("1500"), Qty: 4})
	require.NoError(t, err)

	p, err := l.UpdateProduct(ctx, ProductUpdate{ProductID: "p1", Name: "Laptop Pro", Description: "new", Price: price("1800")})
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", p.Name)
	assert.True(t, price("1800").Equal(p.Price))
	assert.Equal(t, 4, p.Qty)
	assert.True(t, p.LastUpdated.After(p.Created))

	_, err = l.UpdateProduct(ctx, ProductUpdate{ProductID: "missing", Name: "x", Price: price("1")})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestReceiveShipment(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	_, err := l.CreateProduct(ctx, NewProduct{ProductID: "p1", Name: "Laptop", Price: price("1500"), Qty: 10})
	require.NoError(t, err)

	s, err := l.ReceiveShipment(ctx, NewShipment{ProductID: "p1", Qty: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ShipmentID)

	p, err := l.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 15, p.Qty)

	shipments, err := l.ListShipments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, shipments, 2)
	assert.Equal(t, 5, shipments[0].Qty, "newest first")

	_, err = l.ReceiveShipment(ctx, NewShipment{ProductID: "missing", Qty: 5})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = l.ReceiveShipment(ctx, NewShipment{ProductID: "p1", Qty: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = l.ListShipments(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestRecomputeQuantity(t *testing.T) {
	ctx := context.Background()
	l, st := newTestLedger(t)
	_, err := l.CreateProduct(ctx, NewProduct{ProductID: "p1", Name: "Laptop", Price: price("1500"), Qty: 10})
	require.NoError(t, err)

	_, err = st.InsertOne(ctx, store.Orders, store.Row{"order_id": "o1", "email": "a@example.com", "order_status": "new"})
	require.NoError(t, err)
	_, err = st.InsertOne(ctx, store.OrderLineItems, store.Row{"order_id": "o1", "product_id": "p1", "qty": 7})
	require.NoError(t, err)

	require.NoError(t, l.RecomputeQuantity(ctx, []string{"p1", "p1", ""}))
	p, err := l.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Qty)

	assert.NoError(t, l.RecomputeQuantity(ctx, nil))
}

type brokenStore struct {
	store.Store
}

func (brokenStore) RecomputeQuantity(context.Context, []string) (int64, error) {
	return 0, apperr.ErrStoreUnavailable
}

func TestRecomputeQuantityWrapsStoreErrors(t *testing.T) {
	l := NewLedger(brokenStore{store.NewMemory()}, nil)
	err := l.RecomputeQuantity(context.Background(), []string{"p1"})
	assert.True(t, errors.Is(err, apperr.ErrStoreUnavailable))
}

func TestListProductsByCreation(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	for _, id := range []string{"b", "a", "c"} {
		_, err := l.CreateProduct(ctx, NewProduct{ProductID: id, Name: id, Price: price("1")})
		require.NoError(t, err)
	}

	products, err := l.ListProducts(ctx)
	require.NoError(t, err)
	var ids []string
	for _, p := range products {
		ids = append(ids, p.ProductID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestDashboardMetrics(t *testing.T) {
	ctx := context.Background()
	l, st := newTestLedger(t)
	_, err := l.CreateProduct(ctx, NewProduct{ProductID: "p1", Name: "Laptop", Price: price("1500"), Qty: 2})
	require.NoError(t, err)
	_, err = l.CreateProduct(ctx, NewProduct{ProductID: "p2", Name: "Mouse", Price: price("10")})
	require.NoError(t, err)
	_, err = l.ReceiveShipment(ctx, NewShipment{ProductID: "p1", Qty: 1})
	require.NoError(t, err)
	_, err = st.InsertMany(ctx, store.Orders, []store.Row{
		{"order_id": "o1", "email": "a@example.com", "order_status": "new"},
		{"order_id": "o2", "email": "b@example.com", "order_status": "cancelled"},
		{"order_id": "o3", "email": "c@example.com", "order_status": "new"},
	})
	require.NoError(t, err)

	m, err := l.DashboardMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalProducts)
	assert.Equal(t, 2, m.TotalShipments)
	assert.Equal(t, 2, m.NewOrders)
	assert.Equal(t, 1, m.CancelledOrders)
	assert.Equal(t, 1, m.OutOfStockCount)
	assert.Equal(t, MostShippedProduct{ProductID: "p1", Name: "Laptop", ShipmentCount: 2}, m.MostShippedProduct)
}
