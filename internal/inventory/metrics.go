package inventory

import (
	"context"
	"fmt"

	"github.com/rogerio-castellano/inventory-orders/internal/models"
	"github.com/rogerio-castellano/inventory-orders/internal/store"
)

type MostShippedProduct struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	ShipmentCount int    `json:"shipment_count"`
}

type Metrics struct {
	TotalProducts      int                `json:"total_products"`
	TotalShipments     int                `json:"total_shipments"`
	NewOrders          int                `json:"new_orders"`
	CancelledOrders    int                `json:"cancelled_orders"`
	OutOfStockCount    int                `json:"out_of_stock_count"`
	MostShippedProduct MostShippedProduct `json:"most_shipped_product"`
}

// DashboardMetrics summarises the catalog and order book for the admin view.
func (l *Ledger) DashboardMetrics(ctx context.Context) (Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counts := []struct {
		dst     *int
		entity  store.Entity
		filters []store.Filter
	}{
		{&m.TotalProducts, store.Products, nil},
		{&m.TotalShipments, store.Shipments, nil},
		{&m.NewOrders, store.Orders, []store.Filter{store.Eq("order_status", string(models.OrderStatusNew))}},
		{&m.CancelledOrders, store.Orders, []store.Filter{store.Eq("order_status", string(models.OrderStatusCancelled))}},
		{&m.OutOfStockCount, store.Products, []store.Filter{store.Eq("qty", 0)}},
	}
	for _, c := range counts {
		if *c.dst, err = l.st.Count(ctx, c.entity, c.filters...); err != nil {
			return Metrics{}, fmt.Errorf("dashboard metrics: %w", err)
		}
	}

	shipments, err := l.st.Find(ctx, store.Shipments, store.Query{})
	if err != nil {
		return Metrics{}, fmt.Errorf("dashboard metrics: %w", err)
	}
	perProduct := map[string]int{}
	for _, s := range shipments {
		id := s.String("product_id")
		perProduct[id]++
		n := perProduct[id]
		top := &m.MostShippedProduct
		if n > top.ShipmentCount || (n == top.ShipmentCount && id < top.ProductID) {
			top.ProductID, top.ShipmentCount = id, n
		}
	}
	if m.MostShippedProduct.ProductID != "" {
		p, err := l.GetProduct(ctx, m.MostShippedProduct.ProductID)
		if err == nil {
			m.MostShippedProduct.Name = p.Name
		}
	}
	return m, nil
}
