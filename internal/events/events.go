// Package events publishes order lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/rogerio-castellano/inventory-orders/internal/models"
)

const (
	OrderCreated   = "order.created"
	OrderCancelled = "order.cancelled"
)

type OrderEvent struct {
	Type       string             `json:"type"`
	OrderID    string             `json:"order_id"`
	Email      string             `json:"email"`
	Status     models.OrderStatus `json:"order_status"`
	Products   []models.LineItem  `json:"products"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func NewOrderEvent(eventType string, o models.OrderWithLines) OrderEvent {
	return OrderEvent{
		Type:       eventType,
		OrderID:    o.OrderID,
		Email:      o.Email,
		Status:     o.OrderStatus,
		Products:   o.Products,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, OrderEvent) error { return nil }

func (Noop) Close() error { return nil }
