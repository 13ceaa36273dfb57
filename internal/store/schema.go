package store

import (
	"errors"
	"fmt"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindDecimal
	KindTime
)

type Column struct {
	Name string
	Kind Kind
}

// Entity describes one table: its name, the columns callers may touch and the columns forming
// its unique key.
type Entity struct {
	Table   string
	Key     []string
	Columns []Column
}

var ErrUnknownColumn = errors.New("unknown column")

func (e Entity) column(name string) (Column, error) {
	for _, c := range e.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("%w %q on %s", ErrUnknownColumn, name, e.Table)
}

func (e Entity) columnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

var Products = Entity{
	Table: "products",
	Key:   []string{"product_id"},
	Columns: []Column{
		{"product_id", KindText},
		{"name", KindText},
		{"description", KindText},
		{"price", KindDecimal},
		{"qty", KindInt},
		{"created", KindTime},
		{"last_updated", KindTime},
	},
}

var Shipments = Entity{
	Table: "shipment_product",
	Key:   []string{"shipment_id"},
	Columns: []Column{
		{"shipment_id", KindText},
		{"product_id", KindText},
		{"qty", KindInt},
		{"created", KindTime},
	},
}

var Orders = Entity{
	Table: "orders",
	Key:   []string{"order_id"},
	Columns: []Column{
		{"order_id", KindText},
		{"email", KindText},
		{"order_status", KindText},
		{"created", KindTime},
		{"last_updated", KindTime},
	},
}

var OrderLineItems = Entity{
	Table: "orders_product",
	Key:   []string{"order_id", "product_id"},
	Columns: []Column{
		{"order_id", KindText},
		{"product_id", KindText},
		{"qty", KindInt},
		{"created", KindTime},
	},
}
