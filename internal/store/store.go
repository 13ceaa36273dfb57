// Package store is the relational store contract used by the inventory ledger and the order
// workflow, with a PostgreSQL backend and an in-memory backend.
package store

import "context"

// Op tags a Filter.
type Op int

const (
	OpEq Op = iota
	OpIn
)

// Filter is a single condition on a column: equality or set membership.
type Filter struct {
	Field  string
	Op     Op
	Values []any
}

func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Values: []any{value}}
}

func In[T any](field string, values ...T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Field: field, Op: OpIn, Values: vs}
}

type Sort struct {
	Field string
	Desc  bool
}

// Query selects rows matching all Filters. A zero Limit means no limit.
type Query struct {
	Filters []Filter
	SortBy  *Sort
	Limit   int
	Skip    int
}

// Store is implemented by Postgres and Memory. Counts returned by writes are affected rows:
// inserts that collide with an existing key are skipped and not counted, updates count
// matched rows.
type Store interface {
	Find(ctx context.Context, e Entity, q Query) ([]Row, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, e Entity, filters ...Filter) (Row, error)
	FindWhereIn(ctx context.Context, e Entity, field string, values []string) ([]Row, error)
	Count(ctx context.Context, e Entity, filters ...Filter) (int, error)

	InsertOne(ctx context.Context, e Entity, row Row) (int64, error)
	InsertMany(ctx context.Context, e Entity, rows []Row) (int64, error)
	UpdateOne(ctx context.Context, e Entity, filters []Filter, patch Row) (int64, error)
	UpdateMany(ctx context.Context, e Entity, filters []Filter, patch Row) (int64, error)

	// RecomputeQuantity sets products.qty to received shipments minus units on orders that are
	// not cancelled, for the given products only. It returns the number of products updated.
	RecomputeQuantity(ctx context.Context, productIDs []string) (int64, error)

	// LockRows blocks concurrent writers on the matching rows until the surrounding
	// transaction ends. Outside a transaction it only checks the rows can be read.
	LockRows(ctx context.Context, e Entity, field string, values []string) error

	// WithinTx runs fn against a transaction-scoped Store. Returning an error rolls back every
	// write fn made. Calling WithinTx on a transaction-scoped Store joins that transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
