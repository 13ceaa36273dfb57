package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rogerio-castellano/inventory-orders/internal/apperr"
)

const defaultQueryTimeout = 3 * time.Second

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implements Store on database/sql. The same value serves plain calls (q is the pool)
// and transaction-scoped calls (q is a *sql.Tx).
type Postgres struct {
	db      *sql.DB
	q       querier
	inTx    bool
	timeout time.Duration
}

// NewPostgres wraps an open pool. A zero timeout falls back to three seconds per statement.
func NewPostgres(db *sql.DB, timeout time.Duration) *Postgres {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Postgres{db: db, q: db, timeout: timeout}
}

func unavailable(op, table string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", apperr.ErrStoreUnavailable, op, table, err)
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if p.inTx {
		return fn(ctx, p)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", apperr.ErrStoreUnavailable, err)
	}
	txStore := &Postgres{db: p.db, q: tx, inTx: true, timeout: p.timeout}

	if err := fn(ctx, txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, e Entity, q Query) ([]Row, error) {
	query, args, err := buildSelect(e, q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("find", e.Table, err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		r, err := scanRow(e, rows)
		if err != nil {
			return nil, unavailable("scan", e.Table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find", e.Table, err)
	}
	return out, nil
}

func scanRow(e Entity, rows *sql.Rows) (Row, error) {
	dest := make([]any, len(e.Columns))
	for i, c := range e.Columns {
		switch c.Kind {
		case KindInt:
			dest[i] = new(sql.NullInt64)
		case KindDecimal:
			dest[i] = new(decimal.NullDecimal)
		case KindTime:
			dest[i] = new(sql.NullTime)
		default:
			dest[i] = new(sql.NullString)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	r := make(Row, len(e.Columns))
	for i, c := range e.Columns {
		switch v := dest[i].(type) {
		case *sql.NullInt64:
			if v.Valid {
				r[c.Name] = int(v.Int64)
			}
		case *decimal.NullDecimal:
			if v.Valid {
				r[c.Name] = v.Decimal
			}
		case *sql.NullTime:
			if v.Valid {
				r[c.Name] = v.Time.UTC()
			}
		case *sql.NullString:
			if v.Valid {
				r[c.Name] = v.String
			}
		}
	}
	return r, nil
}

func (p *Postgres) FindOne(ctx context.Context, e Entity, filters ...Filter) (Row, error) {
	rows, err := p.Find(ctx, e, Query{Filters: filters, Limit: 1})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (p *Postgres) FindWhereIn(ctx context.Context, e Entity, field string, values []string) ([]Row, error) {
	if len(values) == 0 {
		return []Row{}, nil
	}
	return p.Find(ctx, e, Query{Filters: []Filter{In(field, values...)}})
}

func (p *Postgres) Count(ctx context.Context, e Entity, filters ...Filter) (int, error) {
	query, args, err := buildCount(e, filters)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var total int
	if err := p.q.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, unavailable("count", e.Table, err)
	}
	return total, nil
}

func (p *Postgres) exec(ctx context.Context, op, table string, query string, args []any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable(op, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(op, table, err)
	}
	return n, nil
}

func (p *Postgres) InsertOne(ctx context.Context, e Entity, row Row) (int64, error) {
	return p.InsertMany(ctx, e, []Row{row})
}

func (p *Postgres) InsertMany(ctx context.Context, e Entity, rows []Row) (int64, error) {
	query, args, err := buildInsert(e, rows)
	if err != nil {
		return 0, err
	}
	return p.exec(ctx, "insert", e.Table, query, args)
}

func (p *Postgres) UpdateOne(ctx context.Context, e Entity, filters []Filter, patch Row) (int64, error) {
	query, args, err := buildUpdate(e, filters, patch, true)
	if err != nil {
		return 0, err
	}
	return p.exec(ctx, "update", e.Table, query, args)
}

func (p *Postgres) UpdateMany(ctx context.Context, e Entity, filters []Filter, patch Row) (int64, error) {
	query, args, err := buildUpdate(e, filters, patch, false)
	if err != nil {
		return 0, err
	}
	return p.exec(ctx, "update", e.Table, query, args)
}

func (p *Postgres) LockRows(ctx context.Context, e Entity, field string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	query, args, err := buildLock(e, field, values)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return unavailable("lock", e.Table, err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return unavailable("lock", e.Table, err)
	}
	return nil
}

const recomputeQuantitySQL = `
	UPDATE products p
	SET qty = (SELECT COALESCE(SUM(s.qty), 0) FROM shipment_product s
	           WHERE s.product_id = p.product_id)
	        - (SELECT COALESCE(SUM(op.qty), 0) FROM orders_product op
	           WHERE op.product_id = p.product_id
	             AND op.order_id NOT IN (SELECT order_id FROM orders WHERE order_status = 'cancelled')),
	    last_updated = now()
	WHERE p.product_id = ANY(:product_ids)
`

func (p *Postgres) RecomputeQuantity(ctx context.Context, productIDs []string) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	return p.Exec(ctx, recomputeQuantitySQL, map[string]any{"product_ids": productIDs})
}

// Exec runs a raw statement with :name parameters and returns the affected row count.
func (p *Postgres) Exec(ctx context.Context, query string, params map[string]any) (int64, error) {
	bound, args, err := bindNamed(query, params)
	if err != nil {
		return 0, err
	}
	return p.exec(ctx, "exec", "raw statement", bound, args)
}
