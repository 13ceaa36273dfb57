package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rogerio-castellano/inventory-orders/internal/apperr"
)

// Memory is an in-process Store. Transactions hold the write lock for their whole run and roll
// back by restoring a snapshot; calls outside a transaction take the same lock, so they never
// interleave with an open transaction nor see its uncommitted writes. It keeps nothing across
// restarts.
type Memory struct {
	mu   sync.RWMutex
	data *memoryTables
}

// memoryTables holds the rows and implements Store without locking. Memory guards it; a
// transaction-scoped handle uses it directly while the transaction owns the lock.
type memoryTables struct {
	tables map[string][]Row
	now    func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: &memoryTables{
		tables: map[string][]Row{},
		now:    func() time.Time { return time.Now().UTC() },
	}}
}

func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.snapshot()
	if err := fn(ctx, m.data); err != nil {
		m.data.tables = snapshot
		return err
	}
	return nil
}

func (m *Memory) Find(ctx context.Context, e Entity, q Query) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Find(ctx, e, q)
}

func (m *Memory) FindOne(ctx context.Context, e Entity, filters ...Filter) (Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.FindOne(ctx, e, filters...)
}

func (m *Memory) FindWhereIn(ctx context.Context, e Entity, field string, values []string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.FindWhereIn(ctx, e, field, values)
}

func (m *Memory) Count(ctx context.Context, e Entity, filters ...Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Count(ctx, e, filters...)
}

func (m *Memory) InsertOne(ctx context.Context, e Entity, row Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.InsertOne(ctx, e, row)
}

func (m *Memory) InsertMany(ctx context.Context, e Entity, rows []Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.InsertMany(ctx, e, rows)
}

func (m *Memory) UpdateOne(ctx context.Context, e Entity, filters []Filter, patch Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.UpdateOne(ctx, e, filters, patch)
}

func (m *Memory) UpdateMany(ctx context.Context, e Entity, filters []Filter, patch Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.UpdateMany(ctx, e, filters, patch)
}

func (m *Memory) RecomputeQuantity(ctx context.Context, productIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.RecomputeQuantity(ctx, productIDs)
}

func (m *Memory) LockRows(ctx context.Context, e Entity, field string, values []string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.LockRows(ctx, e, field, values)
}

// WithinTx on a transaction-scoped handle joins the running transaction.
func (m *memoryTables) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, m)
}

func (m *memoryTables) snapshot() map[string][]Row {
	out := make(map[string][]Row, len(m.tables))
	for table, rows := range m.tables {
		copied := make([]Row, len(rows))
		for i, r := range rows {
			copied[i] = r.clone()
		}
		out[table] = copied
	}
	return out
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

func (m *memoryTables) Find(ctx context.Context, e Entity, q Query) ([]Row, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	var sortCol Column
	if q.SortBy != nil {
		col, err := e.column(q.SortBy.Field)
		if err != nil {
			return nil, err
		}
		sortCol = col
	}

	var matched []Row
	for _, r := range m.tables[e.Table] {
		ok, err := matches(e, r, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r.clone())
		}
	}

	if q.SortBy != nil {
		slices.SortStableFunc(matched, func(a, b Row) int {
			c := compareValues(sortCol.Kind, a[sortCol.Name], b[sortCol.Name])
			if q.SortBy.Desc {
				return -c
			}
			return c
		})
	}

	if q.Skip > 0 {
		if q.Skip >= len(matched) {
			return []Row{}, nil
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	if matched == nil {
		matched = []Row{}
	}
	return matched, nil
}

func (m *memoryTables) FindOne(ctx context.Context, e Entity, filters ...Filter) (Row, error) {
	rows, err := m.Find(ctx, e, Query{Filters: filters, Limit: 1})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (m *memoryTables) FindWhereIn(ctx context.Context, e Entity, field string, values []string) ([]Row, error) {
	return m.Find(ctx, e, Query{Filters: []Filter{In(field, values...)}})
}

func (m *memoryTables) Count(ctx context.Context, e Entity, filters ...Filter) (int, error) {
	rows, err := m.Find(ctx, e, Query{Filters: filters})
	return len(rows), err
}

func (m *memoryTables) InsertOne(ctx context.Context, e Entity, row Row) (int64, error) {
	return m.InsertMany(ctx, e, []Row{row})
}

func (m *memoryTables) InsertMany(ctx context.Context, e Entity, rows []Row) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	normalized := make([]Row, 0, len(rows))
	for _, r := range rows {
		nr, err := normalizeRow(e, r)
		if err != nil {
			return 0, err
		}
		normalized = append(normalized, nr)
	}

	var inserted int64
	for _, r := range normalized {
		if m.hasKey(e, r) {
			continue
		}
		m.tables[e.Table] = append(m.tables[e.Table], r)
		inserted++
	}
	return inserted, nil
}

func (m *memoryTables) hasKey(e Entity, r Row) bool {
	for _, existing := range m.tables[e.Table] {
		same := true
		for _, k := range e.Key {
			if existing[k] != r[k] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

func (m *memoryTables) UpdateOne(ctx context.Context, e Entity, filters []Filter, patch Row) (int64, error) {
	return m.update(ctx, e, filters, patch, 1)
}

func (m *memoryTables) UpdateMany(ctx context.Context, e Entity, filters []Filter, patch Row) (int64, error) {
	return m.update(ctx, e, filters, patch, 0)
}

func (m *memoryTables) update(ctx context.Context, e Entity, filters []Filter, patch Row, limit int) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, fmt.Errorf("update %s: empty patch", e.Table)
	}
	np, err := normalizeRow(e, patch)
	if err != nil {
		return 0, err
	}

	var changed int64
	for _, r := range m.tables[e.Table] {
		ok, err := matches(e, r, filters)
		if err != nil {
			return changed, err
		}
		if !ok {
			continue
		}
		for k, v := range np {
			r[k] = v
		}
		changed++
		if limit > 0 && changed >= int64(limit) {
			break
		}
	}
	return changed, nil
}

func (m *memoryTables) RecomputeQuantity(ctx context.Context, productIDs []string) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	wanted := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}

	cancelled := map[string]bool{}
	for _, o := range m.tables[Orders.Table] {
		if o.String("order_status") == "cancelled" {
			cancelled[o.String("order_id")] = true
		}
	}
	received := map[string]int{}
	for _, s := range m.tables[Shipments.Table] {
		received[s.String("product_id")] += s.Int("qty")
	}
	sold := map[string]int{}
	for _, li := range m.tables[OrderLineItems.Table] {
		if cancelled[li.String("order_id")] {
			continue
		}
		sold[li.String("product_id")] += li.Int("qty")
	}

	var updated int64
	now := m.now()
	for _, p := range m.tables[Products.Table] {
		id := p.String("product_id")
		if !wanted[id] {
			continue
		}
		p["qty"] = received[id] - sold[id]
		p["last_updated"] = now
		updated++
	}
	return updated, nil
}

func (m *memoryTables) LockRows(ctx context.Context, e Entity, field string, values []string) error {
	if _, err := e.column(field); err != nil {
		return err
	}
	return checkCtx(ctx)
}

func matches(e Entity, r Row, filters []Filter) (bool, error) {
	for _, f := range filters {
		col, err := e.column(f.Field)
		if err != nil {
			return false, err
		}
		found := false
		for _, v := range f.Values {
			nv, err := normalize(col.Kind, v)
			if err != nil {
				return false, fmt.Errorf("filter %s.%s: %w", e.Table, f.Field, err)
			}
			if compareValues(col.Kind, r[col.Name], nv) == 0 {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}
