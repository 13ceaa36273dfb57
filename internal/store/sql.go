package store

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// sqlBuilder accumulates positional arguments while a statement is assembled.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) where(e Entity, filters []Filter) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		col, err := e.column(f.Field)
		if err != nil {
			return "", err
		}
		switch f.Op {
		case OpEq:
			if len(f.Values) != 1 {
				return "", fmt.Errorf("filter %s: equality takes one value", f.Field)
			}
			if f.Values[0] == nil {
				conds = append(conds, col.Name+" IS NULL")
				continue
			}
			conds = append(conds, col.Name+" = "+b.bind(f.Values[0]))
		case OpIn:
			if len(f.Values) == 0 {
				conds = append(conds, "FALSE")
				continue
			}
			placeholders := make([]string, len(f.Values))
			for i, v := range f.Values {
				placeholders[i] = b.bind(v)
			}
			conds = append(conds, fmt.Sprintf("%s IN (%s)", col.Name, strings.Join(placeholders, ", ")))
		default:
			return "", fmt.Errorf("filter %s: unknown operator %d", f.Field, f.Op)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

func buildSelect(e Entity, q Query) (string, []any, error) {
	var b sqlBuilder
	where, err := b.where(e, q.Filters)
	if err != nil {
		return "", nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(e.columnNames(), ", "), e.Table, where)

	if q.SortBy != nil {
		col, err := e.column(q.SortBy.Field)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if q.SortBy.Desc {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", col.Name, dir)
	}
	if q.Limit > 0 {
		query += " LIMIT " + b.bind(q.Limit)
	}
	if q.Skip > 0 {
		query += " OFFSET " + b.bind(q.Skip)
	}
	return query, b.args, nil
}

func buildCount(e Entity, filters []Filter) (string, []any, error) {
	var b sqlBuilder
	where, err := b.where(e, filters)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", e.Table, where), b.args, nil
}

// buildInsert writes every row in one statement. Rows colliding with an existing key are
// skipped, so the affected count tells the caller how many were actually stored.
func buildInsert(e Entity, rows []Row) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, errors.New("insert: no rows")
	}
	var cols []string
	for _, c := range e.Columns {
		if _, ok := rows[0][c.Name]; ok {
			cols = append(cols, c.Name)
		}
	}
	for name := range rows[0] {
		if _, err := e.column(name); err != nil {
			return "", nil, err
		}
	}

	var b sqlBuilder
	values := make([]string, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			return "", nil, fmt.Errorf("insert %s: row %d has different columns", e.Table, i)
		}
		placeholders := make([]string, len(cols))
		for j, c := range cols {
			v, ok := r[c]
			if !ok {
				return "", nil, fmt.Errorf("insert %s: row %d is missing %s", e.Table, i, c)
			}
			placeholders[j] = b.bind(v)
		}
		values[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT DO NOTHING",
		e.Table, strings.Join(cols, ", "), strings.Join(values, ", "))
	return query, b.args, nil
}

// buildUpdate sets patch on the rows matching filters. With one set, only the first matching
// row (by physical location) is touched.
func buildUpdate(e Entity, filters []Filter, patch Row, one bool) (string, []any, error) {
	if len(patch) == 0 {
		return "", nil, fmt.Errorf("update %s: empty patch", e.Table)
	}
	var b sqlBuilder
	var sets []string
	for _, c := range e.Columns {
		if v, ok := patch[c.Name]; ok {
			sets = append(sets, c.Name+" = "+b.bind(v))
		}
	}
	if len(sets) != len(patch) {
		for name := range patch {
			if _, err := e.column(name); err != nil {
				return "", nil, err
			}
		}
	}

	where, err := b.where(e, filters)
	if err != nil {
		return "", nil, err
	}
	query := fmt.Sprintf("UPDATE %s SET %s", e.Table, strings.Join(sets, ", "))
	if one {
		query += fmt.Sprintf(" WHERE ctid = (SELECT ctid FROM %s%s LIMIT 1)", e.Table, where)
	} else {
		query += where
	}
	return query, b.args, nil
}

func buildLock(e Entity, field string, values []string) (string, []any, error) {
	var b sqlBuilder
	where, err := b.where(e, []Filter{In(field, values...)})
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT %s FROM %s%s FOR UPDATE", strings.Join(e.Key, ", "), e.Table, where), b.args, nil
}

var namedParam = regexp.MustCompile(`(^|[^:]):([A-Za-z_][A-Za-z0-9_]*)`)

// bindNamed rewrites :name placeholders to $n and returns the matching argument list. A name
// used twice binds once. Postgres casts (::type) are left alone.
func bindNamed(query string, params map[string]any) (string, []any, error) {
	var (
		b       sqlBuilder
		seen    = map[string]string{}
		missing []string
	)
	out := namedParam.ReplaceAllStringFunc(query, func(m string) string {
		sub := namedParam.FindStringSubmatch(m)
		prefix, name := sub[1], sub[2]
		if ph, ok := seen[name]; ok {
			return prefix + ph
		}
		v, ok := params[name]
		if !ok {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			return m
		}
		ph := b.bind(v)
		seen[name] = ph
		return prefix + ph
	})
	if len(missing) > 0 {
		return "", nil, fmt.Errorf("query parameters not provided: %s", strings.Join(missing, ", "))
	}
	return out, b.args, nil
}
