package store

import (
	"cmp"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one record keyed by column name. Values are normalised per column kind: string, int,
// decimal.Decimal or time.Time (UTC). A missing or NULL column reads as the zero value.
type Row map[string]any

func (r Row) String(col string) string {
	v, _ := r[col].(string)
	return v
}

func (r Row) Int(col string) int {
	v, _ := r[col].(int)
	return v
}

func (r Row) Decimal(col string) decimal.Decimal {
	v, _ := r[col].(decimal.Decimal)
	return v
}

func (r Row) Time(col string) time.Time {
	v, _ := r[col].(time.Time)
	return v
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// normalizeRow checks every column against e and converts values to their canonical Go type.
func normalizeRow(e Entity, r Row) (Row, error) {
	out := make(Row, len(r))
	for name, v := range r {
		col, err := e.column(name)
		if err != nil {
			return nil, err
		}
		nv, err := normalize(col.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("column %s.%s: %w", e.Table, name, err)
		}
		out[name] = nv
	}
	return out, nil
}

func normalize(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindText:
		switch t := v.(type) {
		case string:
			return t, nil
		case []byte:
			return string(t), nil
		}
	case KindInt:
		switch t := v.(type) {
		case int:
			return t, nil
		case int32:
			return int(t), nil
		case int64:
			return int(t), nil
		}
	case KindDecimal:
		switch t := v.(type) {
		case decimal.Decimal:
			return t, nil
		case string:
			return decimal.NewFromString(t)
		case float64:
			return decimal.NewFromFloat(t), nil
		case int:
			return decimal.NewFromInt(int64(t)), nil
		case int64:
			return decimal.NewFromInt(t), nil
		}
	case KindTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

// compareValues orders two normalised values of the same kind. nil sorts first.
func compareValues(kind Kind, a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch kind {
	case KindInt:
		return cmp.Compare(a.(int), b.(int))
	case KindDecimal:
		return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
	case KindTime:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		return cmp.Compare(a.(string), b.(string))
	}
}
