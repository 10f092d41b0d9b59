// Package store defines the relational store collaborator: the narrow
// interface the query and session layers use to reach the analysis
// database, plus its PostgreSQL implementation.
package store

import (
	"context"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Row is one result row keyed by column name. Values are loosely typed at
// this boundary; models.Normalize* helpers produce typed records.
type Row map[string]any

// String returns the value under key as a string, or "" when absent/null.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return ""
	}
}

// Int returns the value under key coerced to int; database integers arrive
// as int64 from the driver.
func (r Row) Int(key string) int {
	switch v := r[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func (r Row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		return v == "t" || v == "true"
	default:
		return false
	}
}

// Time returns the value under key as a time.Time; string timestamps are
// parsed as RFC 3339. The zero time signals absence.
func (r Row) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// SelectQuery describes one read. Predicates come pre-compiled from the
// filter compiler; the store never sees raw UI input.
type SelectQuery struct {
	Table      string
	Columns    []string
	Predicates []sq.Sqlizer
	OrderBy    []string
	Limit      uint64
	Offset     uint64
}

// Store is the store collaborator from the portal core's point of view.
// Implementations must be safe for concurrent use.
type Store interface {
	// Select runs a filtered read and returns the matching rows.
	Select(ctx context.Context, q SelectQuery) ([]Row, error)

	// Count returns the exact number of rows matching the query's
	// predicates, ignoring columns, order and pagination.
	Count(ctx context.Context, q SelectQuery) (int, error)

	// Update mutates rows matching the match map and reports how many
	// rows were affected.
	Update(ctx context.Context, table string, data map[string]any, match map[string]any) (int64, error)

	// Upsert inserts data, updating the existing row on conflict with
	// the given key columns.
	Upsert(ctx context.Context, table string, data map[string]any, conflictCols []string) error

	// CallProcedure invokes a stored procedure returning zero or more
	// rows. Used for authentication, session CRUD and full-text search.
	CallProcedure(ctx context.Context, name string, args ...any) ([]Row, error)
}
