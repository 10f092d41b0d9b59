package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const defaultQueryTimeout = 10 * time.Second

// Postgres implements Store on database/sql (pgx stdlib driver). Every call
// carries a bounded timeout so one slow backend round trip cannot stall a
// render indefinitely.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB, timeout time.Duration) *Postgres {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Postgres{db: db, timeout: timeout}
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

func applyPredicates(qb sq.SelectBuilder, predicates []sq.Sqlizer) sq.SelectBuilder {
	for _, pred := range predicates {
		qb = qb.Where(pred)
	}
	return qb
}

func (p *Postgres) Select(ctx context.Context, q SelectQuery) ([]Row, error) {
	columns := q.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	qb := applyPredicates(psq.Select(columns...).From(q.Table), q.Predicates)
	if len(q.OrderBy) > 0 {
		qb = qb.OrderBy(q.OrderBy...)
	}
	if q.Limit > 0 {
		qb = qb.Limit(q.Limit)
	}
	if q.Offset > 0 {
		qb = qb.Offset(q.Offset)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select for %s: %w", q.Table, err)
	}

	return p.queryRows(ctx, query, args)
}

func (p *Postgres) Count(ctx context.Context, q SelectQuery) (int, error) {
	qb := applyPredicates(psq.Select("COUNT(*)").From(q.Table), q.Predicates)

	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count for %s: %w", q.Table, err)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var count int
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %s: %w", q.Table, MapPostgresError(err))
	}
	return count, nil
}

func (p *Postgres) Update(ctx context.Context, table string, data map[string]any, match map[string]any) (int64, error) {
	qb := psq.Update(table).SetMap(data)
	if len(match) > 0 {
		qb = qb.Where(sq.Eq(match))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building update for %s: %w", table, err)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating %s: %w", table, MapPostgresError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("updating %s: %w", table, err)
	}
	return affected, nil
}

func (p *Postgres) Upsert(ctx context.Context, table string, data map[string]any, conflictCols []string) error {
	columns := make([]string, 0, len(data))
	for col := range data {
		columns = append(columns, col)
	}
	// Deterministic column order keeps the statement stable.
	sort.Strings(columns)

	values := make([]any, 0, len(columns))
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		values = append(values, data[col])
		if !contains(conflictCols, col) {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	qb := psq.Insert(table).Columns(columns...).Values(values...)
	if len(conflictCols) > 0 && len(updates) > 0 {
		qb = qb.Suffix(fmt.Sprintf(
			"ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(conflictCols, ", "),
			strings.Join(updates, ", "),
		))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("building upsert for %s: %w", table, err)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting %s: %w", table, MapPostgresError(err))
	}
	return nil
}

func (p *Postgres) CallProcedure(ctx context.Context, name string, args ...any) ([]Row, error) {
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("SELECT * FROM %s(%s)", name, strings.Join(placeholders, ", "))

	return p.queryRows(ctx, query, args)
}

func (p *Postgres) queryRows(ctx context.Context, query string, args []any) ([]Row, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", MapPostgresError(err))
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	out := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", MapPostgresError(err))
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", MapPostgresError(err))
	}
	return out, nil
}

// normalizeValue converts driver byte slices to strings so rows can be
// handled and fingerprinted uniformly.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
