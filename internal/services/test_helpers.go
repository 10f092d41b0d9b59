package services

import (
	"context"

	"github.com/alexbespwalker/walker-brain-portal/internal/store"
)

// MockStore implements store.Store with overridable function fields so
// each test wires only the calls it cares about.
type MockStore struct {
	SelectFunc        func(ctx context.Context, q store.SelectQuery) ([]store.Row, error)
	CountFunc         func(ctx context.Context, q store.SelectQuery) (int, error)
	UpdateFunc        func(ctx context.Context, table string, data, match map[string]any) (int64, error)
	UpsertFunc        func(ctx context.Context, table string, data map[string]any, conflictCols []string) error
	CallProcedureFunc func(ctx context.Context, name string, args ...any) ([]store.Row, error)

	// Calls records procedure invocations in order, for assertions.
	Calls []string
}

func (m *MockStore) Select(ctx context.Context, q store.SelectQuery) ([]store.Row, error) {
	m.Calls = append(m.Calls, "select:"+q.Table)
	if m.SelectFunc != nil {
		return m.SelectFunc(ctx, q)
	}
	return nil, nil
}

func (m *MockStore) Count(ctx context.Context, q store.SelectQuery) (int, error) {
	m.Calls = append(m.Calls, "count:"+q.Table)
	if m.CountFunc != nil {
		return m.CountFunc(ctx, q)
	}
	return 0, nil
}

func (m *MockStore) Update(ctx context.Context, table string, data, match map[string]any) (int64, error) {
	m.Calls = append(m.Calls, "update:"+table)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, table, data, match)
	}
	return 0, nil
}

func (m *MockStore) Upsert(ctx context.Context, table string, data map[string]any, conflictCols []string) error {
	m.Calls = append(m.Calls, "upsert:"+table)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, table, data, conflictCols)
	}
	return nil
}

func (m *MockStore) CallProcedure(ctx context.Context, name string, args ...any) ([]store.Row, error) {
	m.Calls = append(m.Calls, "proc:"+name)
	if m.CallProcedureFunc != nil {
		return m.CallProcedureFunc(ctx, name, args...)
	}
	return nil, nil
}
