package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexbespwalker/walker-brain-portal/internal/cache"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
)

// TTLConfig maps cache classes to their time-to-live.
type TTLConfig struct {
	Dictionary time.Duration // distinct-value lookups
	Listing    time.Duration // paginated row listings
	Aggregate  time.Duration // aggregate/statistics queries
}

// DefaultTTLs matches the portal's historical cache windows.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		Dictionary: time.Hour,
		Listing:    5 * time.Minute,
		Aggregate:  10 * time.Minute,
	}
}

func (c TTLConfig) For(class Class) time.Duration {
	switch class {
	case ClassDictionary:
		return c.Dictionary
	case ClassAggregate:
		return c.Aggregate
	default:
		return c.Listing
	}
}

// Executor runs compiled queries against the store with a shared TTL cache
// in front. Misses for one fingerprint are coalesced; store failures are
// surfaced, never cached, and never replaced by an empty result.
type Executor struct {
	store  store.Store
	cache  *cache.Cache
	ttl    TTLConfig
	logger *slog.Logger
}

func NewExecutor(st store.Store, c *cache.Cache, ttl TTLConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: st, cache: c, ttl: ttl, logger: logger}
}

// Execute returns the rows for key and whether they came from cache.
func (e *Executor) Execute(ctx context.Context, key Key) ([]store.Row, bool, error) {
	fingerprint := key.Fingerprint()

	value, hit, err := e.cache.GetOrFill(fingerprint, e.ttl.For(key.Class), func() (any, error) {
		return e.fetch(ctx, key)
	})
	if err != nil {
		return nil, false, err
	}

	rows, ok := value.([]store.Row)
	if !ok {
		// A corrupted slot must never block the read path: fall back to
		// a live fetch and repair the entry.
		e.logger.Warn("cache entry had unexpected type, refetching",
			slog.String("key", fingerprint))
		e.cache.Invalidate(fingerprint)
		rows, err = e.fetch(ctx, key)
		if err != nil {
			return nil, false, err
		}
		return rows, false, nil
	}
	return rows, hit, nil
}

// Count returns the exact row count for key's filters, cached independently
// of the row fetch under the pagination-stripped fingerprint.
func (e *Executor) Count(ctx context.Context, key Key) (int, bool, error) {
	countKey := key.WithoutPagination()
	fingerprint := "count:" + countKey.Fingerprint()

	value, hit, err := e.cache.GetOrFill(fingerprint, e.ttl.For(key.Class), func() (any, error) {
		predicates, err := Compile(countKey.Filters)
		if err != nil {
			return nil, err
		}
		return e.store.Count(ctx, store.SelectQuery{
			Table:      countKey.Table,
			Predicates: predicates,
		})
	})
	if err != nil {
		return 0, false, err
	}

	count, ok := value.(int)
	if !ok {
		e.logger.Warn("cached count had unexpected type, refetching",
			slog.String("key", fingerprint))
		e.cache.Invalidate(fingerprint)
		predicates, err := Compile(countKey.Filters)
		if err != nil {
			return 0, false, err
		}
		count, err = e.store.Count(ctx, store.SelectQuery{Table: countKey.Table, Predicates: predicates})
		if err != nil {
			return 0, false, err
		}
		return count, false, nil
	}
	return count, hit, nil
}

// Invalidate drops every cached result whose key matches the table/tag
// prefix. Required after any write so the next read reflects it.
func (e *Executor) Invalidate(prefix string) int {
	removed := e.cache.Invalidate(prefix) + e.cache.Invalidate("count:"+prefix)
	if removed > 0 {
		e.logger.Debug("cache invalidated",
			slog.String("prefix", prefix),
			slog.Int("entries", removed))
	}
	return removed
}

func (e *Executor) fetch(ctx context.Context, key Key) ([]store.Row, error) {
	predicates, err := Compile(key.Filters)
	if err != nil {
		return nil, err
	}
	rows, err := e.store.Select(ctx, store.SelectQuery{
		Table:      key.Table,
		Columns:    key.Columns,
		Predicates: predicates,
		OrderBy:    key.OrderBy,
		Limit:      key.Limit,
		Offset:     key.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("executing %s query: %w", key.Table, err)
	}
	return rows, nil
}
