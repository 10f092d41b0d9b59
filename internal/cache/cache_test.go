package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexbespwalker/walker-brain-portal/internal/clock"
)

func newTestCache() (*Cache, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	return New(clk), clk
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", 42, time.Minute)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCache_LazyExpiry(t *testing.T) {
	c, clk := newTestCache()
	c.Set("k", "v", 5*time.Minute)

	clk.Advance(5*time.Minute - time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry younger than TTL must survive")

	clk.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry at TTL age must expire")
	assert.Equal(t, 0, c.Len(), "expired entry is deleted on read")
}

func TestCache_GetOrFill(t *testing.T) {
	c, _ := newTestCache()

	var fills int
	v, hit, err := c.GetOrFill("k", time.Minute, func() (any, error) {
		fills++
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", v)

	v, hit, err = c.GetOrFill("k", time.Minute, func() (any, error) {
		fills++
		return "unexpected", nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, fills)
}

func TestCache_GetOrFill_ErrorNotCached(t *testing.T) {
	c, _ := newTestCache()
	boom := errors.New("backend down")

	_, _, err := c.GetOrFill("k", time.Minute, func() (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	// The next attempt must retry the fill, not serve the failure.
	v, hit, err := c.GetOrFill("k", time.Minute, func() (any, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "recovered", v)
}

func TestCache_GetOrFill_CoalescesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache()

	var fills atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.GetOrFill("shared", time.Minute, func() (any, error) {
				fills.Add(1)
				<-release
				return "one trip", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "one trip", v)
		}()
	}

	// Give the goroutines a moment to pile onto the flight before the
	// first fill completes.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fills.Load(), "concurrent misses must share one fill")
}

func TestCache_InvalidateByPrefix(t *testing.T) {
	c, _ := newTestCache()
	c.Set("analysis_results:rows:aaa", 1, time.Minute)
	c.Set("analysis_results:agg:bbb", 2, time.Minute)
	c.Set("count:analysis_results:rows:ccc", 3, time.Minute)
	c.Set("testimonial_pipeline:rows:ddd", 4, time.Minute)

	removed := c.Invalidate("analysis_results")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("testimonial_pipeline:rows:ddd")
	assert.True(t, ok, "other tables must be untouched")
	_, ok = c.Get("count:analysis_results:rows:ccc")
	assert.True(t, ok, "count keys need their own prefix pass")
}

func TestCache_InvalidateDuringFillDropsStaleResult(t *testing.T) {
	c, _ := newTestCache()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		v, hit, err := c.GetOrFill("testimonial_pipeline:rows:aaa", time.Minute, func() (any, error) {
			close(started)
			<-release
			return "pre-write rows", nil
		})
		// The caller still gets its result; it just isn't cached.
		assert.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "pre-write rows", v)
	}()

	<-started
	c.Invalidate("testimonial_pipeline")
	close(release)
	<-done

	_, ok := c.Get("testimonial_pipeline:rows:aaa")
	assert.False(t, ok, "a fill overlapping an invalidation must not land")

	// The next fill runs after the write and caches normally.
	v, hit, err := c.GetOrFill("testimonial_pipeline:rows:aaa", time.Minute, func() (any, error) {
		return "post-write rows", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "post-write rows", v)
	_, ok = c.Get("testimonial_pipeline:rows:aaa")
	assert.True(t, ok)
}

func TestCache_Sweep(t *testing.T) {
	c, clk := newTestCache()
	c.Set("short", 1, time.Minute)
	c.Set("long", 2, time.Hour)

	clk.Advance(2 * time.Minute)
	removed := c.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("long")
	assert.True(t, ok)
}
