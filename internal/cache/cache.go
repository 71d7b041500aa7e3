// Package cache memoizes expensive read queries for a bounded time and lets
// writers invalidate them synchronously.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Op names a cached operation. Keys are built from the op and its arguments.
type Op string

const (
	OpCategoryListing Op = "catalog.listing"
	OpBrands          Op = "catalog.brands"
	OpCampaigns       Op = "campaigns.active"
	OpStockStats      Op = "stock.stats"
	OpLowStock        Op = "stock.low"
)

// ProductOps are the operations whose results depend on product rows.
var ProductOps = []Op{OpCategoryListing, OpBrands, OpStockStats, OpLowStock}

const keySep = "\x1f"

type entry struct {
	value   interface{}
	expires time.Time
}

// Cache is a process-local memoization table.
type Cache struct {
	store *gocache.Cache
	group singleflight.Group
	now   func() time.Time

	// epoch is bumped by every invalidation. A computation started under an
	// older epoch never stores its result.
	mu    sync.Mutex
	epoch uint64
}

func New(cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Key builds the storage key for op and args.
func Key(op Op, args ...interface{}) string {
	var b strings.Builder
	b.WriteString(string(op))
	for _, a := range args {
		b.WriteString(keySep)
		fmt.Fprintf(&b, "%v", a)
	}
	return b.String()
}

// Memoize returns the cached value for (op, args) when present and unexpired,
// otherwise computes it, stores it with now+ttl and returns it. Compute errors
// are returned and not cached. Concurrent misses share one compute, which
// runs detached from the cancellation of the caller that started it.
func Memoize[T any](ctx context.Context, c *Cache, op Op, args []interface{}, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	key := Key(op, args...)
	if v, ok := c.lookup(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		// A value of the wrong type is treated as a miss.
	}

	epoch := c.currentEpoch()
	flightKey := fmt.Sprintf("%d%s%s", epoch, keySep, key)
	v, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		// The flight is shared, so one caller's cancellation must not fail the others.
		value, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(key, value, ttl, epoch)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate removes the entries of op whose argument tuple starts with
// args: the single entry for a full tuple, every entry of op for none.
func (c *Cache) Invalidate(op Op, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++

	prefix := Key(op, args...)
	for key := range c.store.Items() {
		if key == prefix || strings.HasPrefix(key, prefix+keySep) {
			c.store.Delete(key)
		}
	}
}

// InvalidateOps removes every entry of each op.
func (c *Cache) InvalidateOps(ops ...Op) {
	for _, op := range ops {
		c.Invalidate(op)
	}
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.store.Flush()
}

// Len is the number of stored entries, expired or not.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

func (c *Cache) lookup(key string) (interface{}, bool) {
	raw, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	e := raw.(entry)
	if !c.now().Before(e.expires) {
		c.store.Delete(key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *Cache) storeIfCurrent(key string, value interface{}, ttl time.Duration, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	// go-cache expiry only drives background cleanup; reads check e.expires
	// against the injected clock.
	c.store.Set(key, entry{value: value, expires: c.now().Add(ttl)}, ttl)
}
