package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"permit-fees/core/types"
)

// Cached memoizes a slower Accessor for a fixed TTL. Errors are never
// cached, so a failed fetch is retried by the next caller.
type Cached struct {
	next  Accessor
	cache *cache.Cache
}

// NewCached wraps next with a TTL cache
func NewCached(next Accessor, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Flush drops every cached entry
func (c *Cached) Flush() {
	c.cache.Flush()
}

// ItemCount returns the number of cached entries
func (c *Cached) ItemCount() int {
	return c.cache.ItemCount()
}

func cached[T any](c *Cached, key string, load func() (T, error)) (T, error) {
	if v, found := c.cache.Get(key); found {
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.cache.Set(key, v, cache.DefaultExpiration)
	return v, nil
}

func (c *Cached) ResolveJurisdiction(ctx context.Context, name, stateCode string) (*types.Jurisdiction, error) {
	return cached(c, "resolve:"+strings.ToLower(name)+"|"+strings.ToUpper(stateCode), func() (*types.Jurisdiction, error) {
		return c.next.ResolveJurisdiction(ctx, name, stateCode)
	})
}

func (c *Cached) GetJurisdiction(ctx context.Context, id string) (*types.Jurisdiction, error) {
	return cached(c, "jurisdiction:"+id, func() (*types.Jurisdiction, error) {
		return c.next.GetJurisdiction(ctx, id)
	})
}

func (c *Cached) ListJurisdictions(ctx context.Context, stateCode string) ([]types.Jurisdiction, error) {
	return cached(c, "jurisdictions:"+strings.ToUpper(stateCode), func() ([]types.Jurisdiction, error) {
		return c.next.ListJurisdictions(ctx, stateCode)
	})
}

func (c *Cached) ListServiceAreas(ctx context.Context, jurisdictionID string) ([]types.ServiceArea, error) {
	return cached(c, "areas:"+jurisdictionID, func() ([]types.ServiceArea, error) {
		return c.next.ListServiceAreas(ctx, jurisdictionID)
	})
}

func (c *Cached) FetchFees(ctx context.Context, jurisdictionID string, serviceAreaIDs []string) ([]types.FeeDefinition, error) {
	ids := append([]string(nil), serviceAreaIDs...)
	sort.Strings(ids)
	key := "fees:" + jurisdictionID + ":" + strings.Join(ids, ",")
	return cached(c, key, func() ([]types.FeeDefinition, error) {
		return c.next.FetchFees(ctx, jurisdictionID, serviceAreaIDs)
	})
}

func (c *Cached) ListUnitLabels(ctx context.Context) ([]string, error) {
	return cached(c, "unit_labels", func() ([]string, error) {
		return c.next.ListUnitLabels(ctx)
	})
}

func (c *Cached) ListCategories(ctx context.Context) ([]string, error) {
	return cached(c, "categories", func() ([]string, error) {
		return c.next.ListCategories(ctx)
	})
}

func (c *Cached) ListStates(ctx context.Context) ([]types.State, error) {
	return cached(c, "states", func() ([]types.State, error) {
		return c.next.ListStates(ctx)
	})
}

func (c *Cached) Stats(ctx context.Context, jurisdictionID string) (*types.JurisdictionStats, error) {
	return cached(c, "stats:"+jurisdictionID, func() (*types.JurisdictionStats, error) {
		return c.next.Stats(ctx, jurisdictionID)
	})
}

var _ Accessor = (*Cached)(nil)
