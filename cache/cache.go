package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/pricegrid/pricegrid/models"
)

// ResultCache collapses identical concurrent searches into one upstream
// fan-out and serves repeats from the store until they expire.
type ResultCache struct {
	store Store
	group singleflight.Group
}

// NewResultCache wraps a store with single-flight collapsing.
func NewResultCache(store Store) *ResultCache {
	return &ResultCache{store: store}
}

// GetOrCompute returns the cached response for key, or runs compute exactly
// once across concurrent callers with the same key. compute reports whether
// its response may be cached; all-failure responses must not be, so the next
// request retries the merchants instead of replaying the outage.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (*models.SearchResponse, bool, error)) (*models.SearchResponse, error) {
	if hit, ok := c.store.Get(key); ok {
		return cachedCopy(hit), nil
	}

	// The flight runs detached from the winning caller's ctx: when that
	// caller disconnects mid-compute, followers collapsed onto the flight
	// still get the result. compute bounds its own runtime.
	ch := c.group.DoChan(key, func() (any, error) {
		if hit, ok := c.store.Get(key); ok {
			return hit, nil
		}
		resp, cacheable, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.store.Set(key, resp)
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		resp := res.Val.(*models.SearchResponse)
		if res.Shared {
			// Followers of a collapsed flight get the same semantics as a hit.
			return cachedCopy(resp), nil
		}
		return resp, nil
	}
}

func cachedCopy(resp *models.SearchResponse) *models.SearchResponse {
	cp := *resp
	cp.Cached = true
	return &cp
}

// Fingerprint derives the cache key for a search request. Queries are
// trimmed and case-folded and the merchant set is order-insensitive, so
// equivalent requests share one entry.
func Fingerprint(req *models.SearchRequest) string {
	merchants := append([]string(nil), req.Merchants...)
	for i, m := range merchants {
		merchants[i] = strings.ToLower(strings.TrimSpace(m))
	}
	sort.Strings(merchants)

	var b strings.Builder
	fmt.Fprintf(&b, "q=%s|bc=%s|brand=%s|max=%d",
		strings.ToLower(strings.TrimSpace(req.Query)),
		strings.TrimSpace(req.Barcode),
		strings.ToLower(strings.TrimSpace(req.Brand)),
		req.MaxResults)
	if req.MinPrice != nil {
		fmt.Fprintf(&b, "|min=%g", *req.MinPrice)
	}
	if req.MaxPrice != nil {
		fmt.Fprintf(&b, "|maxp=%g", *req.MaxPrice)
	}
	if req.IncludeOutOfStock != nil {
		fmt.Fprintf(&b, "|oos=%t", *req.IncludeOutOfStock)
	}
	fmt.Fprintf(&b, "|m=%s", strings.Join(merchants, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
