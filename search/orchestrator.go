// Package search runs the merchant fan-out: one query dispatched to every
// selected source concurrently, partial failures tolerated, results priced,
// filtered and ranked into a single comparable list.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricegrid/pricegrid/cache"
	"github.com/pricegrid/pricegrid/merchant"
	"github.com/pricegrid/pricegrid/models"
	"github.com/pricegrid/pricegrid/pricing"
)

// Searcher is one merchant source as the orchestrator sees it.
type Searcher interface {
	Name() string
	Search(ctx context.Context, q merchant.Query) (*merchant.Result, error)
}

// Selector resolves requested merchant names into searchers.
type Selector interface {
	Select(names []string) []Searcher
}

// registrySelector adapts the concrete registry to the Selector interface.
type registrySelector struct {
	reg *merchant.Registry
}

func (s registrySelector) Select(names []string) []Searcher {
	adapters := s.reg.Select(names)
	out := make([]Searcher, len(adapters))
	for i, a := range adapters {
		out[i] = a
	}
	return out
}

// Orchestrator coordinates one search end to end.
type Orchestrator struct {
	selector   Selector
	normalizer *pricing.Normalizer
	cache      *cache.ResultCache

	// deadline bounds the whole fan-out. Sources still running when it
	// expires are reported as timed out; whatever finished is returned.
	deadline time.Duration
}

// New builds an orchestrator over the merchant registry.
func New(reg *merchant.Registry, n *pricing.Normalizer, c *cache.ResultCache, deadline time.Duration) *Orchestrator {
	return &Orchestrator{
		selector:   registrySelector{reg: reg},
		normalizer: n,
		cache:      c,
		deadline:   deadline,
	}
}

// Search answers one search request. It returns an error only for requests
// that cannot be attempted at all; fan-out outcomes, including total
// failure, are reported inside the response.
func (o *Orchestrator) Search(ctx context.Context, req *models.SearchRequest, loc *models.Location) (*models.SearchResponse, error) {
	req.Defaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	searchers := o.selector.Select(req.Merchants)
	if len(searchers) == 0 {
		return nil, models.NewAppError(models.ErrCodeInvalidQuery,
			"no enabled merchants match the request", nil)
	}

	// Totals depend on the buyer's state, so the location is part of the
	// cache identity.
	key := cache.Fingerprint(req)
	if loc != nil && loc.State != "" {
		key = fmt.Sprintf("%s:%s", key, strings.ToUpper(loc.State))
	}

	return o.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*models.SearchResponse, bool, error) {
		resp := o.fanOut(ctx, req, searchers, loc)
		// A response carrying a whole-query error must not be replayed
		// from cache; the next attempt should hit the merchants again.
		return resp, resp.Error == nil, nil
	})
}

type outcome struct {
	name   string
	result *merchant.Result
	err    error
}

func (o *Orchestrator) fanOut(ctx context.Context, req *models.SearchRequest, searchers []Searcher, loc *models.Location) *models.SearchResponse {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	q := merchant.Query{
		Text:       strings.TrimSpace(req.Query),
		Barcode:    strings.TrimSpace(req.Barcode),
		MaxResults: req.MaxResults,
	}

	// The channel is buffered for every searcher so that a straggler
	// finishing after the deadline can still send and exit; its result is
	// simply never received.
	outcomes := make(chan outcome, len(searchers))
	for _, s := range searchers {
		go func(s Searcher) {
			res, err := s.Search(ctx, q)
			outcomes <- outcome{name: s.Name(), result: res, err: err}
		}(s)
	}

	var (
		raws      []models.RawListing
		statuses  []models.MerchantStatus
		successes int
	)
	reported := make(map[string]bool, len(searchers))
collect:
	for range searchers {
		var oc outcome
		select {
		case oc = <-outcomes:
		case <-ctx.Done():
			// The deadline bounds the whole response even when an adapter
			// never checks its ctx. Anything that has not reported by now
			// is counted as timed out below.
			break collect
		}
		reported[oc.name] = true
		statuses = append(statuses, o.statusFor(oc))
		if oc.err != nil {
			slog.Warn("merchant search failed",
				"merchant", oc.name, "error", oc.err)
			continue
		}
		successes++
		raws = append(raws, oc.result.Listings...)
	}

	// Requested merchants that never joined the fan-out (unknown or
	// disabled) are surfaced too, so the caller sees the effective set.
	ran := make(map[string]bool, len(searchers))
	for _, s := range searchers {
		ran[s.Name()] = true
		if !reported[s.Name()] {
			statuses = append(statuses, models.MerchantStatus{
				Name:   s.Name(),
				Status: models.MerchantStatusTimedOut,
			})
		}
	}
	for _, name := range req.Merchants {
		if name = strings.TrimSpace(name); name != "" && !ran[name] {
			statuses = append(statuses, models.MerchantStatus{
				Name:   name,
				Status: models.MerchantStatusSkipped,
			})
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

	resp := &models.SearchResponse{
		Products:  []models.Listing{},
		Location:  loc,
		Merchants: statuses,
	}

	if successes == 0 {
		resp.Error = &models.ErrorDetail{
			Code:    models.ErrCodeAllMerchantsFailed,
			Message: models.ErrAllMerchantsFailed.Error(),
		}
		resp.SearchTime = roundSeconds(time.Since(start))
		return resp
	}

	listings, degraded := o.normalizer.NormalizeAll(ctx, raws, loc)
	listings = filter(listings, req)

	// Ranking is deterministic: cheapest landed cost first, merchant name
	// breaking exact ties so equal prices never flap between requests.
	sort.SliceStable(listings, func(i, j int) bool {
		if c := listings[i].TotalPrice.Cmp(listings[j].TotalPrice); c != 0 {
			return c < 0
		}
		return listings[i].Merchant < listings[j].Merchant
	})
	if req.MaxResults > 0 && len(listings) > req.MaxResults {
		listings = listings[:req.MaxResults]
	}

	resp.Products = listings
	resp.TotalResults = len(listings)
	resp.Degraded = degraded
	resp.SearchTime = roundSeconds(time.Since(start))
	return resp
}

// statusFor maps one adapter outcome to its API-facing status.
func (o *Orchestrator) statusFor(oc outcome) models.MerchantStatus {
	st := models.MerchantStatus{Name: oc.name}
	switch {
	case oc.err == nil:
		st.Skipped = oc.result.Skipped
		if len(oc.result.Listings) == 0 {
			st.Status = models.MerchantStatusEmpty
		} else {
			st.Status = models.MerchantStatusOK
		}
	case errors.Is(oc.err, context.DeadlineExceeded),
		errors.Is(oc.err, context.Canceled),
		models.CodeOf(oc.err) == models.ErrCodeTimeout:
		st.Status = models.MerchantStatusTimedOut
	default:
		st.Status = models.MerchantStatusError
		st.Reason = models.CodeOf(oc.err)
	}
	return st
}

func filter(listings []models.Listing, req *models.SearchRequest) []models.Listing {
	out := listings[:0]
	brand := strings.ToLower(strings.TrimSpace(req.Brand))
	for _, l := range listings {
		if req.MinPrice != nil && l.TotalPrice.LessThan(decimal.NewFromFloat(*req.MinPrice)) {
			continue
		}
		if req.MaxPrice != nil && l.TotalPrice.GreaterThan(decimal.NewFromFloat(*req.MaxPrice)) {
			continue
		}
		if brand != "" && !matchesBrand(l, brand) {
			continue
		}
		if req.IncludeOutOfStock != nil && !*req.IncludeOutOfStock && !l.Purchasable() {
			continue
		}
		out = append(out, l)
	}
	return out
}

// matchesBrand accepts a listing whose brand field or title mentions the
// requested brand. Titles are the fallback because most sources never
// expose a structured brand.
func matchesBrand(l models.Listing, brand string) bool {
	if l.Brand != "" && strings.ToLower(l.Brand) == brand {
		return true
	}
	return strings.Contains(strings.ToLower(l.Title), brand)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
