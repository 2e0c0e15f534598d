// Package pricing turns raw scraped prices into comparable landed costs:
// base price plus estimated shipping plus location-dependent sales tax.
package pricing

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pricegrid/pricegrid/models"
)

// Quote is the cost breakdown a rate source produces for one listing:
// a flat shipping estimate and the applicable sales tax rate.
type Quote struct {
	Shipping decimal.Decimal
	TaxRate  decimal.Decimal
}

// RateLookup supplies shipping and tax figures for a merchant and buyer
// location. Implementations may consult external services; a failed lookup
// degrades the listing to base price only rather than failing the search.
type RateLookup interface {
	Lookup(ctx context.Context, merchant string, base decimal.Decimal, loc *models.Location) (Quote, error)
}

// Normalizer computes total prices for raw listings.
type Normalizer struct {
	rates RateLookup
}

// NewNormalizer returns a normalizer backed by the given rate source.
func NewNormalizer(rates RateLookup) *Normalizer {
	return &Normalizer{rates: rates}
}

// Normalize computes shipping, tax and total for one raw listing. The
// returned bool reports degraded mode: the rate lookup failed and the totals
// carry zero shipping and tax. Tax applies to the base price only and both
// derived amounts are rounded half-up to cents, so totals compare exactly.
func (n *Normalizer) Normalize(ctx context.Context, raw models.RawListing, loc *models.Location) (models.Listing, bool) {
	l := models.Listing{RawListing: raw}

	q, err := n.rates.Lookup(ctx, raw.Merchant, raw.BasePrice, loc)
	if err != nil {
		slog.Warn("rate lookup failed, pricing degraded to base price",
			"merchant", raw.Merchant, "error", err)
		l.ShippingCost = decimal.Zero
		l.Tax = decimal.Zero
		l.TotalPrice = raw.BasePrice.Round(2)
		return l, true
	}

	l.ShippingCost = q.Shipping.Round(2)
	l.Tax = raw.BasePrice.Mul(q.TaxRate).Round(2)
	l.TotalPrice = raw.BasePrice.Add(l.ShippingCost).Add(l.Tax).Round(2)
	return l, false
}

// NormalizeAll maps Normalize over a batch, reporting whether any listing
// came out degraded.
func (n *Normalizer) NormalizeAll(ctx context.Context, raws []models.RawListing, loc *models.Location) ([]models.Listing, bool) {
	out := make([]models.Listing, 0, len(raws))
	degraded := false
	for _, raw := range raws {
		l, d := n.Normalize(ctx, raw, loc)
		degraded = degraded || d
		out = append(out, l)
	}
	return out, degraded
}
