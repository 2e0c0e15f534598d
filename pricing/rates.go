package pricing

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pricegrid/pricegrid/models"
)

// stateTaxRates holds approximate US state sales tax rates, keyed by
// two-letter state code.
var stateTaxRates = map[string]float64{
	"AL": 0.04, "AK": 0.00, "AZ": 0.056, "AR": 0.065, "CA": 0.0725,
	"CO": 0.029, "CT": 0.0635, "DE": 0.00, "FL": 0.06, "GA": 0.04,
	"HI": 0.04, "ID": 0.06, "IL": 0.0625, "IN": 0.07, "IA": 0.06,
	"KS": 0.065, "KY": 0.06, "LA": 0.0445, "ME": 0.055, "MD": 0.06,
	"MA": 0.0625, "MI": 0.06, "MN": 0.06875, "MS": 0.07, "MO": 0.04225,
	"MT": 0.00, "NE": 0.055, "NV": 0.0685, "NH": 0.00, "NJ": 0.06625,
	"NM": 0.05125, "NY": 0.04, "NC": 0.0475, "ND": 0.05, "OH": 0.0575,
	"OK": 0.045, "OR": 0.00, "PA": 0.06, "RI": 0.07, "SC": 0.06,
	"SD": 0.045, "TN": 0.07, "TX": 0.0625, "UT": 0.061, "VT": 0.06,
	"VA": 0.053, "WA": 0.065, "WV": 0.06, "WI": 0.05, "WY": 0.04,
	"DC": 0.06,
}

// shippingRule is a flat-rate estimate with an optional free-shipping
// threshold. A zero threshold means the flat rate always applies.
type shippingRule struct {
	freeOver decimal.Decimal
	flat     decimal.Decimal
}

var defaultShippingFlat = decimal.NewFromFloat(5.99)

var merchantShipping = map[string]shippingRule{
	"amazon":  {freeOver: decimal.NewFromInt(25), flat: decimal.NewFromFloat(5.99)},
	"walmart": {freeOver: decimal.NewFromInt(35), flat: decimal.NewFromFloat(5.99)},
	"target":  {freeOver: decimal.NewFromInt(35), flat: decimal.NewFromFloat(5.99)},
	"bestbuy": {freeOver: decimal.NewFromInt(35), flat: decimal.NewFromFloat(5.99)},
	"newegg":  {freeOver: decimal.NewFromInt(50), flat: decimal.NewFromFloat(7.99)},
	"ebay":    {flat: decimal.NewFromFloat(5.99)},
}

// StaticRates is the built-in rate source: a US state sales tax table plus
// per-merchant shipping estimates with free-shipping thresholds. It never
// fails a lookup.
type StaticRates struct {
	ShippingEnabled bool
	TaxEnabled      bool
	// DefaultTaxRate applies when no location is known or the state is not
	// in the table.
	DefaultTaxRate decimal.Decimal
}

// NewStaticRates returns a rate source with both estimates enabled and a
// zero fallback tax rate.
func NewStaticRates() *StaticRates {
	return &StaticRates{ShippingEnabled: true, TaxEnabled: true}
}

// Lookup implements RateLookup.
func (s *StaticRates) Lookup(_ context.Context, merchant string, base decimal.Decimal, loc *models.Location) (Quote, error) {
	q := Quote{Shipping: decimal.Zero, TaxRate: decimal.Zero}
	if s.ShippingEnabled {
		q.Shipping = s.shipping(merchant, base)
	}
	if s.TaxEnabled {
		q.TaxRate = s.taxRate(loc)
	}
	return q, nil
}

func (s *StaticRates) shipping(merchant string, base decimal.Decimal) decimal.Decimal {
	rule, ok := merchantShipping[strings.ToLower(merchant)]
	if !ok {
		return defaultShippingFlat
	}
	if !rule.freeOver.IsZero() && base.GreaterThan(rule.freeOver) {
		return decimal.Zero
	}
	return rule.flat
}

func (s *StaticRates) taxRate(loc *models.Location) decimal.Decimal {
	if loc == nil || loc.State == "" {
		return s.DefaultTaxRate
	}
	rate, ok := stateTaxRates[strings.ToUpper(loc.State)]
	if !ok {
		return s.DefaultTaxRate
	}
	return decimal.NewFromFloat(rate)
}
