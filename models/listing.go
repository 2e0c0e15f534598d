package models

import "github.com/shopspring/decimal"

// Availability states reported by merchant sites. "limited" is kept as its
// own state because several sites distinguish "only N left" from plain
// in-stock; for filtering purposes it counts as purchasable.
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
	AvailabilityLimited    = "limited"
	AvailabilityUnknown    = "unknown"
)

// RawListing is a single merchant-scoped result exactly as extracted from the
// merchant's page, before shipping and tax have been computed. It belongs to
// the adapter that produced it until it is handed to the price normalizer.
type RawListing struct {
	Title        string          `json:"title"`
	BasePrice    decimal.Decimal `json:"base_price"`
	ProductURL   string          `json:"product_url"`
	ImageURL     string          `json:"image_url"`
	Merchant     string          `json:"merchant"`
	MerchantID   string          `json:"merchant_id,omitempty"`
	Availability string          `json:"availability"`

	Brand       string  `json:"brand,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
}

// Listing is a RawListing enriched with shipping and tax. TotalPrice is the
// sole ranking key: base + shipping + tax, rounded half-up to cents at the
// point of computation and nowhere earlier.
type Listing struct {
	RawListing

	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Tax          decimal.Decimal `json:"tax"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// Purchasable reports whether the listing should survive an
// include_out_of_stock=false filter.
func (l *Listing) Purchasable() bool {
	return l.Availability != AvailabilityOutOfStock
}

// Location is the resolved caller location used for tax and shipping
// estimation. Produced by the geolocation collaborator; treated as opaque
// context by everything except the rate lookup.
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
	State   string `json:"state,omitempty"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
}
