package models

// Merchant status values reported in SearchResponse metadata.
const (
	MerchantStatusOK       = "ok"
	MerchantStatusEmpty    = "empty"
	MerchantStatusTimedOut = "timed_out"
	MerchantStatusError    = "error"

	// MerchantStatusSkipped marks a requested merchant that was not part of
	// the fan-out (unknown name or disabled source).
	MerchantStatusSkipped = "skipped"
)

// MerchantStatus describes how a single source fared during one search.
type MerchantStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`

	// Reason carries the error code for status "error".
	Reason string `json:"reason,omitempty"`

	// Skipped counts individual listings dropped due to malformed fields
	// (e.g. an unparseable price). These never fail the merchant.
	Skipped int `json:"skipped,omitempty"`
}

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	// Products is ordered ascending by total_price, ties broken by merchant
	// name, regardless of adapter completion order.
	Products []Listing `json:"products"`

	TotalResults int     `json:"total_results"`
	SearchTime   float64 `json:"search_time"`

	// Cached is true when the whole response was served from the result cache.
	Cached bool `json:"cached"`

	// Degraded is true when shipping/tax could not be computed for at least
	// one listing and totals may be optimistic.
	Degraded bool `json:"degraded,omitempty"`

	Location *Location `json:"location,omitempty"`

	// Merchants reports per-source outcomes for every source that was part
	// of the fan-out.
	Merchants []MerchantStatus `json:"merchants"`

	// Error is populated only for whole-query failures.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorResponse is the envelope for endpoints whose failure has no richer
// response shape (auth, rate limiting, the image proxy).
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// ValidationResponse is the response for POST /api/v1/validate. It is
// advisory: consumers must treat any verdict as non-blocking.
type ValidationResponse struct {
	IsValid     bool     `json:"is_valid"`
	HasResults  bool     `json:"has_results"`
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence"`
}

// MerchantInfo describes a configured source for /merchants and /health.
type MerchantInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Version string `json:"version"`

	SupportsBarcode   bool `json:"supports_barcode"`
	DetectsOutOfStock bool `json:"detects_out_of_stock"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Uptime    string         `json:"uptime"`
	Merchants []MerchantInfo `json:"merchants"`
	Browser   *PoolStats     `json:"browser,omitempty"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
