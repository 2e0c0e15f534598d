package models

import "strings"

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Query is the free-text product query. Either Query or Barcode must be
	// set; when both are present the barcode wins for sources that support
	// barcode lookup.
	Query string `json:"query"`

	// Merchants restricts the search to a subset of configured sources.
	// Empty means all enabled sources.
	Merchants []string `json:"merchants,omitempty"`

	// MaxResults caps the number of listings in the response.
	// Default: 20. Max: 100.
	MaxResults int `json:"max_results,omitempty" binding:"omitempty,min=1,max=100"`

	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	Barcode  string   `json:"barcode,omitempty"`

	// IncludeOutOfStock keeps out-of-stock listings in the response.
	// Default: true.
	IncludeOutOfStock *bool `json:"include_out_of_stock,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults() {
	if r.MaxResults == 0 {
		r.MaxResults = 20
	}
	if r.IncludeOutOfStock == nil {
		t := true
		r.IncludeOutOfStock = &t
	}
}

// Validate checks the request is answerable at all. An empty query with no
// barcode is the only terminal input error.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" && strings.TrimSpace(r.Barcode) == "" {
		return NewAppError(ErrCodeInvalidQuery, "query or barcode is required", nil)
	}
	return nil
}

// ValidationRequest is the payload for POST /api/v1/validate.
type ValidationRequest struct {
	Query string `json:"query" binding:"required"`
}
