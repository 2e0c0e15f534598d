// Package merchant turns configured e-commerce sources into search adapters.
// Each adapter owns the full path from query to raw listings: courtesy
// rate-limit acquire, source-specific URL construction, fetch via the
// source's statically configured engine, and selector-driven extraction.
package merchant

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/pricegrid/pricegrid/models"
)

// Fetch mode values for Source.FetchMode. The choice is static per source:
// sites that render listings client-side must use "browser".
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Selectors holds the CSS selectors used to extract listings from a source's
// search results page. Container is mandatory; the rest are looked up inside
// each container and may be empty when the site doesn't expose the field.
type Selectors struct {
	Container    string
	Title        string
	Price        string
	Image        string
	Link         string
	Availability string

	// IDAttr names the container attribute carrying the merchant-assigned
	// id (e.g. "data-asin"). Empty when the site has none.
	IDAttr string
}

// Source is the static configuration for one merchant site. Loaded at
// process start; read-only at query time.
type Source struct {
	Name    string
	Domain  string
	BaseURL string
	Version string
	Enabled bool

	// SearchURL is the query entry point with a {query} placeholder.
	SearchURL string

	// BarcodeURL, when set, is a lookup entry point with a {barcode}
	// placeholder; its presence is what advertises barcode support.
	BarcodeURL string

	FetchMode string
	Selectors Selectors

	// DetectsOutOfStock marks sources whose pages carry a usable
	// availability signal.
	DetectsOutOfStock bool

	// SkipTitleContains drops pseudo-listings the site injects into result
	// grids (e.g. eBay's "Shop on eBay" placeholder cards).
	SkipTitleContains []string

	container cascadia.Selector
}

// compile pre-compiles the container selector so a broken selector fails at
// startup instead of silently matching nothing per query.
func (s *Source) compile() error {
	if s.Selectors.Container == "" {
		return fmt.Errorf("source %s: empty container selector", s.Name)
	}
	sel, err := cascadia.Compile(s.Selectors.Container)
	if err != nil {
		return fmt.Errorf("source %s: container selector: %w", s.Name, err)
	}
	s.container = sel
	return nil
}

// SupportsBarcode reports whether the source has a barcode lookup entry point.
func (s *Source) SupportsBarcode() bool { return s.BarcodeURL != "" }

// Info returns the API-facing description of the source.
func (s *Source) Info() models.MerchantInfo {
	return models.MerchantInfo{
		Name:              s.Name,
		Enabled:           s.Enabled,
		Version:           s.Version,
		SupportsBarcode:   s.SupportsBarcode(),
		DetectsOutOfStock: s.DetectsOutOfStock,
	}
}
