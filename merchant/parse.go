package merchant

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/pricegrid/pricegrid/models"
)

var priceExpr = regexp.MustCompile(`(\d+\.?\d*)`)

// parsePrice extracts a decimal price from text like "$19.99", "1,234.56" or
// "$24.99 to $39.99" (first amount wins). Returns false when no number is
// present.
func parsePrice(text string) (decimal.Decimal, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	match := priceExpr.FindString(text)
	if match == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// extractText returns the trimmed text of the first match of sel inside s,
// or "" when sel is empty or matches nothing.
func extractText(s *goquery.Selection, sel string) string {
	if sel == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(sel).First().Text())
}

// extractHref resolves the href of the first match of sel against baseURL.
func extractHref(s *goquery.Selection, sel, baseURL string) string {
	if sel == "" {
		return ""
	}
	href, ok := s.Find(sel).First().Attr("href")
	if !ok {
		return ""
	}
	return resolveURL(href, baseURL)
}

// extractImage resolves the src (falling back to data-src for lazy-loaded
// images) of the first match of sel against baseURL.
func extractImage(s *goquery.Selection, sel, baseURL string) string {
	if sel == "" {
		return ""
	}
	img := s.Find(sel).First()
	src, ok := img.Attr("src")
	if !ok || src == "" {
		src, _ = img.Attr("data-src")
	}
	return resolveURL(src, baseURL)
}

// resolveURL makes a possibly-relative URL absolute against base.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	b, err := url.Parse(base)
	if err != nil {
		return raw
	}
	r, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return b.ResolveReference(r).String()
}

// determineAvailability classifies the availability text of a listing.
// Sites phrase stock states loosely, so this is keyword matching; a missing
// element means the site shows nothing for available items, which reads as
// in stock.
func determineAvailability(s *goquery.Selection, sel string, detects bool) string {
	if sel == "" || !detects {
		return models.AvailabilityUnknown
	}
	text := strings.ToLower(extractText(s, sel))
	if text == "" {
		return models.AvailabilityInStock
	}
	for _, w := range []string{"out of stock", "unavailable", "sold out"} {
		if strings.Contains(text, w) {
			return models.AvailabilityOutOfStock
		}
	}
	for _, w := range []string{"limited", "few left", "only"} {
		if strings.Contains(text, w) {
			return models.AvailabilityLimited
		}
	}
	return models.AvailabilityInStock
}
