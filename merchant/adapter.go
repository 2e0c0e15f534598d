package merchant

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricegrid/pricegrid/engine"
	"github.com/pricegrid/pricegrid/models"
	"github.com/pricegrid/pricegrid/ratelimit"
)

// Query is the merchant-facing slice of a search request. Text and Barcode
// are mutually exclusive in intent: when a barcode is present and the source
// supports lookup, the barcode entry point is used.
type Query struct {
	Text       string
	Barcode    string
	MaxResults int
}

// Result is a successful adapter search: the extracted listings plus the
// number of individual items dropped for malformed fields. Skipped items
// never fail the call; only whole-page extraction failure does.
type Result struct {
	Listings []models.RawListing
	Skipped  int
}

// Adapter searches one merchant source. Safe for concurrent use.
type Adapter struct {
	source  Source
	engine  engine.Engine
	limiter *ratelimit.Limiter
	timeout time.Duration
}

// NewAdapter wires a source to its fetch engine and the shared courtesy
// limiter. timeout bounds a single fetch; the caller's ctx deadline still
// applies on top.
func NewAdapter(source Source, eng engine.Engine, limiter *ratelimit.Limiter, timeout time.Duration) (*Adapter, error) {
	if err := source.compile(); err != nil {
		return nil, err
	}
	return &Adapter{
		source:  source,
		engine:  eng,
		limiter: limiter,
		timeout: timeout,
	}, nil
}

// Name returns the merchant name.
func (a *Adapter) Name() string { return a.source.Name }

// Source returns the adapter's static configuration.
func (a *Adapter) Source() Source { return a.source }

// Search runs one query against the merchant: courtesy-limit acquire, fetch,
// extract. An empty result list is not an error, the merchant genuinely had
// nothing. A page that fetched fine but yielded zero containers is reported
// as structure drift, distinct from fetch failures.
func (a *Adapter) Search(ctx context.Context, q Query) (*Result, error) {
	target := a.buildURL(q)

	if err := a.limiter.Acquire(ctx, a.source.Domain); err != nil {
		return nil, err
	}

	res, err := a.engine.Fetch(ctx, &engine.FetchRequest{URL: target, Timeout: a.timeout})
	if err != nil {
		return nil, a.wrapFetchError(err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return nil, models.NewAppError(models.ErrCodeInternal, "parse document", err)
	}

	// Zero matched containers on a fetched page is either genuine emptiness
	// or markup drift; the two are indistinguishable from here, and the
	// drift case is the actionable one.
	if doc.FindMatcher(a.source.container).Length() == 0 {
		return nil, models.NewAppError(
			models.ErrCodeStructureChanged,
			"no result containers matched",
			models.ErrStructureChanged,
		)
	}

	return a.extract(doc, q.MaxResults), nil
}

// buildURL fills the source's URL template. A barcode against a source
// without a lookup entry point degrades to a free-text search for the
// barcode string.
func (a *Adapter) buildURL(q Query) string {
	if q.Barcode != "" && a.source.SupportsBarcode() {
		return strings.ReplaceAll(a.source.BarcodeURL, "{barcode}", url.QueryEscape(q.Barcode))
	}
	text := q.Text
	if text == "" {
		text = q.Barcode
	}
	return strings.ReplaceAll(a.source.SearchURL, "{query}", url.QueryEscape(text))
}

// extract walks the result containers and builds raw listings. Individual
// malformed items are skipped and counted; zero containers on a parsed page
// means the selectors no longer match the site's markup.
func (a *Adapter) extract(doc *goquery.Document, maxResults int) *Result {
	sel := a.source.Selectors
	out := &Result{}

	doc.FindMatcher(a.source.container).EachWithBreak(func(i int, container *goquery.Selection) bool {
		if maxResults > 0 && len(out.Listings) >= maxResults {
			return false
		}

		title := extractText(container, sel.Title)
		if title == "" || a.skipTitle(title) {
			return true
		}

		price, ok := parsePrice(extractText(container, sel.Price))
		if !ok {
			out.Skipped++
			return true
		}

		listing := models.RawListing{
			Title:        title,
			BasePrice:    price,
			ProductURL:   extractHref(container, sel.Link, a.source.BaseURL),
			ImageURL:     extractImage(container, sel.Image, a.source.BaseURL),
			Merchant:     a.source.Name,
			Availability: determineAvailability(container, sel.Availability, a.source.DetectsOutOfStock),
		}
		if sel.IDAttr != "" {
			listing.MerchantID, _ = container.Attr(sel.IDAttr)
		}

		out.Listings = append(out.Listings, listing)
		return true
	})

	if out.Skipped > 0 {
		slog.Warn("skipped malformed listings",
			"merchant", a.source.Name, "skipped", out.Skipped)
	}
	return out
}

func (a *Adapter) skipTitle(title string) bool {
	for _, frag := range a.source.SkipTitleContains {
		if strings.Contains(title, frag) {
			return true
		}
	}
	return false
}

// wrapFetchError maps typed engine failures to adapter error codes.
func (a *Adapter) wrapFetchError(err error) error {
	fe := engine.AsFetchError(err)
	if fe == nil {
		return models.NewAppError(models.ErrCodeFetch, "fetch failed", err)
	}
	switch fe.Kind {
	case engine.ErrKindTimeout, engine.ErrKindRenderTimeout:
		return models.NewAppError(models.ErrCodeTimeout, "fetch timed out", err)
	default:
		return models.NewAppError(models.ErrCodeFetch, "fetch failed", err)
	}
}
