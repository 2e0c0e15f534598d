package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// RodEngine is the rendered-fetch strategy: it drives a headless browser tab
// from the shared pool, waits for the DOM to settle within a bounded window,
// and returns the rendered HTML. Used for merchant sites that only produce
// listings client-side.
type RodEngine struct {
	browser       *Browser
	blockedTypes  []string
	stealthMode   bool
	domStableWait time.Duration
}

// NewRodEngine creates a RodEngine on top of a shared Browser.
// blockedTypes lists resource types ("Image", "Stylesheet", "Font", "Media")
// to drop before they hit the network.
func NewRodEngine(browser *Browser, blockedTypes []string, stealthMode bool) *RodEngine {
	return &RodEngine{
		browser:       browser,
		blockedTypes:  blockedTypes,
		stealthMode:   stealthMode,
		domStableWait: 300 * time.Millisecond,
	}
}

func (e *RodEngine) Name() string { return "browser" }

// Fetch loads the page in a pooled tab.
//
// Order matters:
//   - stealth JS and the resource-block hijack must be installed before
//     Navigate, or they won't apply to the target page.
//   - the cleanup defer navigates the ORIGINAL page reference (without the
//     request context) to about:blank, so pool return succeeds even after
//     the request deadline has expired.
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	e.browser.activePages.Add(1)
	defer e.browser.activePages.Add(-1)

	page, acquireErr := e.browser.pagePool.Get(func() (*rod.Page, error) {
		return e.browser.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, &FetchError{Kind: ErrKindRenderCrash, Err: acquireErr}
	}

	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		e.browser.pagePool.Put(page)
	}()

	if e.stealthMode {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// Extra headers: a plausible search-engine referer unless overridden.
	extraHeaders := make(map[string]string, len(req.Headers)+1)
	if _, hasReferer := req.Headers["Referer"]; !hasReferer {
		if u, parseErr := url.Parse(req.URL); parseErr == nil {
			extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}
	if len(extraHeaders) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(extraHeaders),
		}.Call(page)
	}

	router := setupHijack(page, e.blockedTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, classifyRenderError(navErr)
	}

	// Bounded content-ready wait: proceed with the current DOM if the page
	// never fully settles.
	if stableErr := p.WaitDOMStable(e.domStableWait, 0.1); stableErr != nil {
		if errors.Is(stableErr, context.DeadlineExceeded) || errors.Is(stableErr, context.Canceled) {
			return nil, &FetchError{Kind: ErrKindRenderTimeout, Err: stableErr}
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	// Status code via the navigation performance entry; avoids CDP Network
	// event listeners, which conflict with the Fetch-domain hijack.
	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, classifyRenderError(htmlErr)
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &FetchResult{
		HTML:       rawHTML,
		Title:      title,
		StatusCode: statusCode,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// classifyRenderError wraps rod errors into typed fetch errors.
func classifyRenderError(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &FetchError{Kind: ErrKindRenderTimeout, Err: err}
	}
	return &FetchError{Kind: ErrKindRenderCrash, Err: err}
}
