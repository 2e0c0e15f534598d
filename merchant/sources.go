package merchant

// DefaultSources returns the built-in merchant set. Selectors track each
// site's current result-grid markup; when a site redesigns, searches against
// it start reporting NO_RESULTS_OR_STRUCTURE_CHANGED and the selectors here
// need updating.
func DefaultSources() []Source {
	return []Source{
		{
			Name:      "amazon",
			Domain:    "www.amazon.com",
			BaseURL:   "https://www.amazon.com",
			Version:   "1.2.0",
			Enabled:   true,
			SearchURL: "https://www.amazon.com/s?k={query}",
			FetchMode: FetchModeBrowser,
			Selectors: Selectors{
				Container:    "[data-component-type='s-search-result']",
				Title:        "h2 a span",
				Price:        ".a-price .a-offscreen",
				Image:        ".s-image",
				Link:         "h2 a",
				Availability: ".a-color-state, .a-color-success",
				IDAttr:       "data-asin",
			},
			DetectsOutOfStock: true,
		},
		{
			Name:      "ebay",
			Domain:    "www.ebay.com",
			BaseURL:   "https://www.ebay.com",
			Version:   "1.1.0",
			Enabled:   true,
			SearchURL: "https://www.ebay.com/sch/i.html?_nkw={query}",
			// eBay exposes UPC/EAN search through the same endpoint.
			BarcodeURL: "https://www.ebay.com/sch/i.html?_nkw={barcode}",
			FetchMode:  FetchModeHTTP,
			Selectors: Selectors{
				Container:    ".s-item",
				Title:        ".s-item__title",
				Price:        ".s-item__price",
				Image:        ".s-item__image img",
				Link:         ".s-item__link",
				Availability: ".s-item__availability",
			},
			DetectsOutOfStock: true,
			SkipTitleContains: []string{"Shop on eBay"},
		},
		{
			Name:      "walmart",
			Domain:    "www.walmart.com",
			BaseURL:   "https://www.walmart.com",
			Version:   "1.1.0",
			Enabled:   true,
			SearchURL: "https://www.walmart.com/search?q={query}",
			FetchMode: FetchModeBrowser,
			Selectors: Selectors{
				Container:    "[data-testid='item-stack'] [data-item-id]",
				Title:        "[data-automation-id='product-title']",
				Price:        "[itemprop='price']",
				Image:        "img[data-testid='productTileImage']",
				Link:         "a[link-identifier]",
				Availability: "[data-testid='product-availability']",
				IDAttr:       "data-item-id",
			},
			DetectsOutOfStock: true,
		},
		{
			Name:      "target",
			Domain:    "www.target.com",
			BaseURL:   "https://www.target.com",
			Version:   "1.0.1",
			Enabled:   true,
			SearchURL: "https://www.target.com/s?searchTerm={query}",
			FetchMode: FetchModeBrowser,
			Selectors: Selectors{
				Container:    "[data-test='product-card']",
				Title:        "[data-test='product-title']",
				Price:        "[data-test='product-price']",
				Image:        "img[data-test='product-image']",
				Link:         "a[data-test='product-title']",
				Availability: "[data-test='product-availability']",
			},
			DetectsOutOfStock: false,
		},
		{
			Name:      "bestbuy",
			Domain:    "www.bestbuy.com",
			BaseURL:   "https://www.bestbuy.com",
			Version:   "1.0.2",
			Enabled:   true,
			SearchURL: "https://www.bestbuy.com/site/searchpage.jsp?st={query}",
			FetchMode: FetchModeHTTP,
			Selectors: Selectors{
				Container:    ".sku-item",
				Title:        ".sku-title h4 a",
				Price:        ".priceView-customer-price span",
				Image:        ".product-image img",
				Link:         ".sku-title h4 a",
				Availability: ".fulfillment-fulfillment-summary",
				IDAttr:       "data-sku-id",
			},
			DetectsOutOfStock: true,
		},
		{
			Name:    "duckduckgo",
			Domain:  "html.duckduckgo.com",
			BaseURL: "https://html.duckduckgo.com",
			Version: "1.0.0",
			Enabled: true,
			// Best-effort deals source. The HTML endpoint has no structured
			// price, so the amount is parsed out of the result snippet and
			// snippetless hits are counted as skipped. "deal price" is
			// appended to steer results toward product pages.
			SearchURL: "https://html.duckduckgo.com/html/?q={query}+deal+price",
			FetchMode: FetchModeHTTP,
			Selectors: Selectors{
				Container: ".result",
				Title:     ".result__title .result__a",
				Price:     ".result__snippet",
				Link:      ".result__title .result__a",
			},
			DetectsOutOfStock: false,
		},
		{
			Name:      "newegg",
			Domain:    "www.newegg.com",
			BaseURL:   "https://www.newegg.com",
			Version:   "1.0.0",
			Enabled:   true,
			SearchURL: "https://www.newegg.com/p/pl?d={query}",
			FetchMode: FetchModeHTTP,
			Selectors: Selectors{
				Container:    ".item-cell",
				Title:        ".item-title",
				Price:        ".price-current",
				Image:        ".item-img img",
				Link:         ".item-title",
				Availability: ".item-promo",
			},
			DetectsOutOfStock: true,
		},
	}
}
