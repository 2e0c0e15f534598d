// Package validate sanity-checks search queries against DuckDuckGo before a
// full merchant fan-out is spent on them.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pricegrid/pricegrid/models"
)

const (
	defaultInstantURL      = "https://api.duckduckgo.com"
	defaultAutocompleteURL = "https://duckduckgo.com/ac"

	maxSuggestions = 5
	cleanupAt      = 1000
)

// Validator checks whether a query looks like something a web search would
// recognize. Validation is advisory: any upstream failure yields a
// permissive answer so a flaky validator never blocks searches.
type Validator struct {
	client          *http.Client
	instantURL      string
	autocompleteURL string
	userAgent       string

	ttl     time.Duration
	mu      sync.Mutex
	results map[string]cachedResult
}

type cachedResult struct {
	resp     *models.ValidationResponse
	storedAt time.Time
}

// New returns a validator with the given per-request client and memo TTL.
func New(client *http.Client, ttl time.Duration) *Validator {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Validator{
		client:          client,
		instantURL:      defaultInstantURL,
		autocompleteURL: defaultAutocompleteURL,
		userAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		ttl:             ttl,
		results:         make(map[string]cachedResult),
	}
}

// Validate classifies query. Confidence: 0.9 when the instant answer API has
// results, 0.7 when only autocomplete suggests phrases, 0.2 when neither
// does, and a permissive 0.5 when the upstream calls fail.
func (v *Validator) Validate(ctx context.Context, query string) *models.ValidationResponse {
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.ValidationResponse{Suggestions: []string{}}
	}

	if cached := v.cached(query); cached != nil {
		return cached
	}

	suggestions, sugErr := v.suggestions(ctx, query)
	hasResults, resErr := v.hasResults(ctx, query)
	if sugErr != nil && resErr != nil {
		slog.Warn("query validation unavailable", "query", query, "error", resErr)
		return &models.ValidationResponse{IsValid: true, Suggestions: []string{}, Confidence: 0.5}
	}

	resp := &models.ValidationResponse{
		IsValid:    hasResults || len(suggestions) > 0,
		HasResults: hasResults,
		Suggestions: func() []string {
			if len(suggestions) > maxSuggestions {
				return suggestions[:maxSuggestions]
			}
			return suggestions
		}(),
	}
	switch {
	case hasResults:
		resp.Confidence = 0.9
	case len(suggestions) > 0:
		resp.Confidence = 0.7
	default:
		resp.Confidence = 0.2
	}

	v.memoize(query, resp)
	return resp
}

func (v *Validator) cached(query string) *models.ValidationResponse {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.results[query]
	if !ok {
		return nil
	}
	if time.Since(c.storedAt) >= v.ttl {
		delete(v.results, query)
		return nil
	}
	return c.resp
}

func (v *Validator) memoize(query string, resp *models.ValidationResponse) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results[query] = cachedResult{resp: resp, storedAt: time.Now()}
	if len(v.results) > cleanupAt {
		now := time.Now()
		for k, c := range v.results {
			if now.Sub(c.storedAt) >= v.ttl {
				delete(v.results, k)
			}
		}
	}
}

// suggestions queries the autocomplete endpoint. The response is a JSON
// array of {"phrase": ...} objects; the query itself is filtered out.
func (v *Validator) suggestions(ctx context.Context, query string) ([]string, error) {
	u := fmt.Sprintf("%s?q=%s&kl=us-en", v.autocompleteURL, url.QueryEscape(query))
	var items []struct {
		Phrase string `json:"phrase"`
	}
	if err := v.getJSON(ctx, u, &items); err != nil {
		return nil, err
	}

	var out []string
	for _, it := range items {
		phrase := strings.TrimSpace(it.Phrase)
		if phrase != "" && !strings.EqualFold(phrase, query) {
			out = append(out, phrase)
		}
	}
	return out, nil
}

// hasResults asks the instant answer API whether the query resolves to an
// abstract, a direct answer or related topics.
func (v *Validator) hasResults(ctx context.Context, query string) (bool, error) {
	u := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		v.instantURL, url.QueryEscape(query))
	var body struct {
		AbstractText  string            `json:"AbstractText"`
		Answer        string            `json:"Answer"`
		RelatedTopics []json.RawMessage `json:"RelatedTopics"`
	}
	if err := v.getJSON(ctx, u, &body); err != nil {
		return false, err
	}
	return body.AbstractText != "" || body.Answer != "" || len(body.RelatedTopics) > 0, nil
}

func (v *Validator) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation upstream: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
