// Package geo resolves client IP addresses to coarse locations for tax
// estimation, using the ip-api.com free endpoint.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pricegrid/pricegrid/models"
)

const defaultEndpoint = "http://ip-api.com/json"

// Resolver looks up locations by IP. Lookups are best effort: any failure
// should leave the caller with a nil location and base-price-only totals,
// never a failed search.
type Resolver struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewResolver returns a resolver against ip-api.com. apiKey may be empty for
// the free tier.
func NewResolver(client *http.Client, apiKey string) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{client: client, endpoint: defaultEndpoint, apiKey: apiKey}
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	Region     string `json:"region"`
	City       string `json:"city"`
	Zip        string `json:"zip"`
}

// Resolve looks up ip. Returns (nil, nil) for an empty or unresolvable IP
// and an error only for transport or decoding failures.
func (r *Resolver) Resolve(ctx context.Context, ip string) (*models.Location, error) {
	if ip == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/%s", r.endpoint, ip)
	if r.apiKey != "" {
		url += "?key=" + r.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation lookup: status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Status != "success" && body.Country == "" {
		// Private and reserved ranges come back as status "fail".
		return nil, nil
	}

	return &models.Location{
		Country: body.Country,
		Region:  body.RegionName,
		State:   body.Region,
		City:    body.City,
		Zip:     body.Zip,
	}, nil
}
