// pricegrid-mcp exposes the PriceGrid HTTP API as MCP tools so agent
// frontends can run price searches over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// searchRequest mirrors the PriceGrid API request model.
type searchRequest struct {
	Query      string   `json:"query"`
	Merchants  []string `json:"merchants,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	Barcode    string   `json:"barcode,omitempty"`
	Brand      string   `json:"brand,omitempty"`
}

// validationRequest mirrors the PriceGrid API request model.
type validationRequest struct {
	Query string `json:"query"`
}

func main() {
	apiURL := os.Getenv("PRICEGRID_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PRICEGRID_API_KEY")

	s := server.NewMCPServer(
		"pricegrid",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search for a product across online merchants (Amazon, eBay, Walmart, Target, Best Buy, Newegg) and compare total prices including estimated shipping and tax. Results are ranked cheapest first."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text product query, e.g. 'usb-c cable 2m'"),
		),
		mcp.WithString("barcode",
			mcp.Description("UPC/EAN barcode; used instead of the text query on merchants that support barcode lookup"),
		),
		mcp.WithString("brand",
			mcp.Description("Restrict results to listings mentioning this brand"),
		),
		mcp.WithArray("merchants",
			mcp.Description("Restrict the search to these merchant names; empty searches all"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of listings to return (default: 20, max: 100)"),
		),
	)
	s.AddTool(searchTool, handleSearch(apiURL, apiKey))

	validateTool := mcp.NewTool("validate_query",
		mcp.WithDescription("Check whether a product query looks like a real, searchable term before spending a full merchant search on it. Returns a confidence score and spelling suggestions."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The query to validate"),
		),
	)
	s.AddTool(validateTool, handleValidate(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		reqBody := searchRequest{
			Query:      query,
			Barcode:    request.GetString("barcode", ""),
			Brand:      request.GetString("brand", ""),
			MaxResults: int(request.GetFloat("max_results", 0)),
			Merchants:  request.GetStringSlice("merchants", nil),
		}

		body, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/search", reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleValidate(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		body, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/validate", validationRequest{Query: query})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

// apiPost sends a POST request to the PriceGrid API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
