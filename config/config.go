package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Browser    BrowserConfig
	Scrape     ScrapeConfig
	Search     SearchConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Cache      CacheConfig
	Geo        GeoConfig
	Pricing    PricingConfig
	Validation ValidationConfig
	Log        LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance. The browser is only
// launched when at least one enabled merchant needs rendered pages.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScrapeConfig controls per-merchant fetching.
type ScrapeConfig struct {
	// UserAgent is sent on plain HTTP fetches.
	UserAgent string

	// FetchTimeout bounds a single merchant fetch.
	FetchTimeout time.Duration // default: 15s

	// CourtesyInterval is the minimum spacing between requests to the same
	// merchant domain.
	CourtesyInterval time.Duration // default: 2s

	// CourtesyJitter is the fraction of the interval (0.0-1.0) added as a
	// random delay on top of each release.
	CourtesyJitter float64 // default: 0.25

	// BlockedResourceTypes lists browser resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// DisabledMerchants removes built-in sources by name.
	DisabledMerchants []string
}

// SearchConfig controls the fan-out.
type SearchConfig struct {
	// Deadline bounds a whole search across all merchants.
	Deadline time.Duration // default: 25s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-client API rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per client.
	Burst int // default: 10
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	// TTL is the lifetime of a cached search result.
	TTL time.Duration // default: 5m

	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 1000
}

// GeoConfig controls IP geolocation.
type GeoConfig struct {
	// Enabled toggles location resolution for tax estimation.
	Enabled bool // default: true

	// APIKey is the optional ip-api.com key; empty uses the free tier.
	APIKey string

	// Timeout bounds one lookup.
	Timeout time.Duration // default: 5s
}

// PricingConfig controls landed-cost estimation.
type PricingConfig struct {
	ShippingEnabled bool    // default: true
	TaxEnabled      bool    // default: true
	DefaultTaxRate  float64 // applied when the state is unknown; default: 0
}

// ValidationConfig controls query validation against DuckDuckGo.
type ValidationConfig struct {
	Timeout  time.Duration // default: 5s
	CacheTTL time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PRICEGRID_HOST", "0.0.0.0"),
			Port: envIntOr("PRICEGRID_PORT", 8080),
			Mode: envOr("PRICEGRID_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("PRICEGRID_HEADLESS", true),
			MaxPages:   envIntOr("PRICEGRID_MAX_PAGES", 10),
			NoSandbox:  envBoolOr("PRICEGRID_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PRICEGRID_BROWSER_BIN"),
		},
		Scrape: ScrapeConfig{
			UserAgent: envOr("PRICEGRID_USER_AGENT",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			FetchTimeout:     envDurationOr("PRICEGRID_FETCH_TIMEOUT", 15*time.Second),
			CourtesyInterval: envDurationOr("PRICEGRID_COURTESY_INTERVAL", 2*time.Second),
			CourtesyJitter:   envFloatOr("PRICEGRID_COURTESY_JITTER", 0.25),
			BlockedResourceTypes: envSliceOr("PRICEGRID_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			DisabledMerchants: envSliceOr("PRICEGRID_DISABLED_MERCHANTS", nil),
		},
		Search: SearchConfig{
			Deadline: envDurationOr("PRICEGRID_SEARCH_DEADLINE", 25*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRICEGRID_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PRICEGRID_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRICEGRID_RATE_RPS", 5.0),
			Burst:             envIntOr("PRICEGRID_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("PRICEGRID_CACHE_TTL", 5*time.Minute),
			MaxEntries: envIntOr("PRICEGRID_CACHE_MAX_ENTRIES", 1000),
		},
		Geo: GeoConfig{
			Enabled: envBoolOr("PRICEGRID_GEO_ENABLED", true),
			APIKey:  os.Getenv("PRICEGRID_GEO_API_KEY"),
			Timeout: envDurationOr("PRICEGRID_GEO_TIMEOUT", 5*time.Second),
		},
		Pricing: PricingConfig{
			ShippingEnabled: envBoolOr("PRICEGRID_SHIPPING_ENABLED", true),
			TaxEnabled:      envBoolOr("PRICEGRID_TAX_ENABLED", true),
			DefaultTaxRate:  envFloatOr("PRICEGRID_DEFAULT_TAX_RATE", 0),
		},
		Validation: ValidationConfig{
			Timeout:  envDurationOr("PRICEGRID_VALIDATION_TIMEOUT", 5*time.Second),
			CacheTTL: envDurationOr("PRICEGRID_VALIDATION_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("PRICEGRID_LOG_LEVEL", "info"),
			Format: envOr("PRICEGRID_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
