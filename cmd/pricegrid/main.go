package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/pricegrid/pricegrid/api"
	"github.com/pricegrid/pricegrid/cache"
	"github.com/pricegrid/pricegrid/config"
	"github.com/pricegrid/pricegrid/engine"
	"github.com/pricegrid/pricegrid/geo"
	"github.com/pricegrid/pricegrid/merchant"
	"github.com/pricegrid/pricegrid/pricing"
	"github.com/pricegrid/pricegrid/ratelimit"
	"github.com/pricegrid/pricegrid/search"
	"github.com/pricegrid/pricegrid/validate"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	_ = godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	// ── 3. Build the merchant set ───────────────────────────────────
	sources := enabledSources(cfg.Scrape.DisabledMerchants)
	slog.Info("pricegrid starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"merchants", len(sources),
	)

	// ── 4. Fetch engines ────────────────────────────────────────────
	// The browser only launches when an enabled source needs rendered
	// pages; pure-HTTP deployments stay Chrome-free.
	httpEngine := engine.NewHTTPEngine(cfg.Scrape.UserAgent)

	var browser *engine.Browser
	var rodEngine engine.Engine
	if needsBrowser(sources) {
		var err error
		browser, err = engine.NewBrowser(engine.BrowserOptions{
			Headless:   cfg.Browser.Headless,
			NoSandbox:  cfg.Browser.NoSandbox,
			BrowserBin: cfg.Browser.BrowserBin,
			MaxPages:   cfg.Browser.MaxPages,
		})
		if err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer browser.Close()
		rodEngine = engine.NewRodEngine(browser, cfg.Scrape.BlockedResourceTypes, true)
	}

	// ── 5. Registry, courtesy limiter ───────────────────────────────
	limiter := ratelimit.New(cfg.Scrape.CourtesyInterval, cfg.Scrape.CourtesyJitter, nil)
	registry, err := merchant.NewRegistry(sources, httpEngine, rodEngine, limiter, cfg.Scrape.FetchTimeout)
	if err != nil {
		slog.Error("failed to build merchant registry", "error", err)
		os.Exit(1)
	}

	// ── 6. Pricing, cache, orchestrator ─────────────────────────────
	rates := pricing.NewStaticRates()
	rates.ShippingEnabled = cfg.Pricing.ShippingEnabled
	rates.TaxEnabled = cfg.Pricing.TaxEnabled
	if cfg.Pricing.DefaultTaxRate > 0 {
		rates.DefaultTaxRate = decimal.NewFromFloat(cfg.Pricing.DefaultTaxRate)
	}
	normalizer := pricing.NewNormalizer(rates)

	store := cache.NewMemoryStore(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	defer store.Close()
	resultCache := cache.NewResultCache(store)

	orchestrator := search.New(registry, normalizer, resultCache, cfg.Search.Deadline)

	// ── 7. Validation, geolocation ──────────────────────────────────
	validator := validate.New(&http.Client{Timeout: cfg.Validation.Timeout}, cfg.Validation.CacheTTL)

	var resolver *geo.Resolver
	if cfg.Geo.Enabled {
		resolver = geo.NewResolver(&http.Client{Timeout: cfg.Geo.Timeout}, cfg.Geo.APIKey)
	}

	// ── 8. Router and HTTP server ───────────────────────────────────
	deps := api.Deps{
		Search:    orchestrator,
		Validator: validator,
		Registry:  registry,
		Browser:   browser,
		StartTime: time.Now(),
	}
	if resolver != nil {
		deps.Geo = resolver
	}
	router := api.NewRouter(deps, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight searches 10 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// browser.Close() runs via defer, draining the page pool and killing Chrome.
	slog.Info("pricegrid stopped")
}

// enabledSources returns the built-in sources minus the disabled names.
func enabledSources(disabled []string) []merchant.Source {
	sources := merchant.DefaultSources()
	out := sources[:0]
	for _, src := range sources {
		if slices.Contains(disabled, src.Name) {
			slog.Info("merchant disabled by configuration", "merchant", src.Name)
			continue
		}
		out = append(out, src)
	}
	return out
}

func needsBrowser(sources []merchant.Source) bool {
	for _, src := range sources {
		if src.Enabled && src.FetchMode == merchant.FetchModeBrowser {
			return true
		}
	}
	return false
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
