package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricegrid/pricegrid/api/handler"
	"github.com/pricegrid/pricegrid/api/middleware"
	"github.com/pricegrid/pricegrid/config"
	"github.com/pricegrid/pricegrid/engine"
	"github.com/pricegrid/pricegrid/merchant"
)

// Deps bundles everything the router needs. browser and geo may be nil when
// the corresponding feature is disabled.
type Deps struct {
	Search    handler.SearchService
	Validator handler.QueryValidator
	Registry  *merchant.Registry
	Geo       handler.LocationResolver
	Browser   *engine.Browser
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health is open, no auth required.
	v1.GET("/health", handler.Health(deps.Registry, deps.Browser, deps.StartTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/search", handler.Search(deps.Search, deps.Geo))
	protected.POST("/validate", handler.Validate(deps.Validator))
	protected.GET("/merchants", handler.Merchants(deps.Registry))
	protected.GET("/image-proxy", handler.ImageProxy(nil))

	return r
}
