package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricegrid/pricegrid/models"
)

// SearchService runs one price search end to end.
type SearchService interface {
	Search(ctx context.Context, req *models.SearchRequest, loc *models.Location) (*models.SearchResponse, error)
}

// LocationResolver maps a client IP to a coarse location.
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) (*models.Location, error)
}

// Search returns a handler for POST /api/v1/search.
//
// Flow:
//  1. Parse & validate request, apply defaults.
//  2. Resolve the client's location (best effort, for tax estimation).
//  3. Orchestrated fan-out across merchants.
//  4. Map whole-query failures to HTTP status codes; partial failure is 200.
func Search(svc SearchService, geo LocationResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidQuery,
					Message: err.Error(),
				},
			})
			return
		}

		// Location failures never fail the search; totals just fall back to
		// base price plus default rates.
		var loc *models.Location
		if geo != nil {
			var err error
			loc, err = geo.Resolve(c.Request.Context(), c.ClientIP())
			if err != nil {
				slog.Warn("location lookup failed", "ip", c.ClientIP(), "error", err)
			}
		}

		resp, err := svc.Search(c.Request.Context(), &req, loc)
		if err != nil {
			respondError(c, err)
			return
		}

		if resp.Error != nil {
			c.JSON(statusForCode(resp.Error.Code), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps an internal error to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error) {
	code := models.CodeOf(err)
	detail := &models.ErrorDetail{Code: code, Message: err.Error()}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		detail = appErr.ToDetail()
	}
	c.JSON(statusForCode(code), models.ErrorResponse{Error: detail})
}

// statusForCode translates error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case models.ErrCodeInvalidQuery:
		return http.StatusBadRequest // 400
	case models.ErrCodeAllMerchantsFailed, models.ErrCodeFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
