package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricegrid/pricegrid/models"
)

// QueryValidator classifies whether a query looks searchable.
type QueryValidator interface {
	Validate(ctx context.Context, query string) *models.ValidationResponse
}

// Validate returns a handler for POST /api/v1/validate.
func Validate(v QueryValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ValidationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidQuery,
					Message: err.Error(),
				},
			})
			return
		}

		c.JSON(http.StatusOK, v.Validate(c.Request.Context(), req.Query))
	}
}
