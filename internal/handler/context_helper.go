package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cinevault/cinevault-api/internal/middleware"
	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func tokenFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextTokenKey)
	if !exists {
		return ""
	}
	token, _ := value.(string)
	return token
}

// pageParams reads page/per_page, applying the default and clamping to max.
func pageParams(c *gin.Context, defaultSize, maxSize int) (page, pageSize int) {
	page = 1
	if raw, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && raw > 0 {
		page = raw
	}
	pageSize = defaultSize
	if raw, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultSize))); err == nil && raw > 0 {
		pageSize = raw
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

// strictBool parses a query flag, rejecting anything but a boolean literal.
func strictBool(raw string) (*bool, error) {
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Validation([]string{"premium must be true or false"})
	}
	return &val, nil
}
