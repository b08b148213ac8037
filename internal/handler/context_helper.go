package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-management-api/internal/middleware"
	"github.com/noah-isme/course-management-api/internal/models"
	appErrors "github.com/noah-isme/course-management-api/pkg/errors"
	"github.com/noah-isme/course-management-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// bindJSON decodes the request body and writes a 400 envelope on failure.
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// intQuery parses an integer query parameter, writing a 400 envelope when it is malformed.
func intQuery(c *gin.Context, key string) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, map[string]string{key: key + " is required"}))
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, map[string]string{key: key + " must be an integer"}))
		return 0, false
	}
	return value, true
}
