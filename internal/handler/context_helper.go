package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-booking-api/internal/middleware"
	"github.com/noah-isme/lms-booking-api/internal/models"
	appErrors "github.com/noah-isme/lms-booking-api/pkg/errors"
	"github.com/noah-isme/lms-booking-api/pkg/response"
)

// claimsFromContext returns the caller set by middleware.JWT, or nil on unauthenticated routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := c.Get(middleware.ContextUserKey)
	typed, _ := claims.(*models.JWTClaims)
	return typed
}

// bindJSON decodes the body into dest and writes a 400 envelope when it cannot.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, validationError(err, message))
		return false
	}
	return true
}

// bindQuery is bindJSON for query strings.
func bindQuery(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, validationError(err, message))
		return false
	}
	return true
}

func validationError(err error, message string) *appErrors.Error {
	return appErrors.WrapAs(err, appErrors.ErrValidation, message)
}
