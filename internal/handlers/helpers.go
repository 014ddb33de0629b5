package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/socialgram/backend/internal/models"
)

// currentClaims returns the authenticated user's claims, or nil when the
// request did not pass the JWT middleware.
func currentClaims(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get("user").(*models.JwtCustomClaims)
	return claims
}
