package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/repositories"
)

// SelfForbidden resolves the :username target and intercepts requests where
// it is the authenticated user themselves, answering with a harmless
// redirect to the target profile instead of an error. The comparison is by
// user ID, never by name: a still-valid token can carry a stale username
// after a profile rename.
func SelfForbidden(userRepo repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*models.JwtCustomClaims)
			if !ok {
				return next(c)
			}

			target, err := userRepo.GetUserByUsername(c.Param("username"))
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}

			if claims.UserID == target.ID {
				return c.Redirect(http.StatusSeeOther, "/api/v1/users/"+target.Username)
			}
			return next(c)
		}
	}
}
