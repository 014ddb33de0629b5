package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialgram/backend/internal/middleware"
	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/pagination"
	"github.com/socialgram/backend/internal/repositories"
)

// RelationHandler handles follow/unfollow and the follower/following
// listings.
type RelationHandler struct {
	relationRepository repositories.RelationRepository
	userRepository     repositories.UserRepository
}

// NewRelationHandler creates a new RelationHandler
func NewRelationHandler(relationRepo repositories.RelationRepository, userRepo repositories.UserRepository) *RelationHandler {
	return &RelationHandler{
		relationRepository: relationRepo,
		userRepository:     userRepo,
	}
}

// RegisterRelationRoutes registers social-graph routes. Follow and unfollow
// sit behind the self-target guard, so the operations below never see
// actor == target.
func (h *RelationHandler) RegisterRelationRoutes(g *echo.Group) {
	g.POST("/users/:username/follow", h.Follow, middleware.SelfForbidden(h.userRepository))
	g.POST("/users/:username/unfollow", h.Unfollow, middleware.SelfForbidden(h.userRepository))
	g.GET("/users/:username/followers", h.ListFollowers)
	g.GET("/users/:username/following", h.ListFollowing)
}

// Follow creates the edge actor -> target if it does not exist. A repeated
// click reports created=false instead of a conflict.
func (h *RelationHandler) Follow(c echo.Context) error {
	target, err := h.resolveTarget(c)
	if err != nil {
		return err
	}

	created, err := h.relationRepository.Follow(currentClaims(c).UserID, target.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	message := "Already following."
	if created {
		message = "Successfully followed."
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": message,
		"data":    echo.Map{"following": true, "created": created},
	})
}

// Unfollow removes the edge actor -> target if present.
func (h *RelationHandler) Unfollow(c echo.Context) error {
	target, err := h.resolveTarget(c)
	if err != nil {
		return err
	}

	removed, err := h.relationRepository.Unfollow(currentClaims(c).UserID, target.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	message := "Not following."
	if removed {
		message = "Successfully unfollowed."
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": message,
		"data":    echo.Map{"following": false, "removed": removed},
	})
}

// ListFollowers lists the users following :username, newest edge first.
func (h *RelationHandler) ListFollowers(c echo.Context) error {
	return h.listRelated(c, h.relationRepository.ListFollowers)
}

// ListFollowing lists the users :username follows, newest edge first.
func (h *RelationHandler) ListFollowing(c echo.Context) error {
	return h.listRelated(c, h.relationRepository.ListFollowing)
}

func (h *RelationHandler) listRelated(c echo.Context, list func(uint, string, int) ([]models.User, pagination.Page, error)) error {
	target, err := h.resolveTarget(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	users, pg, err := list(target.ID, c.QueryParam("search"), page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":       target.Username,
		"items":      users,
		"page":       pg.Number,
		"page_count": pg.PageCount,
		"total":      pg.Total,
	})
}

func (h *RelationHandler) resolveTarget(c echo.Context) (*models.User, error) {
	target, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return target, nil
}
