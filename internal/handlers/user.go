package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/repositories"
	"github.com/socialgram/backend/validators"
)

var allowedImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

// UserHandler handles profile and directory HTTP requests.
type UserHandler struct {
	userRepository     repositories.UserRepository
	relationRepository repositories.RelationRepository
	validator          *validators.CustomValidator
	uploadDir          string
	log                *logrus.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, relationRepo repositories.RelationRepository, v *validators.CustomValidator, uploadDir string, log *logrus.Logger) *UserHandler {
	return &UserHandler{
		userRepository:     userRepo,
		relationRepository: relationRepo,
		validator:          v,
		uploadDir:          uploadDir,
		log:                log,
	}
}

// RegisterProfileRoutes registers the authenticated user's own profile routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.DELETE("/profile", h.DeleteAccount)
	g.DELETE("/profile/image", h.DeleteProfileImage)
}

// RegisterUserRoutes registers the public-facing user routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users", h.ListUsers)
	g.GET("/users/:username", h.GetUser)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.userRepository.GetUserByID(currentClaims(c).UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile edits the authenticated user's account. Uniqueness checks
// exclude the user themselves, and all field errors come back together.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	user, err := h.userRepository.GetUserByID(currentClaims(c).UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	fieldErrors := map[string]string{}
	if err := h.validator.Struct(req); err != nil {
		fieldErrors = validators.FieldErrors(err)
	}

	if _, seen := fieldErrors["username"]; !seen {
		if taken, err := h.userRepository.UsernameTaken(req.Username, user.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		} else if taken {
			fieldErrors["username"] = "This username already exists."
		}
	}
	if _, seen := fieldErrors["email"]; !seen {
		if taken, err := h.userRepository.EmailTaken(req.Email, user.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		} else if taken {
			fieldErrors["email"] = "This email address already exists."
		}
	}
	if _, seen := fieldErrors["phone_number"]; !seen {
		if taken, err := h.userRepository.PhoneNumberTaken(req.PhoneNumber, user.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		} else if taken {
			fieldErrors["phone_number"] = "This phone number already exists."
		}
	}

	var imageFile *multipart.FileHeader
	if file, err := c.FormFile("image"); err == nil {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedImageExts[ext] {
			fieldErrors["image"] = "Allowed formats: png, jpg, jpeg, gif."
		} else {
			imageFile = file
		}
	}

	if len(fieldErrors) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": fieldErrors})
	}

	user.Username = req.Username
	user.Email = req.Email
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.PhoneNumber = req.PhoneNumber

	oldImage := user.Image
	if imageFile != nil {
		path, err := h.saveImage(imageFile)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store image")
		}
		user.Image = path
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		// The row still points at the old file; discard the replacement.
		if imageFile != nil {
			h.removeImage(user.Image)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Only drop the old file once the row actually references the new one.
	if imageFile != nil && oldImage != "" {
		h.removeImage(oldImage)
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteAccount deletes the authenticated user's account after they confirm
// by typing their own username.
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	user, err := h.userRepository.GetUserByID(currentClaims(c).UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var req models.DeleteAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	if req.Username != user.Username {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"errors": map[string]string{"username": "Wrong username."},
		})
	}

	h.removeImage(user.Image)
	if err := h.userRepository.DeleteUser(user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteProfileImage removes the authenticated user's profile image.
func (h *UserHandler) DeleteProfileImage(c echo.Context) error {
	user, err := h.userRepository.GetUserByID(currentClaims(c).UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if user.Image != "" {
		oldImage := user.Image
		user.Image = ""
		if err := h.userRepository.UpdateUser(user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.removeImage(oldImage)
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers is the people directory, ordered by descending follower count.
func (h *UserHandler) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	users, pg, err := h.userRepository.ListUsers(c.QueryParam("search"), page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":      users,
		"page":       pg.Number,
		"page_count": pg.PageCount,
		"total":      pg.Total,
	})
}

// GetUser shows another user's profile with follow state and counts.
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	isFollowed := false
	if claims := currentClaims(c); claims != nil && claims.UserID != user.ID {
		isFollowed, err = h.relationRepository.IsFollowing(claims.UserID, user.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	followerCount, err := h.relationRepository.FollowerCount(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	followingCount, err := h.relationRepository.FollowingCount(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":            user,
		"is_followed":     isFollowed,
		"followers_count": followerCount,
		"following_count": followingCount,
	})
}

func (h *UserHandler) saveImage(file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	path := filepath.Join(h.uploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

// removeImage best-effort deletes a stored image file.
func (h *UserHandler) removeImage(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.log.WithError(err).WithField("path", path).Warn("failed to remove profile image")
	}
}
