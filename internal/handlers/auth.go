package handlers

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/repositories"
	"github.com/socialgram/backend/validators"
)

// AuthHandler handles registration and sign-in.
type AuthHandler struct {
	userRepository repositories.UserRepository
	validator      *validators.CustomValidator
	jwtSecret      string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository, v *validators.CustomValidator, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		validator:      v,
		jwtSecret:      jwtSecret,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/signin", h.SignIn)
}

// Register creates an account. Every field problem is collected and returned
// in one response so the caller can fix the whole form in a single
// round-trip, matching the validation contract.
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	fieldErrors := map[string]string{}
	if err := h.validator.Struct(req); err != nil {
		fieldErrors = validators.FieldErrors(err)
	}

	if _, seen := fieldErrors["username"]; !seen {
		if taken, err := h.userRepository.UsernameTaken(req.Username, 0); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		} else if taken {
			fieldErrors["username"] = "This username already exists."
		}
	}
	if _, seen := fieldErrors["email"]; !seen {
		if taken, err := h.userRepository.EmailTaken(req.Email, 0); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		} else if taken {
			fieldErrors["email"] = "This email address already exists."
		}
	}
	if _, seen := fieldErrors["phone_number"]; !seen {
		if taken, err := h.userRepository.PhoneNumberTaken(req.PhoneNumber, 0); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		} else if taken {
			fieldErrors["phone_number"] = "This phone number already exists."
		}
	}
	if req.Password != req.ConfirmPassword {
		fieldErrors["confirm_password"] = "Passwords didn't match."
	}

	if len(fieldErrors) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": fieldErrors})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Username:    req.Username,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Password:    string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, user)
}

// SignIn authenticates with username and password and issues a JWT.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": validators.FieldErrors(err)})
	}

	user, err := h.userRepository.GetUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect Username or Password.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect Username or Password.")
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
