package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/socialgram/backend/internal/session"
)

type recordingSender struct {
	phones []string
	codes  []string
	fail   bool
}

func (s *recordingSender) Send(_ context.Context, phoneNumber, code string) error {
	s.phones = append(s.phones, phoneNumber)
	s.codes = append(s.codes, code)
	if s.fail {
		return errors.New("gateway down")
	}
	return nil
}

func newResetHandler(env *testEnv, sender *recordingSender) (*PasswordResetHandler, *session.MemoryStore) {
	store := session.NewMemoryStore()
	return NewPasswordResetHandler(env.userRepo, store, sender, env.validator, env.log), store
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	sender := &recordingSender{}
	h, store := newResetHandler(env, sender)
	bob := env.createUser(t, "bob")
	ctx := context.Background()

	// Step 1: request a code.
	c, rec := env.postForm("/api/v1/auth/password-reset", url.Values{"username": {"bob"}})
	require.NoError(t, h.RequestCode(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var issued struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	require.NotEmpty(t, issued.Token)

	require.Len(t, sender.phones, 1)
	assert.Equal(t, bob.PhoneNumber, sender.phones[0])

	state, err := store.Get(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, session.StageCodeSent, state.Stage)
	assert.Equal(t, state.Code, sender.codes[0])
	assert.Len(t, state.Code, 4)

	// Step 2: a wrong code is rejected and the stage does not advance.
	c, rec = env.postForm("/api/v1/auth/password-reset/verify", url.Values{
		"token": {issued.Token}, "code": {"0000"},
	})
	require.NoError(t, h.VerifyCode(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	state, err = store.Get(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, session.StageCodeSent, state.Stage)

	// The right code advances to CodeVerified.
	c, rec = env.postForm("/api/v1/auth/password-reset/verify", url.Values{
		"token": {issued.Token}, "code": {state.Code},
	})
	require.NoError(t, h.VerifyCode(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	state, err = store.Get(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, session.StageCodeVerified, state.Stage)

	// Step 3: mismatched passwords are a field error, not a flow reset.
	c, rec = env.postForm("/api/v1/auth/password-reset/confirm", url.Values{
		"token": {issued.Token}, "password": {"newpass"}, "confirm_password": {"other"},
	})
	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Matching passwords finish the flow.
	c, rec = env.postForm("/api/v1/auth/password-reset/confirm", url.Values{
		"token": {issued.Token}, "password": {"newpass"}, "confirm_password": {"newpass"},
	})
	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	updated, err := env.userRepo.GetUserByID(bob.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("newpass")))

	_, err = store.Get(ctx, issued.Token)
	assert.ErrorIs(t, err, session.ErrNotFound, "reset state torn down after use")
}

func TestRequestCodeUnknownUsername(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newResetHandler(env, &recordingSender{})

	c, _ := env.postForm("/api/v1/auth/password-reset", url.Values{"username": {"ghost"}})
	err := h.RequestCode(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestVerifyWithExpiredStatePointsBackToRequestStep(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newResetHandler(env, &recordingSender{})
	env.createUser(t, "bob")

	c, rec := env.postForm("/api/v1/auth/password-reset/verify", url.Values{
		"token": {"stale-token"}, "code": {"1234"},
	})
	require.NoError(t, h.VerifyCode(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, stepRequestCode, body["step"])
}

func TestConfirmBeforeVerifyPointsBackToVerifyStep(t *testing.T) {
	env := newTestEnv(t)
	sender := &recordingSender{}
	h, store := newResetHandler(env, sender)
	env.createUser(t, "bob")

	c, rec := env.postForm("/api/v1/auth/password-reset", url.Values{"username": {"bob"}})
	require.NoError(t, h.RequestCode(c))

	var issued struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	c, rec = env.postForm("/api/v1/auth/password-reset/confirm", url.Values{
		"token": {issued.Token}, "password": {"newpass"}, "confirm_password": {"newpass"},
	})
	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, stepVerifyCode, body["step"])

	// Skipping ahead must not advance the stage.
	state, err := store.Get(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, session.StageCodeSent, state.Stage)
}

func TestSenderFailureDoesNotFailTheFlow(t *testing.T) {
	env := newTestEnv(t)
	sender := &recordingSender{fail: true}
	h, store := newResetHandler(env, sender)
	env.createUser(t, "bob")

	c, rec := env.postForm("/api/v1/auth/password-reset", url.Values{"username": {"bob"}})
	require.NoError(t, h.RequestCode(c))
	assert.Equal(t, http.StatusOK, rec.Code, "delivery failure is swallowed")

	var issued struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	// The code is still recorded server-side and usable for verification.
	state, err := store.Get(context.Background(), issued.Token)
	require.NoError(t, err)

	c, rec = env.postForm("/api/v1/auth/password-reset/verify", url.Values{
		"token": {issued.Token}, "code": {state.Code},
	})
	require.NoError(t, h.VerifyCode(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestCodeRateLimited(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newResetHandler(env, &recordingSender{})
	env.createUser(t, "bob")

	// The per-phone limiter allows a burst of 3.
	for i := 0; i < 3; i++ {
		c, rec := env.postForm("/api/v1/auth/password-reset", url.Values{"username": {"bob"}})
		require.NoError(t, h.RequestCode(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	c, _ := env.postForm("/api/v1/auth/password-reset", url.Values{"username": {"bob"}})
	err := h.RequestCode(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}

func TestLimiterMapSweepsIdleEntries(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newResetHandler(env, &recordingSender{})

	// Fill the map to its bound with limiters idle past the refill horizon.
	stale := time.Now().Add(-10 * time.Minute)
	for i := 0; i < maxTrackedPhones; i++ {
		h.limiters[fmt.Sprintf("09%08d", i)] = &phoneLimiter{
			limiter:  rate.NewLimiter(rate.Every(resetRateWindow), resetRateBurst),
			lastSeen: stale,
		}
	}

	assert.True(t, h.allow("0999999999"))

	h.mu.Lock()
	size := len(h.limiters)
	h.mu.Unlock()
	assert.Equal(t, 1, size, "idle limiters swept once the map fills up")
}

func TestLimiterMapKeepsActiveEntries(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newResetHandler(env, &recordingSender{})

	for i := 0; i < resetRateBurst; i++ {
		require.True(t, h.allow("0911111111"))
	}
	require.False(t, h.allow("0911111111"))

	// A recently used limiter must survive the sweep so its debt sticks.
	h.mu.Lock()
	stale := time.Now().Add(-10 * time.Minute)
	for i := 0; i < maxTrackedPhones; i++ {
		h.limiters[fmt.Sprintf("09%08d", i)] = &phoneLimiter{
			limiter:  rate.NewLimiter(rate.Every(resetRateWindow), resetRateBurst),
			lastSeen: stale,
		}
	}
	h.mu.Unlock()

	assert.False(t, h.allow("0911111111"), "exhausted limiter still enforced after the sweep")
}
