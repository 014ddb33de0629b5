package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/repositories"
	"github.com/socialgram/backend/validators"
)

// testPassword is the plaintext behind every fixture user's hash.
const testPassword = "opensesame"

var testPasswordHash = func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}()

type testEnv struct {
	e            *echo.Echo
	db           *gorm.DB
	userRepo     repositories.UserRepository
	relationRepo repositories.RelationRepository
	validator    *validators.CustomValidator
	log          *logrus.Logger
	phoneSeq     int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Relation{}))

	v := validators.NewValidator()
	e := echo.New()
	e.Validator = v

	log := logrus.New()
	log.SetOutput(io.Discard)

	return &testEnv{
		e:            e,
		db:           db,
		userRepo:     repositories.NewPostgresUserRepository(db),
		relationRepo: repositories.NewPostgresRelationRepository(db),
		validator:    v,
		log:          log,
	}
}

func (env *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	env.phoneSeq++
	user := &models.User{
		Username:    username,
		Email:       username + "@mail.test",
		PhoneNumber: fmt.Sprintf("09%010d", env.phoneSeq),
		FirstName:   "Jane",
		LastName:    "Doe",
		Password:    testPasswordHash,
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

// postForm builds a form-encoded request context plus its recorder.
func (env *testEnv) postForm(target string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return env.e.NewContext(req, rec), rec
}

// putMultipart builds a multipart request carrying form fields plus one
// uploaded file under the "image" field.
func (env *testEnv) putMultipart(t *testing.T, target string, form url.Values, fileName string, content []byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range form {
		for _, value := range values {
			require.NoError(t, w.WriteField(key, value))
		}
	}
	fw, err := w.CreateFormFile("image", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("PUT", target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return env.e.NewContext(req, rec), rec
}

func (env *testEnv) getRequest(target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest("GET", target, nil)
	rec := httptest.NewRecorder()
	return env.e.NewContext(req, rec), rec
}

func asClaims(user *models.User) *models.JwtCustomClaims {
	return &models.JwtCustomClaims{UserID: user.ID, Username: user.Username}
}
