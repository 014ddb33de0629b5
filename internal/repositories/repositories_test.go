package repositories

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialgram/backend/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Relation{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:    username,
		Email:       username + "@mail.test",
		PhoneNumber: fmt.Sprintf("09%010d", nextPhoneSeq()),
		FirstName:   "Jane",
		LastName:    "Doe",
		Password:    "hashed",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

var phoneSeq int

func nextPhoneSeq() int {
	phoneSeq++
	return phoneSeq
}
