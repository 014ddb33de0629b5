package repositories

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/pagination"
)

// UserRepository defines the interface for user data operations. Lookups for
// absent users return gorm.ErrRecordNotFound wrapped, so handlers can map it
// to a 404 with errors.Is.
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id uint) error
	UsernameTaken(username string, excludeID uint) (bool, error)
	EmailTaken(email string, excludeID uint) (bool, error)
	PhoneNumberTaken(phoneNumber string, excludeID uint) (bool, error)
	ListUsers(search string, page int) ([]models.UserWithFollowers, pagination.Page, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	return errors.Wrap(r.db.Create(user).Error, "create user")
}

func (r *PostgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, errors.Wrap(err, "get user by id")
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, errors.Wrap(err, "get user by username")
	}
	return &user, nil
}

func (r *PostgresUserRepository) UpdateUser(user *models.User) error {
	return errors.Wrap(r.db.Save(user).Error, "update user")
}

// DeleteUser removes the user and every edge touching them, in one
// transaction so counts stay consistent with the edge set.
func (r *PostgresUserRepository) DeleteUser(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("from_user_id = ? OR to_user_id = ?", id, id).Delete(&models.Relation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	return errors.Wrap(err, "delete user")
}

// UsernameTaken reports whether another user already holds this username.
// excludeID skips the user themselves, for edit flows.
func (r *PostgresUserRepository) UsernameTaken(username string, excludeID uint) (bool, error) {
	return r.taken("username = ?", username, excludeID)
}

func (r *PostgresUserRepository) EmailTaken(email string, excludeID uint) (bool, error) {
	return r.taken("email = ?", email, excludeID)
}

func (r *PostgresUserRepository) PhoneNumberTaken(phoneNumber string, excludeID uint) (bool, error) {
	return r.taken("phone_number = ?", phoneNumber, excludeID)
}

func (r *PostgresUserRepository) taken(cond string, value string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.Model(&models.User{}).Where(cond, value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "uniqueness check")
	}
	return count > 0, nil
}

// ListUsers is the people directory: every user ordered by descending
// follower count, with the usual search filter and pagination. Counts are
// computed from the relations table on every call, never denormalized.
func (r *PostgresUserRepository) ListUsers(search string, page int) ([]models.UserWithFollowers, pagination.Page, error) {
	var total int64
	if err := applyUserSearch(r.db.Model(&models.User{}), search).Count(&total).Error; err != nil {
		return nil, pagination.Page{}, errors.Wrap(err, "count users")
	}

	pg := pagination.Resolve(page, pagination.DefaultPageSize, total)

	var rows []models.UserWithFollowers
	q := r.db.Model(&models.User{}).
		Select("users.*, COUNT(relations.id) AS followers_count").
		Joins("LEFT JOIN relations ON relations.to_user_id = users.id").
		Group("users.id")
	err := applyUserSearch(q, search).
		Order("followers_count DESC, users.username ASC").
		Offset(pg.Offset).
		Limit(pg.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, pagination.Page{}, errors.Wrap(err, "list users")
	}
	return rows, pg, nil
}
