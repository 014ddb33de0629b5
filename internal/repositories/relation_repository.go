package repositories

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/pagination"
)

// RelationRepository owns the directed follow graph. Follow and Unfollow are
// idempotent: repeated calls collapse into no-ops instead of surfacing
// conflicts, since the calling surface is a plain link click with no
// confirmation step.
type RelationRepository interface {
	Follow(fromUserID, toUserID uint) (created bool, err error)
	Unfollow(fromUserID, toUserID uint) (removed bool, err error)
	IsFollowing(fromUserID, toUserID uint) (bool, error)
	FollowerCount(userID uint) (int64, error)
	FollowingCount(userID uint) (int64, error)
	ListFollowers(userID uint, search string, page int) ([]models.User, pagination.Page, error)
	ListFollowing(userID uint, search string, page int) ([]models.User, pagination.Page, error)
}

// PostgresRelationRepository implements RelationRepository on GORM.
type PostgresRelationRepository struct {
	db *gorm.DB
}

// NewPostgresRelationRepository creates a new PostgresRelationRepository
func NewPostgresRelationRepository(db *gorm.DB) *PostgresRelationRepository {
	return &PostgresRelationRepository{db: db}
}

// Follow inserts the edge unless it already exists. The unique index plus
// ON CONFLICT DO NOTHING keeps two concurrent calls for the same pair down
// to exactly one row, with neither caller seeing a constraint error.
func (r *PostgresRelationRepository) Follow(fromUserID, toUserID uint) (bool, error) {
	relation := &models.Relation{FromUserID: fromUserID, ToUserID: toUserID}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(relation)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "create relation")
	}
	return res.RowsAffected > 0, nil
}

// Unfollow deletes the edge if present. A missing edge is a no-op.
func (r *PostgresRelationRepository) Unfollow(fromUserID, toUserID uint) (bool, error) {
	res := r.db.Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).Delete(&models.Relation{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "delete relation")
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresRelationRepository) IsFollowing(fromUserID, toUserID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Relation{}).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "count relation")
	}
	return count > 0, nil
}

func (r *PostgresRelationRepository) FollowerCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Relation{}).Where("to_user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count followers")
	}
	return count, nil
}

func (r *PostgresRelationRepository) FollowingCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Relation{}).Where("from_user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count following")
	}
	return count, nil
}

// ListFollowers returns the users following userID, most recent edge first.
func (r *PostgresRelationRepository) ListFollowers(userID uint, search string, page int) ([]models.User, pagination.Page, error) {
	return r.listRelated(userID, search, page, "relations.from_user_id = users.id", "relations.to_user_id = ?")
}

// ListFollowing returns the users userID follows, most recent edge first.
func (r *PostgresRelationRepository) ListFollowing(userID uint, search string, page int) ([]models.User, pagination.Page, error) {
	return r.listRelated(userID, search, page, "relations.to_user_id = users.id", "relations.from_user_id = ?")
}

func (r *PostgresRelationRepository) listRelated(userID uint, search string, page int, joinOn, anchor string) ([]models.User, pagination.Page, error) {
	query := func() *gorm.DB {
		q := r.db.Model(&models.User{}).
			Joins("JOIN relations ON "+joinOn).
			Where(anchor, userID)
		return applyUserSearch(q, search)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, pagination.Page{}, errors.Wrap(err, "count related users")
	}

	pg := pagination.Resolve(page, pagination.DefaultPageSize, total)

	var users []models.User
	err := query().
		// Edge id breaks created_at ties so repeated queries paginate the
		// same way.
		Order("relations.created_at DESC, relations.id DESC").
		Offset(pg.Offset).
		Limit(pg.Limit).
		Find(&users).Error
	if err != nil {
		return nil, pagination.Page{}, errors.Wrap(err, "list related users")
	}
	return users, pg, nil
}

// applyUserSearch narrows a users query to rows whose username, email, first
// name or last name contains the search term, case-insensitively.
func applyUserSearch(q *gorm.DB, search string) *gorm.DB {
	if search == "" {
		return q
	}
	like := "%" + search + "%"
	return q.Where(
		"LOWER(users.username) LIKE LOWER(?) OR LOWER(users.email) LIKE LOWER(?) OR LOWER(users.first_name) LIKE LOWER(?) OR LOWER(users.last_name) LIKE LOWER(?)",
		like, like, like, like,
	)
}
