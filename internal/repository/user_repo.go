package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/studysync/tutormatch/internal/db"
	svcErr "github.com/studysync/tutormatch/internal/errors"
)

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByAuthID resolves the external identity key into a user row.
func (r *UserRepository) GetByAuthID(ctx context.Context, authID string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("auth_id = ?", authID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail performs a case-insensitive email lookup.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Save(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// ListByIDs returns the users for the given ids, preserving the order
// of the ids slice.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []uint64) ([]db.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint64]db.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]db.User, 0, len(users))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

// DeleteCascade removes all matches, swipes and the preference owned
// by the user, then the user row itself, inside one transaction.
// Dependents go first so no dangling reference survives a partial
// failure.
func (r *UserRepository) DeleteCascade(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user1_id = ? OR user2_id = ?", userID, userID).
			Delete(&db.Match{}).Error; err != nil {
			return err
		}
		if err := tx.Where("from_user_id = ? OR to_user_id = ?", userID, userID).
			Delete(&db.Swipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&db.Preference{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.User{}, userID).Error
	})
}
