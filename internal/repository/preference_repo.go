package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/studysync/tutormatch/internal/db"
	"github.com/studysync/tutormatch/internal/matching"
)

// PreferenceRepository provides data access for Preference rows and
// the candidate queries the matching engine runs on.
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new repository bound to the given DB connection.
func NewPreferenceRepository(database *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: database}
}

// GetByUserID returns the user's preference row, or nil when the user
// has not set one. Absence is not an error: a user without
// preferences simply has no candidates.
func (r *PreferenceRepository) GetByUserID(ctx context.Context, userID uint64) (*db.Preference, error) {
	var pref db.Preference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *PreferenceRepository) Save(ctx context.Context, pref *db.Preference) error {
	return r.db.WithContext(ctx).Save(pref).Error
}

// FindSimilar returns candidates sharing the given major and year,
// excluding the user themselves. This is the narrow phase query; the
// user's major/year are the authoritative values, so the filter runs
// on the users table and preferences are joined in afterwards.
func (r *PreferenceRepository) FindSimilar(ctx context.Context, major, year string, excludeUserID uint64) ([]matching.Candidate, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("major = ? AND year = ? AND id <> ?", major, year, excludeUserID).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return r.attachPreferences(ctx, users)
}

// FindAll returns every user with a preference row except the given
// user. This is the fallback phase scan; callers should bound it with
// a deadline since it is O(N) in the population.
func (r *PreferenceRepository) FindAll(ctx context.Context, excludeUserID uint64) ([]matching.Candidate, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("id <> ?", excludeUserID).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return r.attachPreferences(ctx, users)
}

// attachPreferences stitches preference rows onto users, keeping the
// users' iteration order so score ties sort stably. Users without a
// preference row are skipped.
func (r *PreferenceRepository) attachPreferences(ctx context.Context, users []db.User) ([]matching.Candidate, error) {
	if len(users) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var prefs []db.Preference
	err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&prefs).Error
	if err != nil {
		return nil, err
	}

	byUser := make(map[uint64]db.Preference, len(prefs))
	for _, p := range prefs {
		byUser[p.UserID] = p
	}

	candidates := make([]matching.Candidate, 0, len(users))
	for _, u := range users {
		pref, ok := byUser[u.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, matching.Candidate{User: u, Pref: pref})
	}
	return candidates, nil
}
