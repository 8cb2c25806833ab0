package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/studysync/tutormatch/internal/db"
	svcErr "github.com/studysync/tutormatch/internal/errors"
)

// MatchRepository provides data access methods for the Match ledger.
// Match rows are stored in the orientation of the completing swipe, so
// every pair lookup checks both orderings.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// FindBetween returns the match for the unordered pair (a, b), or nil
// when the users have not matched.
func (r *MatchRepository) FindBetween(ctx context.Context, a, b uint64) (*db.Match, error) {
	var match db.Match
	err := r.db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", a, b, b, a).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForUser returns every match the user participates in, newest
// first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// Create inserts a match row. The unique pair_key index rejects a
// second match for the unordered pair; a concurrent promotion
// surfaces as ErrSwipeConflict so the losing resolver retries and
// observes the committed match.
func (r *MatchRepository) Create(ctx context.Context, match *db.Match) error {
	err := r.db.WithContext(ctx).Create(match).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return svcErr.ErrSwipeConflict
	}
	return err
}

// MatchedUserIDs returns the ids of everyone the user has matched
// with, resolving each row to its "other" participant.
func (r *MatchRepository) MatchedUserIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	matches, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if m.User1ID == userID {
			ids = append(ids, m.User2ID)
		} else {
			ids = append(ids, m.User1ID)
		}
	}
	return ids, nil
}
