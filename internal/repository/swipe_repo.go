package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/studysync/tutormatch/internal/db"
	svcErr "github.com/studysync/tutormatch/internal/errors"
	"github.com/studysync/tutormatch/internal/utils/pagination"
)

// SwipeRepository provides data access methods for the Swipe ledger.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Create inserts a pending swipe. The unique pair_key index rejects a
// second row for the unordered pair in either direction; a concurrent
// insert surfaces as ErrSwipeConflict for the resolver's retry.
func (r *SwipeRepository) Create(ctx context.Context, fromID, toID uint64) (*db.Swipe, error) {
	swipe := db.Swipe{FromUserID: fromID, ToUserID: toID}
	err := r.db.WithContext(ctx).Create(&swipe).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, svcErr.ErrSwipeConflict
	}
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

// Find returns the pending swipe for the ordered (from, to) pair, or
// nil when none exists.
func (r *SwipeRepository) Find(ctx context.Context, fromID, toID uint64) (*db.Swipe, error) {
	var swipe db.Swipe
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ?", fromID, toID).
		First(&swipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

func (r *SwipeRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.Swipe{}, id).Error
}

// ListByFrom returns the user's outgoing pending swipes, oldest first.
func (r *SwipeRepository) ListByFrom(ctx context.Context, fromID uint64) ([]db.Swipe, error) {
	var swipes []db.Swipe
	err := r.db.WithContext(ctx).
		Where("from_user_id = ?", fromID).
		Order("created_at ASC, id ASC").
		Find(&swipes).Error
	return swipes, err
}

// ListByTo returns the swipes targeting the given user ("who swiped on
// me"), newest first, with cursor-based pagination.
func (r *SwipeRepository) ListByTo(
	ctx context.Context,
	toID uint64,
	paginationToken *string,
	limit int,
) ([]db.Swipe, *string, error) {
	var swipes []db.Swipe

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("to_user_id = ?", toID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.SwipeID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.SwipeID,
		)
	}

	if err := query.Find(&swipes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(swipes) > limit {
		last := swipes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			SwipeID:     last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		swipes = swipes[:limit]
	}

	return swipes, nextToken, nil
}

// CountByTo returns how many users currently have a pending swipe on
// the given user. Used with the Redis admirer-count cache (DB is the
// fallback).
func (r *SwipeRepository) CountByTo(ctx context.Context, toID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("to_user_id = ?", toID).
		Count(&count).Error
	return count, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
