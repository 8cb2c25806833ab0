package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// User table. AuthID is the external identity key issued at signup;
// everything keyed by email resolves through the user row, never the
// other way around. Major/Year on the user are authoritative for
// candidate narrowing.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	AuthID       string    `gorm:"uniqueIndex;size:64;not null"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	Name         string    `gorm:"size:128;not null"`
	Major        string    `gorm:"size:64"`
	Year         string    `gorm:"size:16"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// Preference holds a user's tutoring availability and subject lists.
// One row per user (unique index on user_id); token lists are stored
// as comma-separated strings and parsed case-insensitively at read
// time. Created empty at signup, deleted with the owning user.
type Preference struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	UserID          uint64    `gorm:"uniqueIndex;not null"`
	AvailableDays   string    `gorm:"size:255"`
	SubjectsToTeach string    `gorm:"size:255"`
	SubjectsToLearn string    `gorm:"size:255"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// PairKey returns the canonical key for an unordered user pair. Swipe
// and Match rows carry it so uniqueness holds per pair regardless of
// row orientation: two concurrent inserts for the same pair collide on
// the key even when their (from, to) orderings differ.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Swipe is a directed edge recording one-way interest.
//
// Indexes:
//   - uq_swipe_pair(pair_key) UNIQUE
//     At most one pending swipe per unordered pair. Racing inserts for
//     the pair collide here whichever directions they carry; the loser
//     surfaces as a duplicate-key conflict that the resolver retries.
//   - idx_swipe_from_to(from_user_id, to_user_id)
//     Ordered-edge lookups in the resolver.
//   - idx_swipe_to_created(to_user_id, created_at DESC, id)
//     Optimizes "who swiped on me" listings with pagination.
//
// A swipe is deleted when it is consumed into a Match or when either
// endpoint user is deleted.
type Swipe struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	FromUserID uint64    `gorm:"not null;index:idx_swipe_from_to,priority:1"`
	ToUserID   uint64    `gorm:"not null;index:idx_swipe_from_to,priority:2;index:idx_swipe_to_created,priority:1"`
	PairKey    string    `gorm:"size:48;not null;uniqueIndex:uq_swipe_pair" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_swipe_to_created,priority:2,sort:desc"`
}

func (s *Swipe) BeforeCreate(*gorm.DB) error {
	s.PairKey = PairKey(s.FromUserID, s.ToUserID)
	return nil
}

// Match is an unordered confirmed pairing. Rows are stored in the
// orientation of the completing swipe, so lookups must always check
// both (user1,user2) and (user2,user1). The unique pair key admits at
// most one match per pair whichever orientation raced in first.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	User1ID   uint64    `gorm:"not null;index"`
	User2ID   uint64    `gorm:"not null;index"`
	PairKey   string    `gorm:"size:48;not null;uniqueIndex:uq_match_pair" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (m *Match) BeforeCreate(*gorm.DB) error {
	m.PairKey = PairKey(m.User1ID, m.User2ID)
	return nil
}
