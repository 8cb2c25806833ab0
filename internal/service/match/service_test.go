package match_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studysync/tutormatch/internal/app"
	"github.com/studysync/tutormatch/internal/cache"
	"github.com/studysync/tutormatch/internal/config"
	"github.com/studysync/tutormatch/internal/db"
	svcErr "github.com/studysync/tutormatch/internal/errors"
	"github.com/studysync/tutormatch/internal/service/match"
)

// setupAppCtx spins up an in-memory SQLite DB, applies migrations,
// starts a miniredis, and wires everything into an AppContext.
// Each test gets its own isolated DB + Redis.
func setupAppCtx(t *testing.T) (*app.AppContext, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, cfg, logger)
	return appCtx, dbase
}

func setupService(t *testing.T) (*match.Service, *gorm.DB) {
	t.Helper()
	appCtx, dbase := setupAppCtx(t)
	return match.NewService(appCtx), dbase
}

func createUser(t *testing.T, gdb *gorm.DB, name, major, year string) *db.User {
	t.Helper()
	user := &db.User{
		AuthID:       uuid.NewString(),
		Email:        fmt.Sprintf("%s@cooper.edu", name),
		Name:         name,
		Major:        major,
		Year:         year,
		PasswordHash: "x",
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

func setPreference(t *testing.T, gdb *gorm.DB, userID uint64, days, teach, learn string) {
	t.Helper()
	pref := &db.Preference{
		UserID:          userID,
		AvailableDays:   days,
		SubjectsToTeach: teach,
		SubjectsToLearn: learn,
	}
	require.NoError(t, gdb.Create(pref).Error)
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

//
// Swipe resolver
//

// TestSwipeReciprocalCreatesMatch covers the full handshake: a pending
// swipe followed by its reciprocal yields exactly one match and no
// remaining pending swipes between the pair.
func TestSwipeReciprocalCreatesMatch(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	b := createUser(t, gdb, "bob", "EE", "2027")

	out, err := svc.Swipe(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.EqualValues(t, 1, countRows(t, gdb, &db.Swipe{}))

	out, err = svc.Swipe(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.True(t, out.Matched)
	require.NotNil(t, out.Match)
	assert.Equal(t, b.ID, out.Match.User1ID)
	assert.Equal(t, a.ID, out.Match.User2ID)

	assert.EqualValues(t, 1, countRows(t, gdb, &db.Match{}))
	assert.EqualValues(t, 0, countRows(t, gdb, &db.Swipe{}))
}

// TestSwipeAfterMatchRejected verifies Matched is terminal: both
// directions reject with AlreadyMatched and no rows are created.
func TestSwipeAfterMatchRejected(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	b := createUser(t, gdb, "bob", "EE", "2027")

	_, err := svc.Swipe(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, b.ID, a.ID)
	require.NoError(t, err)

	// The stored row is (b, a); both orientations must be rejected.
	_, err = svc.Swipe(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, svcErr.ErrAlreadyMatched)
	_, err = svc.Swipe(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, svcErr.ErrAlreadyMatched)

	assert.EqualValues(t, 1, countRows(t, gdb, &db.Match{}))
	assert.EqualValues(t, 0, countRows(t, gdb, &db.Swipe{}))
}

// TestSwipeDuplicateRejected: a second identical swipe is rejected and
// leaves exactly one pending row.
func TestSwipeDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	b := createUser(t, gdb, "bob", "EE", "2027")

	_, err := svc.Swipe(ctx, a.ID, b.ID)
	require.NoError(t, err)

	_, err = svc.Swipe(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, svcErr.ErrAlreadySwiped)
	assert.EqualValues(t, 1, countRows(t, gdb, &db.Swipe{}))
}

// TestSwipeMutualPendingCannotCommit covers the raced schedule where
// Swipe(a,b) and Swipe(b,a) both pass their reciprocal checks before
// either insert lands. The second insert collides on the unordered
// pair key whichever direction it carries, so two one-way rows can
// never both commit, and the losing side converges to the match.
func TestSwipeMutualPendingCannotCommit(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	b := createUser(t, gdb, "bob", "EE", "2027")

	_, err := svc.Swipe(ctx, a.ID, b.ID)
	require.NoError(t, err)

	// The insert the racing transaction would attempt after its
	// reciprocal check saw nothing.
	err = gdb.Create(&db.Swipe{FromUserID: b.ID, ToUserID: a.ID}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Its retry then observes the committed swipe and promotes it.
	out, err := svc.Swipe(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.True(t, out.Matched)

	assert.EqualValues(t, 1, countRows(t, gdb, &db.Match{}))
	assert.EqualValues(t, 0, countRows(t, gdb, &db.Swipe{}))
}

// TestSwipeRetriesAfterInsertConflict forces the resolver's insert to
// collide mid-transaction, the way a concurrent swipe on the same
// pair committing first would, and verifies Swipe absorbs the
// conflict with its retry instead of surfacing an error.
func TestSwipeRetriesAfterInsertConflict(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	b := createUser(t, gdb, "bob", "EE", "2027")

	// Slip the reciprocal row in through the same connection right
	// before the resolver's own insert, which then trips the pair
	// key. The conflict rolls the first attempt back; the retry runs
	// against the state left behind.
	injected := false
	err := gdb.Callback().Create().Before("gorm:create").Register("inject_reciprocal", func(tx *gorm.DB) {
		if injected || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "swipes" {
			return
		}
		injected = true
		tx.Session(&gorm.Session{NewDB: true}).Create(&db.Swipe{FromUserID: b.ID, ToUserID: a.ID})
	})
	require.NoError(t, err)

	out, err := svc.Swipe(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, injected)
	assert.False(t, out.Matched)
	assert.EqualValues(t, 1, countRows(t, gdb, &db.Swipe{}))
	assert.EqualValues(t, 0, countRows(t, gdb, &db.Match{}))
}

func TestSwipeValidation(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")

	_, err := svc.Swipe(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, svcErr.ErrSelfSwipe)

	_, err = svc.Swipe(ctx, a.ID, 9999)
	assert.ErrorIs(t, err, svcErr.ErrUserNotFound)

	_, err = svc.Swipe(ctx, 9999, a.ID)
	assert.ErrorIs(t, err, svcErr.ErrUserNotFound)
}

//
// Matching engine orchestration
//

// TestFindMatchesNoPreferences: a user without a preference row gets
// an empty list, not an error.
func TestFindMatchesNoPreferences(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")

	results, err := svc.FindMatches(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindMatchesUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.FindMatches(ctx, 42)
	assert.ErrorIs(t, err, svcErr.ErrUserNotFound)
}

// TestFindMatchesNarrowPhase: a same-major/year candidate above
// threshold suppresses the fallback scan entirely, even when a
// cross-major candidate would score higher.
func TestFindMatchesNarrowPhase(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	setPreference(t, gdb, a.ID, "Mon,Wed", "Math", "Bio")

	sameMajor := createUser(t, gdb, "bob", "EE", "2027")
	setPreference(t, gdb, sameMajor.ID, "Mon", "", "")

	crossMajor := createUser(t, gdb, "carol", "Art", "2028")
	setPreference(t, gdb, crossMajor.ID, "Wed", "Bio", "Math")

	results, err := svc.FindMatches(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sameMajor.ID, results[0].User.ID)
	assert.Equal(t, 2.0, results[0].Score)
}

// TestFindMatchesFallbackPhase: with no narrow-phase candidate above
// threshold, the whole population is scanned.
func TestFindMatchesFallbackPhase(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	setPreference(t, gdb, a.ID, "Mon,Wed", "Math", "Bio")

	// Same major but nothing in common: below threshold.
	sameMajor := createUser(t, gdb, "bob", "EE", "2027")
	setPreference(t, gdb, sameMajor.ID, "Sat", "", "")

	crossMajor := createUser(t, gdb, "carol", "Art", "2028")
	setPreference(t, gdb, crossMajor.ID, "Wed,Fri", "Bio", "Math")

	results, err := svc.FindMatches(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, crossMajor.ID, results[0].User.ID)
	assert.Equal(t, 3.5, results[0].Score)
	assert.Equal(t, []string{"wed"}, results[0].CommonDays)
	assert.Equal(t, []string{"bio", "math"}, results[0].CommonSubjects)
}

// TestFindMatchesExclusionSet: already-matched and already-swiped
// users never come back, in either phase.
func TestFindMatchesExclusionSet(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	setPreference(t, gdb, a.ID, "Mon", "Math", "Bio")

	swiped := createUser(t, gdb, "bob", "EE", "2027")
	setPreference(t, gdb, swiped.ID, "Mon", "Bio", "Math")

	matched := createUser(t, gdb, "carol", "EE", "2027")
	setPreference(t, gdb, matched.ID, "Mon", "Bio", "Math")

	fresh := createUser(t, gdb, "dave", "EE", "2027")
	setPreference(t, gdb, fresh.ID, "Mon", "", "")

	// a → swiped pending; a ↔ matched confirmed (stored reversed to
	// exercise the symmetric lookup).
	require.NoError(t, gdb.Create(&db.Swipe{FromUserID: a.ID, ToUserID: swiped.ID}).Error)
	require.NoError(t, gdb.Create(&db.Match{User1ID: matched.ID, User2ID: a.ID}).Error)

	results, err := svc.FindMatches(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fresh.ID, results[0].User.ID)
}

//
// Profile and admirers
//

func TestProfileView(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	a := createUser(t, gdb, "alice", "EE", "2027")
	b := createUser(t, gdb, "bob", "EE", "2027")
	c := createUser(t, gdb, "carol", "EE", "2027")

	_, err := svc.Swipe(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, b.ID, a.ID) // a ↔ b matched
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, a.ID, c.ID) // a → c pending
	require.NoError(t, err)

	view, err := svc.Profile(ctx, a.ID)
	require.NoError(t, err)

	require.Len(t, view.ConfirmedMatches, 1)
	assert.Equal(t, b.ID, view.ConfirmedMatches[0].ID)
	require.Len(t, view.PendingMatches, 1)
	assert.Equal(t, c.ID, view.PendingMatches[0].ID)

	// The other side sees the match but no pending swipes.
	view, err = svc.Profile(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, view.ConfirmedMatches, 1)
	assert.Equal(t, a.ID, view.ConfirmedMatches[0].ID)
	assert.Empty(t, view.PendingMatches)
}

func TestAdmirersPagination(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	target := createUser(t, gdb, "alice", "EE", "2027")
	for i := 0; i < 7; i++ {
		admirer := createUser(t, gdb, fmt.Sprintf("fan%d", i), "EE", "2027")
		_, err := svc.Swipe(ctx, admirer.ID, target.ID)
		require.NoError(t, err)
	}

	seen := map[uint64]bool{}
	var token *string
	pages := 0
	for {
		admirers, next, err := svc.Admirers(ctx, target.ID, token, 3)
		require.NoError(t, err)
		for _, ad := range admirers {
			assert.False(t, seen[ad.User.ID], "user repeated across pages")
			seen[ad.User.ID] = true
		}
		pages++
		if next == nil {
			break
		}
		token = next
	}

	assert.Len(t, seen, 7)
	assert.Equal(t, 3, pages)
}

// TestCountAdmirersCache verifies the cache-first count: swipes bump
// the cached value, and a cold cache falls back to the DB.
func TestCountAdmirersCache(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)

	target := createUser(t, gdb, "alice", "EE", "2027")
	b := createUser(t, gdb, "bob", "EE", "2027")
	c := createUser(t, gdb, "carol", "EE", "2027")

	// Cold cache: DB says zero.
	count, err := svc.CountAdmirers(ctx, target.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	_, err = svc.Swipe(ctx, b.ID, target.ID)
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, c.ID, target.ID)
	require.NoError(t, err)

	count, err = svc.CountAdmirers(ctx, target.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Reciprocating consumes b's swipe; the invalidated cache falls
	// back to the DB.
	_, err = svc.Swipe(ctx, target.ID, b.ID)
	require.NoError(t, err)

	count, err = svc.CountAdmirers(ctx, target.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
