package db_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studysync/tutormatch/internal/db"
)

func TestPairKeySymmetric(t *testing.T) {
	assert.Equal(t, db.PairKey(1, 2), db.PairKey(2, 1))
	assert.NotEqual(t, db.PairKey(1, 2), db.PairKey(1, 3))
	assert.Equal(t, "1:2", db.PairKey(2, 1))
}

// TestSeedTestDataRespectsPairInvariants: the seeder touches every
// unordered pair at most once, so no pair gets a duplicate match or a
// swipe alongside a match, and a re-run resets cleanly under the
// unique pair keys.
func TestSeedTestDataRespectsPairInvariants(t *testing.T) {
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	require.NoError(t, db.SeedTestData(gdb))
	require.NoError(t, db.SeedTestData(gdb))

	var users int64
	gdb.Model(&db.User{}).Count(&users)
	assert.EqualValues(t, 20, users)

	var swipes []db.Swipe
	require.NoError(t, gdb.Find(&swipes).Error)
	var matches []db.Match
	require.NoError(t, gdb.Find(&matches).Error)
	require.NotEmpty(t, swipes)
	require.NotEmpty(t, matches)

	pairs := make(map[string]bool)
	for _, s := range swipes {
		key := db.PairKey(s.FromUserID, s.ToUserID)
		assert.False(t, pairs[key], "pair %s seeded twice", key)
		pairs[key] = true
	}
	for _, m := range matches {
		key := db.PairKey(m.User1ID, m.User2ID)
		assert.False(t, pairs[key], "pair %s has both a swipe and a match", key)
		pairs[key] = true
	}
}
