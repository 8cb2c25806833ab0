package auth_test

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
	authn "github.com/studysync/tutormatch/internal/auth"
	"github.com/studysync/tutormatch/internal/cache"
	"github.com/studysync/tutormatch/internal/config"
	"github.com/studysync/tutormatch/internal/db"
	svcErr "github.com/studysync/tutormatch/internal/errors"
	"github.com/studysync/tutormatch/internal/service/auth"
)

func setupService(t *testing.T) (*auth.Service, *gorm.DB, *config.Config) {
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
	return auth.NewService(appCtx), dbase, cfg
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, err := svc.Signup(ctx, auth.SignupRequest{
		Email: "someone@gmail.com", Password: "longenough", Name: "X",
	})
	assert.ErrorIs(t, err, svcErr.ErrEmailDomain)

	_, err = svc.Signup(ctx, auth.SignupRequest{
		Email: "someone@cooper.edu", Password: "short", Name: "X",
	})
	assert.ErrorIs(t, err, svcErr.ErrWeakPassword)
}

func TestSignupDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	req := auth.SignupRequest{Email: "alice@cooper.edu", Password: "password123", Name: "Alice"}
	_, err := svc.Signup(ctx, req)
	require.NoError(t, err)

	// Same address, different case: still a conflict.
	req.Email = "Alice@cooper.edu"
	_, err = svc.Signup(ctx, req)
	assert.ErrorIs(t, err, svcErr.ErrEmailTaken)
}

func TestSignupCreatesEmptyPreference(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)

	user, err := svc.Signup(ctx, auth.SignupRequest{
		Email: "alice@cooper.edu", Password: "password123",
		Name: "Alice", Major: "EE", Year: "2027",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.AuthID)

	var pref db.Preference
	require.NoError(t, gdb.Where("user_id = ?", user.ID).First(&pref).Error)
	assert.Empty(t, pref.AvailableDays)
	assert.Empty(t, pref.SubjectsToTeach)
	assert.Empty(t, pref.SubjectsToLearn)
}

func TestLoginWithPassword(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	user, err := svc.Signup(ctx, auth.SignupRequest{
		Email: "alice@cooper.edu", Password: "password123", Name: "Alice",
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, auth.LoginRequest{Email: "alice@cooper.edu", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Login(ctx, auth.LoginRequest{Email: "alice@cooper.edu", Password: "wrongwrong"})
	assert.ErrorIs(t, err, svcErr.ErrWrongPassword)

	_, err = svc.Login(ctx, auth.LoginRequest{Email: "nobody@cooper.edu", Password: "password123"})
	assert.ErrorIs(t, err, svcErr.ErrWrongPassword)
}

func TestLoginWithToken(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	user, err := svc.Signup(ctx, auth.SignupRequest{
		Email: "alice@cooper.edu", Password: "password123", Name: "Alice",
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, auth.LoginRequest{Email: "alice@cooper.edu", Password: "password123"})
	require.NoError(t, err)

	// The issued token resolves back to the same user.
	result, err = svc.Login(ctx, auth.LoginRequest{Token: result.Token})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)

	_, err = svc.Login(ctx, auth.LoginRequest{Token: "garbage"})
	assert.ErrorIs(t, err, svcErr.ErrInvalidToken)
}

// TestLoginWithTokenLazyCreate: a verified identity without a local
// row gets one created, with an empty preference.
func TestLoginWithTokenLazyCreate(t *testing.T) {
	ctx := context.Background()
	svc, gdb, cfg := setupService(t)

	authority := authn.NewJWTAuthority(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	externalID := uuid.NewString()
	token, err := authority.Issue(externalID, "newcomer@cooper.edu", "Newcomer")
	require.NoError(t, err)

	result, err := svc.Login(ctx, auth.LoginRequest{Token: token})
	require.NoError(t, err)
	assert.Equal(t, externalID, result.User.AuthID)
	assert.Equal(t, "newcomer@cooper.edu", result.User.Email)

	var pref db.Preference
	require.NoError(t, gdb.Where("user_id = ?", result.User.ID).First(&pref).Error)
}

// TestDeleteAccountCascade: deleting U removes U's match, pending
// swipe and preference, while the other participants' rows survive.
func TestDeleteAccountCascade(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupService(t)

	u, err := svc.Signup(ctx, auth.SignupRequest{Email: "u@cooper.edu", Password: "password123", Name: "U"})
	require.NoError(t, err)
	v, err := svc.Signup(ctx, auth.SignupRequest{Email: "v@cooper.edu", Password: "password123", Name: "V"})
	require.NoError(t, err)
	w, err := svc.Signup(ctx, auth.SignupRequest{Email: "w@cooper.edu", Password: "password123", Name: "W"})
	require.NoError(t, err)

	require.NoError(t, gdb.Create(&db.Match{User1ID: u.ID, User2ID: v.ID}).Error)
	require.NoError(t, gdb.Create(&db.Swipe{FromUserID: u.ID, ToUserID: w.ID}).Error)

	result, err := svc.Login(ctx, auth.LoginRequest{Email: "u@cooper.edu", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, result.Token))

	var n int64
	gdb.Model(&db.User{}).Where("id = ?", u.ID).Count(&n)
	assert.EqualValues(t, 0, n)
	gdb.Model(&db.Match{}).Count(&n)
	assert.EqualValues(t, 0, n)
	gdb.Model(&db.Swipe{}).Count(&n)
	assert.EqualValues(t, 0, n)
	gdb.Model(&db.Preference{}).Where("user_id = ?", u.ID).Count(&n)
	assert.EqualValues(t, 0, n)

	// V and W keep their rows and preferences.
	gdb.Model(&db.User{}).Where("id IN ?", []uint64{v.ID, w.ID}).Count(&n)
	assert.EqualValues(t, 2, n)
	gdb.Model(&db.Preference{}).Count(&n)
	assert.EqualValues(t, 2, n)

	// A deleted identity's token no longer resolves.
	err = svc.DeleteAccount(ctx, result.Token)
	assert.ErrorIs(t, err, svcErr.ErrUserNotFound)
}
