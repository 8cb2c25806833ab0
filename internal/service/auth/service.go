// Package auth implements signup, login and account deletion. The
// service consumes the identity verifier's reduced identity; the
// external auth id is the sole identity key, and stale email-keyed
// data is always resolved through the user registry.
package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studysync/tutormatch/internal/app"
	authn "github.com/studysync/tutormatch/internal/auth"
	"github.com/studysync/tutormatch/internal/db"
	svcErr "github.com/studysync/tutormatch/internal/errors"
	"github.com/studysync/tutormatch/internal/repository"
)

const minPasswordLen = 9

// Service implements the auth API.
type Service struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	prefs     *repository.PreferenceRepository
	authority *authn.JWTAuthority
}

// NewService creates the auth service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		prefs:     repository.NewPreferenceRepository(appCtx.DB),
		authority: authn.NewJWTAuthority(appCtx.Config.Auth.Secret, appCtx.Config.Auth.TokenTTL),
	}
}

// Verifier exposes the identity verifier for transport middleware.
func (s *Service) Verifier() authn.Verifier { return s.authority }

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Major    string `json:"major"`
	Year     string `json:"year"`
}

// Signup validates the request, creates the user with a fresh external
// auth id and an empty preference row, and returns the new user.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*db.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !strings.HasSuffix(email, "@"+s.appCtx.Config.Auth.EmailDomain) {
		return nil, svcErr.ErrEmailDomain
	}
	if len(req.Password) < minPasswordLen {
		return nil, svcErr.ErrWeakPassword
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, svcErr.ErrEmailTaken
	} else if !svcErr.Is(err, svcErr.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &db.User{
		AuthID:       uuid.NewString(),
		Email:        email,
		Name:         req.Name,
		Major:        req.Major,
		Year:         req.Year,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// Preferences start empty; the user fills them in later.
	pref := &db.Preference{UserID: user.ID}
	if err := s.prefs.Save(ctx, pref); err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type LoginResult struct {
	User  *db.User
	Token string
}

// Login authenticates either with email+password (issuing a token) or
// with an existing bearer token. A valid token whose identity has no
// local row yet gets one created lazily with an empty preference, so a
// verified identity always resolves to a user.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Token != "" {
		return s.loginWithToken(ctx, req.Token)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if svcErr.Is(err, svcErr.ErrUserNotFound) {
		return nil, svcErr.ErrWrongPassword
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, svcErr.ErrWrongPassword
	}

	token, err := s.authority.Issue(user.AuthID, user.Email, user.Name)
	if err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("login successful", "user_id", user.ID)
	return &LoginResult{User: user, Token: token}, nil
}

func (s *Service) loginWithToken(ctx context.Context, token string) (*LoginResult, error) {
	identity, err := s.authority.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByAuthID(ctx, identity.ExternalID)
	if svcErr.Is(err, svcErr.ErrUserNotFound) {
		// Identity exists but the local row does not: create it.
		user = &db.User{
			AuthID: identity.ExternalID,
			Email:  strings.ToLower(identity.Email),
			Name:   identity.Name,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		if err := s.prefs.Save(ctx, &db.Preference{UserID: user.ID}); err != nil {
			return nil, err
		}
		s.appCtx.Logger.Info("local user created on first login", "user_id", user.ID)
	} else if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Token: token}, nil
}

// DeleteAccount verifies the token and removes the user together with
// their preference, swipes and matches in one transaction. The other
// participants' rows are untouched.
func (s *Service) DeleteAccount(ctx context.Context, token string) error {
	identity, err := s.authority.Verify(ctx, token)
	if err != nil {
		return err
	}

	user, err := s.users.GetByAuthID(ctx, identity.ExternalID)
	if err != nil {
		return err
	}

	if err := s.users.DeleteCascade(ctx, user.ID); err != nil {
		return err
	}

	_ = s.appCtx.RedisCache.InvalidateAdmirerCounts(ctx, user.ID)
	s.appCtx.Logger.Info("account deleted", "user_id", user.ID)
	return nil
}
