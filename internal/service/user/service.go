// Package user implements profile and preference editing. Major and
// year live on the user row, which the matching engine treats as
// authoritative for candidate narrowing.
package user

import (
	"context"
	"strings"

	"github.com/studysync/tutormatch/internal/app"
	"github.com/studysync/tutormatch/internal/db"
	"github.com/studysync/tutormatch/internal/repository"
)

// Service implements the user API.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	prefs  *repository.PreferenceRepository
}

// NewService creates the user service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		prefs:  repository.NewPreferenceRepository(appCtx.DB),
	}
}

// Get returns the user row for the given id.
func (s *Service) Get(ctx context.Context, userID uint64) (*db.User, error) {
	return s.users.GetByID(ctx, userID)
}

type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Major string `json:"major"`
	Year  string `json:"year"`
}

// Update replaces the user's basic details.
func (s *Service) Update(ctx context.Context, userID uint64, req UpdateUserRequest) (*db.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = req.Name
	user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user.Major = req.Major
	user.Year = req.Year
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdatePreferenceRequest carries partial preference updates; nil
// fields are left unchanged. Major and year are applied to the user
// row, the token lists to the preference row.
type UpdatePreferenceRequest struct {
	Major           *string `json:"major"`
	Year            *string `json:"year"`
	AvailableDays   *string `json:"availableDays"`
	SubjectsToTeach *string `json:"subjectsToTeach"`
	SubjectsToLearn *string `json:"subjectsToLearn"`
}

// UpdatePreference applies a partial preference update, creating the
// preference row if the user somehow lacks one.
func (s *Service) UpdatePreference(ctx context.Context, userID uint64, req UpdatePreferenceRequest) (*db.Preference, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Major != nil || req.Year != nil {
		if req.Major != nil {
			user.Major = *req.Major
		}
		if req.Year != nil {
			user.Year = *req.Year
		}
		if err := s.users.Save(ctx, user); err != nil {
			return nil, err
		}
	}

	pref, err := s.prefs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		pref = &db.Preference{UserID: userID}
	}

	if req.AvailableDays != nil {
		pref.AvailableDays = *req.AvailableDays
	}
	if req.SubjectsToTeach != nil {
		pref.SubjectsToTeach = *req.SubjectsToTeach
	}
	if req.SubjectsToLearn != nil {
		pref.SubjectsToLearn = *req.SubjectsToLearn
	}

	if err := s.prefs.Save(ctx, pref); err != nil {
		return nil, err
	}

	s.appCtx.Logger.Debug("preference updated", "user_id", userID)
	return pref, nil
}
