// Package match contains the matching and swipe-resolution service:
// ranked candidate suggestions, the swipe state machine, and the
// profile/admirer views over the swipe and match ledgers.
package match

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/studysync/tutormatch/internal/app"
	"github.com/studysync/tutormatch/internal/db"
	svcErr "github.com/studysync/tutormatch/internal/errors"
	"github.com/studysync/tutormatch/internal/matching"
	"github.com/studysync/tutormatch/internal/repository"
)

// Service implements the matching API on top of the repository and
// cache layers.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	prefs   *repository.PreferenceRepository
	swipes  *repository.SwipeRepository
	matches *repository.MatchRepository
}

// NewService creates the matching service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		prefs:   repository.NewPreferenceRepository(appCtx.DB),
		swipes:  repository.NewSwipeRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
	}
}

// FindMatches returns ranked candidate suggestions for the user.
//
// Behavior:
//   - A user without a preference row gets an empty list, not an error.
//   - Users already matched with or already swiped on by the caller are
//     excluded in both phases (the exclusion set is computed once).
//   - Narrow phase first (same major/year); the fallback scan over the
//     whole population runs only when the narrow phase yields nothing
//     above threshold.
//   - The whole call is bounded by the configured scan timeout; no
//     partial results.
func (s *Service) FindMatches(ctx context.Context, userID uint64) ([]matching.Result, error) {
	s.appCtx.Logger.Debug("FindMatches called", "user_id", userID)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	pref, err := s.prefs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return []matching.Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.appCtx.Config.Matching.ScanTimeout)
	defer cancel()

	excluded, err := s.exclusionSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := matching.NewProfile(pref)

	// Narrow phase: same major and year.
	narrow, err := s.prefs.FindSimilar(ctx, user.Major, user.Year, userID)
	if err != nil {
		return nil, err
	}
	results := matching.ScoreAndFilter(profile, narrow, excluded)
	if len(results) > 0 {
		s.appCtx.Logger.Debug("FindMatches narrow phase hit", "user_id", userID, "count", len(results))
		return results, nil
	}

	// Fallback phase: scan everyone, same scoring and exclusions.
	fallback, err := s.prefs.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	results = matching.ScoreAndFilter(profile, fallback, excluded)
	s.appCtx.Logger.Debug("FindMatches fallback phase", "user_id", userID, "count", len(results))
	return results, nil
}

// exclusionSet collects the ids the caller must never be shown again:
// confirmed matches (both row orientations) and targets of the
// caller's own pending swipes.
func (s *Service) exclusionSet(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	excluded := make(map[uint64]struct{})

	matchedIDs, err := s.matches.MatchedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range matchedIDs {
		excluded[id] = struct{}{}
	}

	outgoing, err := s.swipes.ListByFrom(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, sw := range outgoing {
		excluded[sw.ToUserID] = struct{}{}
	}

	return excluded, nil
}

// SwipeOutcome reports what a swipe did: either a pending swipe was
// recorded, or a reciprocal pair was promoted into a match.
type SwipeOutcome struct {
	Matched bool
	Match   *db.Match
}

// Swipe runs the state machine for a directed swipe from → to.
//
// Transitions for the unordered pair:
//   - a match already exists (either orientation) → ErrAlreadyMatched
//   - a pending from→to swipe exists → ErrAlreadySwiped
//   - a pending to→from swipe exists → consume it and create the match
//   - otherwise → record a pending from→to swipe
//
// The four checks and the final write run inside one transaction, so
// the consumed reciprocal swipe and the new match commit together.
// Concurrent swipes on the same pair, in the same or opposite
// directions, collide on the unordered pair_key indexes of the swipe
// and match tables; the loser gets ErrSwipeConflict and is retried
// once, and the retry observes the committed state (reciprocal swipe
// or match) through steps 1-3.
func (s *Service) Swipe(ctx context.Context, fromID, toID uint64) (*SwipeOutcome, error) {
	s.appCtx.Logger.Debug("Swipe called", "from", fromID, "to", toID)

	if fromID == toID {
		return nil, svcErr.ErrSelfSwipe
	}
	if _, err := s.users.GetByID(ctx, fromID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, toID); err != nil {
		return nil, err
	}

	outcome, err := s.resolveSwipe(ctx, fromID, toID)
	if svcErr.Is(err, svcErr.ErrSwipeConflict) {
		s.appCtx.Logger.Warn("swipe conflict, retrying once", "from", fromID, "to", toID)
		outcome, err = s.resolveSwipe(ctx, fromID, toID)
	}
	if err != nil {
		return nil, err
	}

	s.updateAdmirerCache(ctx, fromID, toID, outcome)
	return outcome, nil
}

func (s *Service) resolveSwipe(ctx context.Context, fromID, toID uint64) (*SwipeOutcome, error) {
	var outcome *SwipeOutcome

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swipes := repository.NewSwipeRepository(tx)
		matches := repository.NewMatchRepository(tx)

		// 1. Terminal state: the pair has already matched.
		existing, err := matches.FindBetween(ctx, fromID, toID)
		if err != nil {
			return err
		}
		if existing != nil {
			return svcErr.ErrAlreadyMatched
		}

		// 2. Duplicate pending edge.
		dup, err := swipes.Find(ctx, fromID, toID)
		if err != nil {
			return err
		}
		if dup != nil {
			return svcErr.ErrAlreadySwiped
		}

		// 3. Reciprocal interest: consume the opposite swipe and
		// promote the pair to a match.
		reciprocal, err := swipes.Find(ctx, toID, fromID)
		if err != nil {
			return err
		}
		if reciprocal != nil {
			if err := swipes.Delete(ctx, reciprocal.ID); err != nil {
				return err
			}
			match := &db.Match{User1ID: fromID, User2ID: toID, CreatedAt: time.Now().UTC()}
			if err := matches.Create(ctx, match); err != nil {
				return err
			}
			outcome = &SwipeOutcome{Matched: true, Match: match}
			return nil
		}

		// 4. No relation yet: record the pending swipe.
		if _, err := swipes.Create(ctx, fromID, toID); err != nil {
			return err
		}
		outcome = &SwipeOutcome{Matched: false}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// updateAdmirerCache keeps the cached pending-swipe counts in step
// with the ledger. Cache errors are ignored; the DB remains the source
// of truth.
func (s *Service) updateAdmirerCache(ctx context.Context, fromID, toID uint64, outcome *SwipeOutcome) {
	rc := s.appCtx.RedisCache
	if outcome.Matched {
		// The reciprocal swipe was consumed; both counts are stale.
		_ = rc.InvalidateAdmirerCounts(ctx, fromID, toID)
		return
	}
	// Bump only a warm cache; a cold one is repopulated from the
	// ledger on the next count read.
	if _, ok, err := rc.GetAdmirerCount(ctx, toID); err != nil || !ok {
		return
	}
	_, _ = rc.Incr(ctx, rc.KeyForAdmirerCount(toID))
}

// ProfileView is the user's relationship summary: the other
// participant of every confirmed match, and the targets of their
// outstanding swipes.
type ProfileView struct {
	ConfirmedMatches []db.User `json:"confirmedMatches"`
	PendingMatches   []db.User `json:"pendingMatches"`
}

// Profile derives the confirmed and pending match lists for the user.
func (s *Service) Profile(ctx context.Context, userID uint64) (*ProfileView, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	matchedIDs, err := s.matches.MatchedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.users.ListByIDs(ctx, matchedIDs)
	if err != nil {
		return nil, err
	}

	outgoing, err := s.swipes.ListByFrom(ctx, userID)
	if err != nil {
		return nil, err
	}
	pendingIDs := make([]uint64, 0, len(outgoing))
	for _, sw := range outgoing {
		pendingIDs = append(pendingIDs, sw.ToUserID)
	}
	pending, err := s.users.ListByIDs(ctx, pendingIDs)
	if err != nil {
		return nil, err
	}

	if confirmed == nil {
		confirmed = []db.User{}
	}
	if pending == nil {
		pending = []db.User{}
	}
	return &ProfileView{ConfirmedMatches: confirmed, PendingMatches: pending}, nil
}

// Admirer is one entry of the "who swiped on me" listing.
type Admirer struct {
	User     db.User   `json:"user"`
	SwipedAt time.Time `json:"swipedAt"`
}

// Admirers lists the users with a pending swipe on the given user,
// newest first, with cursor pagination.
func (s *Service) Admirers(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]Admirer, *string, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, nil, err
	}

	swipes, nextToken, err := s.swipes.ListByTo(ctx, userID, paginationToken, limit)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uint64, 0, len(swipes))
	for _, sw := range swipes {
		ids = append(ids, sw.FromUserID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uint64]db.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	admirers := make([]Admirer, 0, len(swipes))
	for _, sw := range swipes {
		if u, ok := byID[sw.FromUserID]; ok {
			admirers = append(admirers, Admirer{User: u, SwipedAt: sw.CreatedAt})
		}
	}
	return admirers, nextToken, nil
}

// CountAdmirers returns how many users currently have a pending swipe
// on the given user. Cache-first: Redis with TTL refresh, DB on miss.
func (s *Service) CountAdmirers(ctx context.Context, userID uint64) (int64, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return 0, err
	}

	if n, ok, err := s.appCtx.RedisCache.GetAdmirerCount(ctx, userID); err == nil && ok {
		return n, nil
	}

	count, err := s.swipes.CountByTo(ctx, userID)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.SetAdmirerCount(ctx, userID, count)
	return count, nil
}
