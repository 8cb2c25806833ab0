// Package errors defines the domain error taxonomy and the mapping
// from errors to HTTP status codes. Centralizing the mapping keeps the
// service layer free of transport concerns.
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Sentinel domain errors. The swipe rejections (ErrAlreadyMatched,
// ErrAlreadySwiped) are expected control-flow outcomes, distinguishable
// from lookup failures by the caller.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrAlreadyMatched = errors.New("these users have already matched")
	ErrAlreadySwiped  = errors.New("you have already swiped on this user")
	ErrSelfSwipe      = errors.New("cannot swipe on yourself")

	// ErrSwipeConflict signals that a concurrent swipe on the same pair
	// won the race. Retryable: a second attempt observes the committed
	// state.
	ErrSwipeConflict = errors.New("concurrent swipe conflict")

	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrEmailTaken    = errors.New("email already in use")
	ErrEmailDomain   = errors.New("email is not from an allowed domain")
	ErrWeakPassword  = errors.New("password must be at least 9 characters long")
	ErrWrongPassword = errors.New("incorrect email or password")
)

// Is re-exports errors.Is so callers don't need a second import.
func Is(err, target error) bool { return errors.Is(err, target) }

// HTTPStatus maps a domain or infra error to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUserNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyMatched),
		errors.Is(err, ErrAlreadySwiped),
		errors.Is(err, ErrSelfSwipe),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrEmailDomain):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrSwipeConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
