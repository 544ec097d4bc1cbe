package apperr

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates a board, card, snapshot or user is absent.
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded indicates a board's WIP limit would be breached.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrForbidden indicates the actor lacks the required board role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState indicates a malformed status or role string.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict indicates a unique-constraint duplicate.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized indicates missing or bad credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

func NotFound(msg string) error {
	return errors.Join(ErrNotFound, errors.New(strings.TrimSpace(msg)))
}

func CapacityExceeded(msg string) error {
	return errors.Join(ErrCapacityExceeded, errors.New(strings.TrimSpace(msg)))
}

func Forbidden(msg string) error {
	return errors.Join(ErrForbidden, errors.New(strings.TrimSpace(msg)))
}

func Conflict(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func Unauthorized(msg string) error {
	return errors.Join(ErrUnauthorized, errors.New(strings.TrimSpace(msg)))
}

// FromStore maps data-store failures into the domain taxonomy. Anything it
// does not recognize passes through unchanged.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrConflict, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") {
		return errors.Join(ErrConflict, err)
	}
	return err
}
