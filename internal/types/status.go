package types

import (
	"fmt"
	"strings"

	"github.com/taskforge/taskforge-backend/internal/apperr"
)

// Status is a card's lifecycle state. Transitions are permitted in any
// direction, including DONE back to IN_PROGRESS.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusTodo:
		return StatusTodo, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusDone:
		return StatusDone, nil
	}
	return "", fmt.Errorf("%w: unknown card status %q", apperr.ErrInvalidState, raw)
}

// BoardStatus reflects overall board completion, derived from card statuses.
type BoardStatus string

const (
	BoardStatusInProgress BoardStatus = "IN_PROGRESS"
	BoardStatusDone       BoardStatus = "DONE"
)

func ParseBoardStatus(raw string) (BoardStatus, error) {
	switch BoardStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case BoardStatusInProgress:
		return BoardStatusInProgress, nil
	case BoardStatusDone:
		return BoardStatusDone, nil
	}
	return "", fmt.Errorf("%w: unknown board status %q", apperr.ErrInvalidState, raw)
}

// Role is a user's role on a board.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	case RoleViewer:
		return RoleViewer, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidState, raw)
}
