package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/apperr"
	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/types"
)

// PermissionService gates board access by membership role.
type PermissionService interface {
	// RequireAccess passes for any member of the board.
	RequireAccess(ctx context.Context, tx *gorm.DB, boardID, userID uuid.UUID) (*types.BoardMember, error)
	// RequireAdmin passes only for members with the ADMIN role.
	RequireAdmin(ctx context.Context, tx *gorm.DB, boardID, userID uuid.UUID) (*types.BoardMember, error)
}

type permissionService struct {
	db         *gorm.DB
	log        *logger.Logger
	memberRepo repos.BoardMemberRepo
}

func NewPermissionService(db *gorm.DB, baseLog *logger.Logger, memberRepo repos.BoardMemberRepo) PermissionService {
	return &permissionService{
		db:         db,
		log:        baseLog.With("service", "PermissionService"),
		memberRepo: memberRepo,
	}
}

func (ps *permissionService) RequireAccess(ctx context.Context, tx *gorm.DB, boardID, userID uuid.UUID) (*types.BoardMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = ps.db
	}
	member, err := ps.memberRepo.GetByBoardAndUser(ctx, transaction, boardID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden(fmt.Sprintf("user %s is not a member of board %s", userID, boardID))
		}
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return member, nil
}

func (ps *permissionService) RequireAdmin(ctx context.Context, tx *gorm.DB, boardID, userID uuid.UUID) (*types.BoardMember, error) {
	member, err := ps.RequireAccess(ctx, tx, boardID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != types.RoleAdmin {
		return nil, apperr.Forbidden(fmt.Sprintf("user %s is not an admin of board %s", userID, boardID))
	}
	return member, nil
}
