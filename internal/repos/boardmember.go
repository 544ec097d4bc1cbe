package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/types"
)

type BoardMemberRepo interface {
	Create(ctx context.Context, tx *gorm.DB, members []*types.BoardMember) ([]*types.BoardMember, error)
	GetByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.BoardMember, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BoardMember, error)
	GetByBoardAndUser(ctx context.Context, tx *gorm.DB, boardID, userID uuid.UUID) (*types.BoardMember, error)
	UpdateRole(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, role types.Role) error
	Delete(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) error
	DeleteByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error
}

type boardMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBoardMemberRepo(db *gorm.DB, baseLog *logger.Logger) BoardMemberRepo {
	return &boardMemberRepo{db: db, log: baseLog.With("repo", "BoardMemberRepo")}
}

func (r *boardMemberRepo) Create(ctx context.Context, tx *gorm.DB, members []*types.BoardMember) ([]*types.BoardMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(members) == 0 {
		return []*types.BoardMember{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *boardMemberRepo) GetByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.BoardMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BoardMember
	if err := transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *boardMemberRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BoardMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BoardMember
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *boardMemberRepo) GetByBoardAndUser(ctx context.Context, tx *gorm.DB, boardID, userID uuid.UUID) (*types.BoardMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var member types.BoardMember
	if err := transaction.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *boardMemberRepo) UpdateRole(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, role types.Role) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.BoardMember{}).
		Where("id = ?", memberID).
		Update("role", role).Error
}

func (r *boardMemberRepo) Delete(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", memberID).
		Delete(&types.BoardMember{}).Error
}

func (r *boardMemberRepo) DeleteByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Delete(&types.BoardMember{}).Error
}
