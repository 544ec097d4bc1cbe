package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/types"
)

type BoardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, boards []*types.Board) ([]*types.Board, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, boardIDs []uuid.UUID) ([]*types.Board, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Board, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error
}

type boardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBoardRepo(db *gorm.DB, baseLog *logger.Logger) BoardRepo {
	return &boardRepo{db: db, log: baseLog.With("repo", "BoardRepo")}
}

func (r *boardRepo) Create(ctx context.Context, tx *gorm.DB, boards []*types.Board) ([]*types.Board, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(boards) == 0 {
		return []*types.Board{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (r *boardRepo) GetByIDs(ctx context.Context, tx *gorm.DB, boardIDs []uuid.UUID) ([]*types.Board, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Board
	if len(boardIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", boardIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *boardRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Board, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Board
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *boardRepo) UpdateFields(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Board{}).
		Where("id = ?", boardID).
		Updates(updates).Error
}

func (r *boardRepo) Delete(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", boardID).
		Delete(&types.Board{}).Error
}
