package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/types"
)

type CardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cards []*types.Card) ([]*types.Card, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, cardIDs []uuid.UUID) ([]*types.Card, error)
	GetByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.Card, error)
	// GetByBoardAndStatus returns cards ordered by position ascending with
	// nulls last, the order the position re-pack relies on.
	GetByBoardAndStatus(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, status types.Status) ([]*types.Card, error)
	CountByBoardAndStatus(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, status types.Status) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) error
	DeleteByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error
}

type cardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCardRepo(db *gorm.DB, baseLog *logger.Logger) CardRepo {
	return &cardRepo{db: db, log: baseLog.With("repo", "CardRepo")}
}

func (r *cardRepo) Create(ctx context.Context, tx *gorm.DB, cards []*types.Card) ([]*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(cards) == 0 {
		return []*types.Card{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *cardRepo) GetByIDs(ctx context.Context, tx *gorm.DB, cardIDs []uuid.UUID) ([]*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Card
	if len(cardIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", cardIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *cardRepo) GetByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Card
	if err := transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *cardRepo) GetByBoardAndStatus(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, status types.Status) ([]*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Card
	if err := transaction.WithContext(ctx).
		Where("board_id = ? AND status = ?", boardID, status).
		Order("position IS NULL, position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *cardRepo) CountByBoardAndStatus(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, status types.Status) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Card{}).
		Where("board_id = ? AND status = ?", boardID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *cardRepo) UpdateFields(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Card{}).
		Where("id = ?", cardID).
		Updates(updates).Error
}

func (r *cardRepo) Delete(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", cardID).
		Delete(&types.Card{}).Error
}

func (r *cardRepo) DeleteByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Delete(&types.Card{}).Error
}
