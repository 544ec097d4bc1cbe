package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/types"
)

// CardHistoryRepo is the append-only transition log. Records are never
// updated; deletion happens only when the owning card goes away.
type CardHistoryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, records []*types.CardHistory) ([]*types.CardHistory, error)
	// GetByBoardID returns the board's transition log ordered by change
	// date descending then id descending, the id breaking ties between
	// same-instant transitions.
	GetByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.CardHistory, error)
	DeleteByCardID(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) error
	DeleteByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error
}

type cardHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCardHistoryRepo(db *gorm.DB, baseLog *logger.Logger) CardHistoryRepo {
	return &cardHistoryRepo{db: db, log: baseLog.With("repo", "CardHistoryRepo")}
}

func (r *cardHistoryRepo) Append(ctx context.Context, tx *gorm.DB, records []*types.CardHistory) ([]*types.CardHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(records) == 0 {
		return []*types.CardHistory{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *cardHistoryRepo) GetByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.CardHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CardHistory
	if err := transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("change_date DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *cardHistoryRepo) DeleteByCardID(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("card_id = ?", cardID).
		Delete(&types.CardHistory{}).Error
}

func (r *cardHistoryRepo) DeleteByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Delete(&types.CardHistory{}).Error
}
