package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/types"
)

type SnapshotRepo interface {
	// Create inserts snapshots with ON CONFLICT DO NOTHING on
	// (board_id, snapshot_date), so a racing duplicate attempt is dropped
	// instead of failing the batch.
	Create(ctx context.Context, tx *gorm.DB, snapshots []*types.DailySnapshot) ([]*types.DailySnapshot, error)
	GetByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.DailySnapshot, error)
	GetByBoardAndDate(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, date time.Time) (*types.DailySnapshot, error)
	GetLatestByBoard(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.DailySnapshot, error)
	DeleteByBoardAndDate(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, date time.Time) error
	DeleteByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (r *snapshotRepo) Create(ctx context.Context, tx *gorm.DB, snapshots []*types.DailySnapshot) ([]*types.DailySnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(snapshots) == 0 {
		return []*types.DailySnapshot{}, nil
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "board_id"}, {Name: "snapshot_date"}},
			DoNothing: true,
		}).
		Create(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *snapshotRepo) GetByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.DailySnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.DailySnapshot
	if err := transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("snapshot_date ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *snapshotRepo) GetByBoardAndDate(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, date time.Time) (*types.DailySnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var snapshot types.DailySnapshot
	err := transaction.WithContext(ctx).
		Where("board_id = ? AND snapshot_date = ?", boardID, date).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepo) GetLatestByBoard(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.DailySnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var snapshot types.DailySnapshot
	err := transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("snapshot_date DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepo) DeleteByBoardAndDate(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, date time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("board_id = ? AND snapshot_date = ?", boardID, date).
		Delete(&types.DailySnapshot{}).Error
}

func (r *snapshotRepo) DeleteByBoardID(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("board_id = ?", boardID).
		Delete(&types.DailySnapshot{}).Error
}
