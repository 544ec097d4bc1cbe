package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/apperr"
	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/types"
)

// SnapshotService materializes the per-day progress aggregates a board's
// burndown is drawn from. Snapshot creation is idempotent per (board, day);
// only today's snapshot is ever recomputed.
type SnapshotService interface {
	// EnsureSnapshotsExist backfills every missing day from the board's
	// creation through today, oldest first.
	EnsureSnapshotsExist(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error
	// CreateSnapshotForDate is a no-op when the (board, date) snapshot
	// already exists.
	CreateSnapshotForDate(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, date time.Time) error
	// UpdateTodaySnapshot deletes and recomputes today's snapshot so
	// same-day card changes show up without waiting for the nightly job.
	UpdateTodaySnapshot(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error
	// CreateDailySnapshots materializes today for every board. A failure
	// on one board is logged and does not stop the rest.
	CreateDailySnapshots(ctx context.Context) error
}

type snapshotService struct {
	db           *gorm.DB
	log          *logger.Logger
	boardRepo    repos.BoardRepo
	cardRepo     repos.CardRepo
	historyRepo  repos.CardHistoryRepo
	snapshotRepo repos.SnapshotRepo
	now          func() time.Time
}

func NewSnapshotService(
	db *gorm.DB,
	baseLog *logger.Logger,
	boardRepo repos.BoardRepo,
	cardRepo repos.CardRepo,
	historyRepo repos.CardHistoryRepo,
	snapshotRepo repos.SnapshotRepo,
) SnapshotService {
	return &snapshotService{
		db:           db,
		log:          baseLog.With("service", "SnapshotService"),
		boardRepo:    boardRepo,
		cardRepo:     cardRepo,
		historyRepo:  historyRepo,
		snapshotRepo: snapshotRepo,
		now:          time.Now,
	}
}

func (ss *snapshotService) EnsureSnapshotsExist(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ss.db
	}

	board, err := ss.getBoard(ctx, transaction, boardID)
	if err != nil {
		return err
	}
	cards, err := ss.cardRepo.GetByBoardID(ctx, transaction, board.ID)
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}
	histories, err := ss.historyRepo.GetByBoardID(ctx, transaction, board.ID)
	if err != nil {
		return fmt.Errorf("load transition log: %w", err)
	}

	startDate := dayOf(board.CreatedAt)
	today := dayOf(ss.now())

	lastDate := startDate.AddDate(0, 0, -1)
	if last, err := ss.snapshotRepo.GetLatestByBoard(ctx, transaction, board.ID); err != nil {
		return fmt.Errorf("load latest snapshot: %w", err)
	} else if last != nil {
		lastDate = dayOf(last.SnapshotDate)
	}

	for date := lastDate.AddDate(0, 0, 1); !date.After(today); date = date.AddDate(0, 0, 1) {
		if err := ss.createForDate(ctx, transaction, board, cards, histories, date); err != nil {
			return err
		}
	}
	return nil
}

func (ss *snapshotService) CreateSnapshotForDate(ctx context.Context, tx *gorm.DB, boardID uuid.UUID, date time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = ss.db
	}
	board, err := ss.getBoard(ctx, transaction, boardID)
	if err != nil {
		return err
	}
	cards, err := ss.cardRepo.GetByBoardID(ctx, transaction, board.ID)
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}
	histories, err := ss.historyRepo.GetByBoardID(ctx, transaction, board.ID)
	if err != nil {
		return fmt.Errorf("load transition log: %w", err)
	}
	return ss.createForDate(ctx, transaction, board, cards, histories, dayOf(date))
}

func (ss *snapshotService) UpdateTodaySnapshot(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) error {
	if tx == nil {
		return ss.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			return ss.UpdateTodaySnapshot(ctx, inner, boardID)
		})
	}
	board, err := ss.getBoard(ctx, tx, boardID)
	if err != nil {
		return err
	}
	today := dayOf(ss.now())
	if err := ss.snapshotRepo.DeleteByBoardAndDate(ctx, tx, board.ID, today); err != nil {
		return fmt.Errorf("delete today's snapshot: %w", err)
	}
	return ss.CreateSnapshotForDate(ctx, tx, boardID, today)
}

func (ss *snapshotService) CreateDailySnapshots(ctx context.Context) error {
	boards, err := ss.boardRepo.GetAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("list boards: %w", err)
	}
	today := dayOf(ss.now())
	for _, board := range boards {
		if err := ss.CreateSnapshotForDate(ctx, nil, board.ID, today); err != nil {
			ss.log.Warn("Daily snapshot failed, continuing with remaining boards", "board_id", board.ID, "error", err)
		}
	}
	return nil
}

// createForDate computes and persists one day's aggregate. The earliest
// DONE transition per card is a running minimum over the log scan, so the
// result does not depend on the scan order, and a card that later left
// DONE still counts on the day it first arrived there.
func (ss *snapshotService) createForDate(ctx context.Context, tx *gorm.DB, board *types.Board, cards []*types.Card, histories []*types.CardHistory, date time.Time) error {
	existing, err := ss.snapshotRepo.GetByBoardAndDate(ctx, tx, board.ID, date)
	if err != nil {
		return fmt.Errorf("check existing snapshot: %w", err)
	}
	if existing != nil {
		return nil
	}

	cutoff := endOfDay(date)

	firstDoneAt := make(map[uuid.UUID]time.Time)
	for _, h := range histories {
		if h.ToStatus != types.StatusDone || h.ChangeDate.After(cutoff) {
			continue
		}
		if seen, ok := firstDoneAt[h.CardID]; !ok || h.ChangeDate.Before(seen) {
			firstDoneAt[h.CardID] = h.ChangeDate
		}
	}

	var (
		totalPoints          float64
		completedPoints      float64
		completedPointsDaily float64
		completedTasks       int
		eligibleCards        int
	)
	for _, card := range cards {
		if dayOf(card.CreatedAt).After(date) {
			continue
		}
		eligibleCards++
		points := card.Points()
		totalPoints += points

		doneAt, done := firstDoneAt[card.ID]
		if !done {
			continue
		}
		completedPoints += points
		completedTasks++
		if dayOf(doneAt).Equal(date) {
			completedPointsDaily += points
		}
	}

	snapshot := &types.DailySnapshot{
		ID:                   uuid.New(),
		BoardID:              board.ID,
		SnapshotDate:         date,
		RemainingPoints:      totalPoints - completedPoints,
		CompletedPoints:      completedPoints,
		CompletedPointsDaily: completedPointsDaily,
		RemainingTasks:       eligibleCards - completedTasks,
		CompletedTasks:       completedTasks,
		CreatedAt:            ss.now().UTC(),
	}
	if _, err := ss.snapshotRepo.Create(ctx, tx, []*types.DailySnapshot{snapshot}); err != nil {
		return fmt.Errorf("persist snapshot: %w", apperr.FromStore(err))
	}
	return nil
}

func (ss *snapshotService) getBoard(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.Board, error) {
	boards, err := ss.boardRepo.GetByIDs(ctx, tx, []uuid.UUID{boardID})
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if len(boards) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("board %s", boardID))
	}
	return boards[0], nil
}
