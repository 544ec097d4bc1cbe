package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/apperr"
	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/types"
)

// BoardProgress is the done/total task count pair.
type BoardProgress struct {
	Total int `json:"total"`
	Done  int `json:"done"`
}

// BoardForecast is the cycle-time companion to the burndown forecast:
// historical cycle time and actual hours of DONE cards projected over the
// remaining card count.
type BoardForecast struct {
	AvgCycleDays         float64    `json:"avg_cycle_days"`
	AvgActualHours       float64    `json:"avg_actual_hours"`
	TotalCards           int        `json:"total_cards"`
	DoneCards            int        `json:"done_cards"`
	RemainingCards       int        `json:"remaining_cards"`
	RemainingTimeDays    float64    `json:"remaining_time_days"`
	RemainingEffortHours float64    `json:"remaining_effort_hours"`
	EstimatedEndDate     *time.Time `json:"estimated_end_date"`
}

// BoardQueryService serves board-level read models: progress counts, the
// derived board status, the transition history and the cycle-time forecast.
type BoardQueryService interface {
	GetBoard(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.Board, error)
	GetHistory(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.CardHistory, error)
	GetProgress(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*BoardProgress, error)
	// CheckAndUpdateBoardStatus re-derives board DONE/IN_PROGRESS from the
	// card completion ratio and persists a change. Empty boards are left
	// alone.
	CheckAndUpdateBoardStatus(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.Board, error)
	Forecast(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*BoardForecast, error)
}

type boardQueryService struct {
	db          *gorm.DB
	log         *logger.Logger
	boardRepo   repos.BoardRepo
	cardRepo    repos.CardRepo
	historyRepo repos.CardHistoryRepo
	now         func() time.Time
}

func NewBoardQueryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	boardRepo repos.BoardRepo,
	cardRepo repos.CardRepo,
	historyRepo repos.CardHistoryRepo,
) BoardQueryService {
	return &boardQueryService{
		db:          db,
		log:         baseLog.With("service", "BoardQueryService"),
		boardRepo:   boardRepo,
		cardRepo:    cardRepo,
		historyRepo: historyRepo,
		now:         time.Now,
	}
}

func (qs *boardQueryService) GetBoard(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.Board, error) {
	transaction := tx
	if transaction == nil {
		transaction = qs.db
	}
	return qs.getBoard(ctx, transaction, boardID)
}

func (qs *boardQueryService) GetHistory(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.CardHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = qs.db
	}
	if _, err := qs.getBoard(ctx, transaction, boardID); err != nil {
		return nil, err
	}
	return qs.historyRepo.GetByBoardID(ctx, transaction, boardID)
}

func (qs *boardQueryService) GetProgress(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*BoardProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = qs.db
	}
	if _, err := qs.getBoard(ctx, transaction, boardID); err != nil {
		return nil, err
	}
	cards, err := qs.cardRepo.GetByBoardID(ctx, transaction, boardID)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	progress := &BoardProgress{Total: len(cards)}
	for _, card := range cards {
		if card.Status == types.StatusDone {
			progress.Done++
		}
	}
	return progress, nil
}

func (qs *boardQueryService) CheckAndUpdateBoardStatus(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.Board, error) {
	if tx == nil {
		var board *types.Board
		err := qs.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			var txErr error
			board, txErr = qs.CheckAndUpdateBoardStatus(ctx, inner, boardID)
			return txErr
		})
		return board, err
	}

	board, err := qs.getBoard(ctx, tx, boardID)
	if err != nil {
		return nil, err
	}
	cards, err := qs.cardRepo.GetByBoardID(ctx, tx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	if len(cards) == 0 {
		return board, nil
	}

	done := 0
	for _, card := range cards {
		if card.Status == types.StatusDone {
			done++
		}
	}

	var newStatus types.BoardStatus
	switch {
	case done == len(cards) && board.Status != types.BoardStatusDone:
		newStatus = types.BoardStatusDone
	case done < len(cards) && board.Status == types.BoardStatusDone:
		newStatus = types.BoardStatusInProgress
	default:
		return board, nil
	}

	if err := qs.boardRepo.UpdateFields(ctx, tx, board.ID, map[string]interface{}{
		"status":     newStatus,
		"updated_at": qs.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("update board status: %w", err)
	}
	board.Status = newStatus
	return board, nil
}

func (qs *boardQueryService) Forecast(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*BoardForecast, error) {
	transaction := tx
	if transaction == nil {
		transaction = qs.db
	}
	board, err := qs.getBoard(ctx, transaction, boardID)
	if err != nil {
		return nil, err
	}
	cards, err := qs.cardRepo.GetByBoardID(ctx, transaction, board.ID)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	histories, err := qs.historyRepo.GetByBoardID(ctx, transaction, board.ID)
	if err != nil {
		return nil, fmt.Errorf("load transition log: %w", err)
	}

	// Earliest DONE transition per card, a min-fold over the log.
	firstDoneAt := make(map[uuid.UUID]time.Time)
	for _, h := range histories {
		if h.ToStatus != types.StatusDone {
			continue
		}
		if seen, ok := firstDoneAt[h.CardID]; !ok || h.ChangeDate.Before(seen) {
			firstDoneAt[h.CardID] = h.ChangeDate
		}
	}

	var (
		cycleSum    float64
		cycleCount  int
		actualSum   float64
		actualCount int
		doneCards   int
	)
	for _, card := range cards {
		if card.Status != types.StatusDone {
			continue
		}
		doneCards++
		if doneAt, ok := firstDoneAt[card.ID]; ok {
			days := doneAt.Sub(card.CreatedAt).Hours() / 24
			if days < 0 {
				days = 0
			}
			cycleSum += days
			cycleCount++
		}
		if card.ActualHours != nil {
			actualSum += *card.ActualHours
			actualCount++
		}
	}

	avgCycle := 0.0
	if cycleCount > 0 {
		avgCycle = cycleSum / float64(cycleCount)
	}
	avgActualHours := 0.0
	if actualCount > 0 {
		avgActualHours = actualSum / float64(actualCount)
	}

	remaining := len(cards) - doneCards
	remainingTimeDays := float64(remaining) * avgCycle
	remainingEffortHours := float64(remaining) * avgActualHours

	var estimatedEndDate *time.Time
	if remainingTimeDays > 0 {
		end := dayOf(qs.now()).AddDate(0, 0, int(math.Ceil(remainingTimeDays)))
		estimatedEndDate = &end
	}

	return &BoardForecast{
		AvgCycleDays:         avgCycle,
		AvgActualHours:       avgActualHours,
		TotalCards:           len(cards),
		DoneCards:            doneCards,
		RemainingCards:       remaining,
		RemainingTimeDays:    remainingTimeDays,
		RemainingEffortHours: remainingEffortHours,
		EstimatedEndDate:     estimatedEndDate,
	}, nil
}

func (qs *boardQueryService) getBoard(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.Board, error) {
	boards, err := qs.boardRepo.GetByIDs(ctx, tx, []uuid.UUID{boardID})
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if len(boards) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("board %s", boardID))
	}
	return boards[0], nil
}
