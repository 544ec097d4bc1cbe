package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/apperr"
	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/types"
)

// CardCreateInput carries the caller-supplied fields for a new card. A zero
// Status defaults to TODO.
type CardCreateInput struct {
	BoardID       uuid.UUID
	Title         string
	Description   string
	Status        types.Status
	Position      *int
	EstimateHours *float64
	ActualHours   *float64
	DueDate       *time.Time
	Metadata      datatypes.JSON
}

// CardUpdateInput carries optional field updates; nil pointers leave the
// field untouched. Status changes go through UpdateStatus, not here.
type CardUpdateInput struct {
	Title         *string
	Description   *string
	EstimateHours *float64
	ActualHours   *float64
	DueDate       *time.Time
}

// CardService is the card lifecycle machine. It owns card status, enforces
// WIP limits and appends to the transition log; nothing else writes card
// status or history.
type CardService interface {
	CreateCard(ctx context.Context, tx *gorm.DB, in CardCreateInput) (*types.Card, error)
	UpdateCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, in CardUpdateInput) (*types.Card, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, newStatus types.Status, actorID uuid.UUID) (*types.Card, error)
	MoveCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, targetStatus types.Status, targetPosition int, actorID uuid.UUID) (*types.Card, error)
	DeleteCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) error
	GetCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) (*types.Card, error)
	GetBoardCards(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.Card, error)
}

type cardService struct {
	db              *gorm.DB
	log             *logger.Logger
	boardRepo       repos.BoardRepo
	cardRepo        repos.CardRepo
	cardHistoryRepo repos.CardHistoryRepo
	now             func() time.Time
}

func NewCardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	boardRepo repos.BoardRepo,
	cardRepo repos.CardRepo,
	cardHistoryRepo repos.CardHistoryRepo,
) CardService {
	return &cardService{
		db:              db,
		log:             baseLog.With("service", "CardService"),
		boardRepo:       boardRepo,
		cardRepo:        cardRepo,
		cardHistoryRepo: cardHistoryRepo,
		now:             time.Now,
	}
}

func (cs *cardService) CreateCard(ctx context.Context, tx *gorm.DB, in CardCreateInput) (*types.Card, error) {
	if tx == nil {
		var created *types.Card
		err := cs.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			var txErr error
			created, txErr = cs.CreateCard(ctx, inner, in)
			return txErr
		})
		return created, err
	}

	board, err := cs.getBoard(ctx, tx, in.BoardID)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = types.StatusTodo
	}
	if _, err := types.ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if status == types.StatusInProgress {
		if err := cs.enforceWipLimit(ctx, tx, board); err != nil {
			return nil, err
		}
	}

	now := cs.now().UTC()
	card := &types.Card{
		ID:            uuid.New(),
		BoardID:       board.ID,
		Title:         in.Title,
		Description:   in.Description,
		Status:        status,
		Position:      in.Position,
		EstimateHours: in.EstimateHours,
		ActualHours:   in.ActualHours,
		DueDate:       in.DueDate,
		Metadata:      in.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := cs.cardRepo.Create(ctx, tx, []*types.Card{card}); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return card, nil
}

func (cs *cardService) UpdateCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, in CardUpdateInput) (*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = cs.db
	}

	card, err := cs.getCard(ctx, transaction, cardID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.EstimateHours != nil {
		updates["estimate_hours"] = *in.EstimateHours
	}
	if in.ActualHours != nil {
		updates["actual_hours"] = *in.ActualHours
	}
	if in.DueDate != nil {
		updates["due_date"] = *in.DueDate
	}
	if len(updates) == 0 {
		return card, nil
	}
	updates["updated_at"] = cs.now().UTC()
	if err := cs.cardRepo.UpdateFields(ctx, transaction, card.ID, updates); err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return cs.getCard(ctx, transaction, cardID)
}

func (cs *cardService) UpdateStatus(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, newStatus types.Status, actorID uuid.UUID) (*types.Card, error) {
	if tx == nil {
		var updated *types.Card
		err := cs.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			var txErr error
			updated, txErr = cs.UpdateStatus(ctx, inner, cardID, newStatus, actorID)
			return txErr
		})
		return updated, err
	}

	if _, err := types.ParseStatus(string(newStatus)); err != nil {
		return nil, err
	}

	card, err := cs.getCard(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}
	if card.Status == newStatus {
		return card, nil
	}

	board, err := cs.getBoard(ctx, tx, card.BoardID)
	if err != nil {
		return nil, err
	}
	if newStatus == types.StatusInProgress {
		if err := cs.enforceWipLimit(ctx, tx, board); err != nil {
			return nil, err
		}
	}

	if err := cs.transition(ctx, tx, card, newStatus, actorID); err != nil {
		return nil, err
	}
	return cs.getCard(ctx, tx, cardID)
}

func (cs *cardService) MoveCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, targetStatus types.Status, targetPosition int, actorID uuid.UUID) (*types.Card, error) {
	if tx == nil {
		var moved *types.Card
		err := cs.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			var txErr error
			moved, txErr = cs.MoveCard(ctx, inner, cardID, targetStatus, targetPosition, actorID)
			return txErr
		})
		return moved, err
	}

	if _, err := types.ParseStatus(string(targetStatus)); err != nil {
		return nil, err
	}

	card, err := cs.getCard(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}

	statusChanged := card.Status != targetStatus
	updates := map[string]interface{}{
		"position":   targetPosition,
		"updated_at": cs.now().UTC(),
	}
	if statusChanged {
		if err := cs.transition(ctx, tx, card, targetStatus, actorID); err != nil {
			return nil, err
		}
	}
	if err := cs.cardRepo.UpdateFields(ctx, tx, card.ID, updates); err != nil {
		return nil, fmt.Errorf("move card: %w", err)
	}

	// Full re-pack of the target column: 0..n-1 in current position order.
	column, err := cs.cardRepo.GetByBoardAndStatus(ctx, tx, card.BoardID, targetStatus)
	if err != nil {
		return nil, fmt.Errorf("load target column: %w", err)
	}
	for i, c := range column {
		if c.Position != nil && *c.Position == i {
			continue
		}
		if err := cs.cardRepo.UpdateFields(ctx, tx, c.ID, map[string]interface{}{"position": i}); err != nil {
			return nil, fmt.Errorf("resequence card positions: %w", err)
		}
	}

	return cs.getCard(ctx, tx, cardID)
}

func (cs *cardService) DeleteCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) error {
	if tx == nil {
		return cs.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			return cs.DeleteCard(ctx, inner, cardID)
		})
	}
	card, err := cs.getCard(ctx, tx, cardID)
	if err != nil {
		return err
	}
	// Transition records only ever leave the log with their card.
	if err := cs.cardHistoryRepo.DeleteByCardID(ctx, tx, card.ID); err != nil {
		return fmt.Errorf("delete card history: %w", err)
	}
	if err := cs.cardRepo.Delete(ctx, tx, card.ID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

func (cs *cardService) GetCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) (*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = cs.db
	}
	return cs.getCard(ctx, transaction, cardID)
}

func (cs *cardService) GetBoardCards(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = cs.db
	}
	if _, err := cs.getBoard(ctx, transaction, boardID); err != nil {
		return nil, err
	}
	return cs.cardRepo.GetByBoardID(ctx, transaction, boardID)
}

// transition flips the card's status and appends the matching history
// record. Callers have already established the change is real.
func (cs *cardService) transition(ctx context.Context, tx *gorm.DB, card *types.Card, newStatus types.Status, actorID uuid.UUID) error {
	now := cs.now().UTC()
	if err := cs.cardRepo.UpdateFields(ctx, tx, card.ID, map[string]interface{}{
		"status":     newStatus,
		"updated_at": now,
	}); err != nil {
		return fmt.Errorf("update card status: %w", err)
	}
	record := &types.CardHistory{
		CardID:     card.ID,
		BoardID:    card.BoardID,
		FromStatus: card.Status,
		ToStatus:   newStatus,
		ChangeDate: now,
		ActorID:    actorID,
	}
	if _, err := cs.cardHistoryRepo.Append(ctx, tx, []*types.CardHistory{record}); err != nil {
		return fmt.Errorf("append transition record: %w", err)
	}
	return nil
}

// enforceWipLimit fails with CapacityExceeded when the board's IN_PROGRESS
// count already sits at or above its positive WIP limit. Check-then-act:
// concurrent transitions can both pass, which is accepted as a best-effort
// guard rather than a hard invariant.
func (cs *cardService) enforceWipLimit(ctx context.Context, tx *gorm.DB, board *types.Board) error {
	if board.WipLimit == nil || *board.WipLimit <= 0 {
		return nil
	}
	count, err := cs.cardRepo.CountByBoardAndStatus(ctx, tx, board.ID, types.StatusInProgress)
	if err != nil {
		return fmt.Errorf("count in-progress cards: %w", err)
	}
	if count >= int64(*board.WipLimit) {
		return apperr.CapacityExceeded(fmt.Sprintf("board %s has %d of %d cards in progress", board.ID, count, *board.WipLimit))
	}
	return nil
}

func (cs *cardService) getCard(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) (*types.Card, error) {
	cards, err := cs.cardRepo.GetByIDs(ctx, tx, []uuid.UUID{cardID})
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	if len(cards) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("card %s", cardID))
	}
	return cards[0], nil
}

func (cs *cardService) getBoard(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.Board, error) {
	boards, err := cs.boardRepo.GetByIDs(ctx, tx, []uuid.UUID{boardID})
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if len(boards) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("board %s", boardID))
	}
	return boards[0], nil
}
