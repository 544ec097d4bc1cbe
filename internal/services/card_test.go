package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/apperr"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/testutil"
	"github.com/taskforge/taskforge-backend/internal/types"
)

func newCardService(t *testing.T, conn *gorm.DB, now time.Time) *cardService {
	t.Helper()
	log := testutil.NewLogger(t)
	cs := NewCardService(
		conn, log,
		repos.NewBoardRepo(conn, log),
		repos.NewCardRepo(conn, log),
		repos.NewCardHistoryRepo(conn, log),
	).(*cardService)
	cs.now = func() time.Time { return now }
	return cs
}

func TestUpdateStatusRecordsTransition(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	cs := newCardService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, now.AddDate(0, 0, -5))
	card := testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 2, now.AddDate(0, 0, -5))

	updated, err := cs.UpdateStatus(context.Background(), nil, card.ID, types.StatusInProgress, user.ID)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != types.StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", updated.Status)
	}

	var history []*types.CardHistory
	if err := conn.Where("card_id = ?", card.ID).Find(&history).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(history))
	}
	if history[0].FromStatus != types.StatusTodo || history[0].ToStatus != types.StatusInProgress {
		t.Fatalf("transition = %s -> %s, want TODO -> IN_PROGRESS", history[0].FromStatus, history[0].ToStatus)
	}
	if history[0].ActorID != user.ID {
		t.Fatalf("actor = %s, want %s", history[0].ActorID, user.ID)
	}

	// Same-status update is a no-op and must not grow the log.
	if _, err := cs.UpdateStatus(context.Background(), nil, card.ID, types.StatusInProgress, user.ID); err != nil {
		t.Fatalf("no-op UpdateStatus: %v", err)
	}
	var count int64
	if err := conn.Model(&types.CardHistory{}).Where("card_id = ?", card.ID).Count(&count).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	if count != 1 {
		t.Fatalf("history rows after no-op = %d, want 1", count)
	}
}

func TestInvalidStatusRejected(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	cs := newCardService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, now.AddDate(0, 0, -1))
	card := testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 1, now.AddDate(0, 0, -1))

	if _, err := cs.UpdateStatus(context.Background(), nil, card.ID, types.Status("BLOCKED"), user.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestWipLimitBlocksEntryIntoInProgress(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	cs := newCardService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, now.AddDate(0, 0, -5))
	if err := conn.Model(&types.Board{}).Where("id = ?", board.ID).Update("wip_limit", 2).Error; err != nil {
		t.Fatalf("set wip limit: %v", err)
	}

	testutil.SeedCard(t, conn, board.ID, types.StatusInProgress, 1, now.AddDate(0, 0, -5))
	testutil.SeedCard(t, conn, board.ID, types.StatusInProgress, 1, now.AddDate(0, 0, -5))
	blocked := testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 1, now.AddDate(0, 0, -5))

	_, err := cs.UpdateStatus(context.Background(), nil, blocked.ID, types.StatusInProgress, user.ID)
	if !errors.Is(err, apperr.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}

	// The limit only guards entry into IN_PROGRESS.
	if _, err := cs.UpdateStatus(context.Background(), nil, blocked.ID, types.StatusDone, user.ID); err != nil {
		t.Fatalf("UpdateStatus to DONE: %v", err)
	}

	// Creating straight into the full column is blocked too.
	_, err = cs.CreateCard(context.Background(), nil, CardCreateInput{
		BoardID: board.ID,
		Title:   "one too many",
		Status:  types.StatusInProgress,
	})
	if !errors.Is(err, apperr.ErrCapacityExceeded) {
		t.Fatalf("CreateCard err = %v, want ErrCapacityExceeded", err)
	}
}

func TestMoveCardRepacksColumn(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	cs := newCardService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, now.AddDate(0, 0, -5))

	a := testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 1, now.AddDate(0, 0, -5))
	b := testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 1, now.AddDate(0, 0, -5))
	c := testutil.SeedCard(t, conn, board.ID, types.StatusDone, 1, now.AddDate(0, 0, -5))
	for i, card := range []*types.Card{a, b} {
		if err := conn.Model(&types.Card{}).Where("id = ?", card.ID).Update("position", i).Error; err != nil {
			t.Fatalf("set position: %v", err)
		}
	}

	// Target position beyond the column end lands the card last.
	moved, err := cs.MoveCard(context.Background(), nil, c.ID, types.StatusTodo, 5, user.ID)
	if err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	if moved.Status != types.StatusTodo {
		t.Fatalf("status = %s, want TODO", moved.Status)
	}

	wantPositions := map[uuid.UUID]int{a.ID: 0, b.ID: 1, c.ID: 2}
	var column []*types.Card
	if err := conn.Where("board_id = ? AND status = ?", board.ID, types.StatusTodo).Find(&column).Error; err != nil {
		t.Fatalf("load column: %v", err)
	}
	if len(column) != 3 {
		t.Fatalf("column size = %d, want 3", len(column))
	}
	for _, card := range column {
		if card.Position == nil {
			t.Fatalf("card %s has no position after re-pack", card.ID)
		}
		if want := wantPositions[card.ID]; *card.Position != want {
			t.Fatalf("card %s position = %d, want %d", card.ID, *card.Position, want)
		}
	}

	// The cross-column move is a real transition.
	var history []*types.CardHistory
	if err := conn.Where("card_id = ?", c.ID).Find(&history).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(history) != 1 || history[0].FromStatus != types.StatusDone || history[0].ToStatus != types.StatusTodo {
		t.Fatalf("expected one DONE -> TODO record, got %+v", history)
	}
}

func TestDeleteCardRemovesItsHistory(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	cs := newCardService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, now.AddDate(0, 0, -5))
	card := testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 1, now.AddDate(0, 0, -5))
	testutil.SeedTransition(t, conn, card, types.StatusTodo, types.StatusDone, now.AddDate(0, 0, -1), user.ID)

	if err := cs.DeleteCard(context.Background(), nil, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	var count int64
	if err := conn.Model(&types.CardHistory{}).Where("card_id = ?", card.ID).Count(&count).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	if count != 0 {
		t.Fatalf("history rows after delete = %d, want 0", count)
	}

	if _, err := cs.GetCard(context.Background(), nil, card.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetCard err = %v, want ErrNotFound", err)
	}
}
