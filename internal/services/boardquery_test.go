package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/testutil"
	"github.com/taskforge/taskforge-backend/internal/types"
)

func newBoardQueryService(t *testing.T, conn *gorm.DB, now time.Time) *boardQueryService {
	t.Helper()
	log := testutil.NewLogger(t)
	qs := NewBoardQueryService(
		conn, log,
		repos.NewBoardRepo(conn, log),
		repos.NewCardRepo(conn, log),
		repos.NewCardHistoryRepo(conn, log),
	).(*boardQueryService)
	qs.now = func() time.Time { return now }
	return qs
}

func TestGetProgressCountsDoneCards(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	qs := newBoardQueryService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, now.AddDate(0, 0, -5))
	testutil.SeedCard(t, conn, board.ID, types.StatusDone, 1, board.CreatedAt)
	testutil.SeedCard(t, conn, board.ID, types.StatusInProgress, 1, board.CreatedAt)
	testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 1, board.CreatedAt)

	progress, err := qs.GetProgress(context.Background(), nil, board.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if progress.Total != 3 || progress.Done != 1 {
		t.Fatalf("progress = %+v, want 3 total / 1 done", progress)
	}
}

func TestCheckAndUpdateBoardStatus(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	qs := newBoardQueryService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, now.AddDate(0, 0, -5))
	card := testutil.SeedCard(t, conn, board.ID, types.StatusDone, 1, board.CreatedAt)

	updated, err := qs.CheckAndUpdateBoardStatus(context.Background(), nil, board.ID)
	if err != nil {
		t.Fatalf("CheckAndUpdateBoardStatus: %v", err)
	}
	if updated.Status != types.BoardStatusDone {
		t.Fatalf("status = %s, want DONE with every card finished", updated.Status)
	}

	// Reopening a card pulls the board back.
	if err := conn.Model(&types.Card{}).Where("id = ?", card.ID).Update("status", types.StatusInProgress).Error; err != nil {
		t.Fatalf("reopen card: %v", err)
	}
	updated, err = qs.CheckAndUpdateBoardStatus(context.Background(), nil, board.ID)
	if err != nil {
		t.Fatalf("second CheckAndUpdateBoardStatus: %v", err)
	}
	if updated.Status != types.BoardStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS after reopen", updated.Status)
	}
}

func TestCheckStatusIgnoresEmptyBoard(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	qs := newBoardQueryService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, now.AddDate(0, 0, -5))

	updated, err := qs.CheckAndUpdateBoardStatus(context.Background(), nil, board.ID)
	if err != nil {
		t.Fatalf("CheckAndUpdateBoardStatus: %v", err)
	}
	if updated.Status != types.BoardStatusInProgress {
		t.Fatalf("status = %s, want unchanged IN_PROGRESS for empty board", updated.Status)
	}
}

func TestForecastFromCycleTime(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	qs := newBoardQueryService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	// Two finished cards with 4- and 2-day cycles and known actuals.
	fast := testutil.SeedCard(t, conn, board.ID, types.StatusDone, 1, board.CreatedAt)
	testutil.SeedTransition(t, conn, fast, types.StatusTodo, types.StatusDone, board.CreatedAt.AddDate(0, 0, 2), user.ID)
	slow := testutil.SeedCard(t, conn, board.ID, types.StatusDone, 1, board.CreatedAt)
	testutil.SeedTransition(t, conn, slow, types.StatusTodo, types.StatusDone, board.CreatedAt.AddDate(0, 0, 4), user.ID)

	four, eight := 4.0, 8.0
	if err := conn.Model(&types.Card{}).Where("id = ?", fast.ID).Update("actual_hours", four).Error; err != nil {
		t.Fatalf("set actuals: %v", err)
	}
	if err := conn.Model(&types.Card{}).Where("id = ?", slow.ID).Update("actual_hours", eight).Error; err != nil {
		t.Fatalf("set actuals: %v", err)
	}

	testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 1, board.CreatedAt)

	forecast, err := qs.Forecast(context.Background(), nil, board.ID)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	if forecast.TotalCards != 3 || forecast.DoneCards != 2 || forecast.RemainingCards != 1 {
		t.Fatalf("cards = %+v, want 3 total / 2 done / 1 remaining", forecast)
	}
	if forecast.AvgCycleDays != 3 {
		t.Fatalf("avg cycle = %v, want 3", forecast.AvgCycleDays)
	}
	if forecast.AvgActualHours != 6 {
		t.Fatalf("avg actual hours = %v, want 6", forecast.AvgActualHours)
	}
	if forecast.RemainingTimeDays != 3 {
		t.Fatalf("remaining time = %v, want 3", forecast.RemainingTimeDays)
	}
	if forecast.RemainingEffortHours != 6 {
		t.Fatalf("remaining effort = %v, want 6", forecast.RemainingEffortHours)
	}
	wantEnd := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)
	if forecast.EstimatedEndDate == nil || !forecast.EstimatedEndDate.Equal(wantEnd) {
		t.Fatalf("estimated end = %v, want %v", forecast.EstimatedEndDate, wantEnd)
	}
}

func TestForecastWithoutRemainingWork(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	qs := newBoardQueryService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	card := testutil.SeedCard(t, conn, board.ID, types.StatusDone, 1, board.CreatedAt)
	testutil.SeedTransition(t, conn, card, types.StatusTodo, types.StatusDone, board.CreatedAt.AddDate(0, 0, 1), user.ID)

	forecast, err := qs.Forecast(context.Background(), nil, board.ID)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if forecast.RemainingCards != 0 || forecast.RemainingTimeDays != 0 {
		t.Fatalf("forecast = %+v, want no remaining work", forecast)
	}
	if forecast.EstimatedEndDate != nil {
		t.Fatalf("estimated end = %v, want none for a finished board", forecast.EstimatedEndDate)
	}
}

func TestGetHistoryNewestFirst(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	qs := newBoardQueryService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	card := testutil.SeedCard(t, conn, board.ID, types.StatusDone, 1, board.CreatedAt)
	testutil.SeedTransition(t, conn, card, types.StatusTodo, types.StatusInProgress, board.CreatedAt.AddDate(0, 0, 1), user.ID)
	testutil.SeedTransition(t, conn, card, types.StatusInProgress, types.StatusDone, board.CreatedAt.AddDate(0, 0, 3), user.ID)

	history, err := qs.GetHistory(context.Background(), nil, board.ID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d rows, want 2", len(history))
	}
	if !history[0].ChangeDate.After(history[1].ChangeDate) {
		t.Fatalf("history not newest-first: %v then %v", history[0].ChangeDate, history[1].ChangeDate)
	}
}
