package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/testutil"
	"github.com/taskforge/taskforge-backend/internal/types"
)

func newSnapshotService(t *testing.T, conn *gorm.DB, now time.Time) *snapshotService {
	t.Helper()
	log := testutil.NewLogger(t)
	ss := NewSnapshotService(
		conn, log,
		repos.NewBoardRepo(conn, log),
		repos.NewCardRepo(conn, log),
		repos.NewCardHistoryRepo(conn, log),
		repos.NewSnapshotRepo(conn, log),
	).(*snapshotService)
	ss.now = func() time.Time { return now }
	return ss
}

func loadSnapshots(t *testing.T, conn *gorm.DB, boardID uuid.UUID) []*types.DailySnapshot {
	t.Helper()
	var snapshots []*types.DailySnapshot
	if err := conn.Where("board_id = ?", boardID).Order("snapshot_date ASC").Find(&snapshots).Error; err != nil {
		t.Fatalf("load snapshots: %v", err)
	}
	return snapshots
}

func TestCreateSnapshotForDateIsIdempotent(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	ss := newSnapshotService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 3, board.CreatedAt)

	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := ss.CreateSnapshotForDate(context.Background(), nil, board.ID, date); err != nil {
			t.Fatalf("CreateSnapshotForDate run %d: %v", i, err)
		}
	}

	snapshots := loadSnapshots(t, conn, board.ID)
	if len(snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snapshots))
	}
	if snapshots[0].RemainingPoints != 3 || snapshots[0].CompletedPoints != 0 {
		t.Fatalf("snapshot = %+v, want remaining 3 / completed 0", snapshots[0])
	}
}

func TestEnsureSnapshotsBackfillsEveryDay(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	ss := newSnapshotService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 2, board.CreatedAt)
	testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 2, board.CreatedAt)

	if err := ss.EnsureSnapshotsExist(context.Background(), nil, board.ID); err != nil {
		t.Fatalf("EnsureSnapshotsExist: %v", err)
	}

	snapshots := loadSnapshots(t, conn, board.ID)
	if len(snapshots) != 10 {
		t.Fatalf("snapshots = %d, want 10 (creation day through today)", len(snapshots))
	}
	for i, s := range snapshots {
		want := time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		if !dayOf(s.SnapshotDate).Equal(want) {
			t.Fatalf("snapshot %d date = %v, want %v", i, s.SnapshotDate, want)
		}
		if s.RemainingPoints+s.CompletedPoints != 4 {
			t.Fatalf("snapshot %d remaining %v + completed %v != total 4", i, s.RemainingPoints, s.CompletedPoints)
		}
	}

	// A second run finds nothing to add.
	if err := ss.EnsureSnapshotsExist(context.Background(), nil, board.ID); err != nil {
		t.Fatalf("second EnsureSnapshotsExist: %v", err)
	}
	if again := loadSnapshots(t, conn, board.ID); len(again) != 10 {
		t.Fatalf("snapshots after rerun = %d, want 10", len(again))
	}
}

func TestSnapshotAggregatesCompletionDay(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	ss := newSnapshotService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	doneAt := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		card := testutil.SeedCard(t, conn, board.ID, types.StatusDone, 2, board.CreatedAt)
		testutil.SeedTransition(t, conn, card, types.StatusTodo, types.StatusDone, doneAt, user.ID)
	}

	if err := ss.CreateSnapshotForDate(context.Background(), nil, board.ID, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("snapshot for 01-07: %v", err)
	}
	if err := ss.CreateSnapshotForDate(context.Background(), nil, board.ID, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("snapshot for 01-08: %v", err)
	}

	snapshots := loadSnapshots(t, conn, board.ID)
	if len(snapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snapshots))
	}

	before, after := snapshots[0], snapshots[1]
	if before.CompletedPoints != 0 || before.RemainingPoints != 8 || before.CompletedPointsDaily != 0 {
		t.Fatalf("day before completion = %+v, want 0 completed / 8 remaining", before)
	}
	if after.CompletedPoints != 8 || after.RemainingPoints != 0 {
		t.Fatalf("completion day = %+v, want 8 completed / 0 remaining", after)
	}
	if after.CompletedPointsDaily != 8 {
		t.Fatalf("completion day daily = %v, want 8", after.CompletedPointsDaily)
	}
	if after.CompletedTasks != 4 || after.RemainingTasks != 0 {
		t.Fatalf("completion day tasks = %d done / %d remaining, want 4 / 0", after.CompletedTasks, after.RemainingTasks)
	}
}

func TestSnapshotUsesEarliestDoneTransition(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	ss := newSnapshotService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	// Done on the 3rd, reopened on the 5th, done again on the 9th. The
	// earliest DONE transition pins the completion day.
	card := testutil.SeedCard(t, conn, board.ID, types.StatusDone, 5, board.CreatedAt)
	testutil.SeedTransition(t, conn, card, types.StatusTodo, types.StatusDone, time.Date(2024, 1, 3, 11, 0, 0, 0, time.UTC), user.ID)
	testutil.SeedTransition(t, conn, card, types.StatusDone, types.StatusInProgress, time.Date(2024, 1, 5, 11, 0, 0, 0, time.UTC), user.ID)
	testutil.SeedTransition(t, conn, card, types.StatusInProgress, types.StatusDone, time.Date(2024, 1, 9, 11, 0, 0, 0, time.UTC), user.ID)

	for _, day := range []int{2, 3, 4} {
		date := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
		if err := ss.CreateSnapshotForDate(context.Background(), nil, board.ID, date); err != nil {
			t.Fatalf("snapshot for 01-%02d: %v", day, err)
		}
	}

	snapshots := loadSnapshots(t, conn, board.ID)
	if snapshots[0].CompletedPoints != 0 {
		t.Fatalf("01-02 completed = %v, want 0", snapshots[0].CompletedPoints)
	}
	if snapshots[1].CompletedPoints != 5 || snapshots[1].CompletedPointsDaily != 5 {
		t.Fatalf("01-03 = %+v, want completed 5 / daily 5", snapshots[1])
	}
	if snapshots[2].CompletedPoints != 5 || snapshots[2].CompletedPointsDaily != 0 {
		t.Fatalf("01-04 = %+v, want completed 5 / daily 0", snapshots[2])
	}
}

func TestSnapshotExcludesCardsCreatedLater(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	ss := newSnapshotService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 2, board.CreatedAt)
	testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 3, time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC))

	if err := ss.CreateSnapshotForDate(context.Background(), nil, board.ID, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("snapshot for 01-03: %v", err)
	}
	if err := ss.CreateSnapshotForDate(context.Background(), nil, board.ID, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("snapshot for 01-06: %v", err)
	}

	snapshots := loadSnapshots(t, conn, board.ID)
	if snapshots[0].RemainingPoints != 2 {
		t.Fatalf("01-03 remaining = %v, want 2 (late card excluded)", snapshots[0].RemainingPoints)
	}
	if snapshots[1].RemainingPoints != 5 {
		t.Fatalf("01-06 remaining = %v, want 5", snapshots[1].RemainingPoints)
	}
}

func TestUpdateTodaySnapshotRecomputes(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	ss := newSnapshotService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	board := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	card := testutil.SeedCard(t, conn, board.ID, types.StatusTodo, 4, board.CreatedAt)

	if err := ss.UpdateTodaySnapshot(context.Background(), nil, board.ID); err != nil {
		t.Fatalf("UpdateTodaySnapshot: %v", err)
	}
	snapshots := loadSnapshots(t, conn, board.ID)
	if len(snapshots) != 1 || snapshots[0].CompletedPoints != 0 {
		t.Fatalf("initial today snapshot = %+v, want 1 row with 0 completed", snapshots)
	}

	// The card finishes later the same day; the refresh must see it.
	if err := conn.Model(&types.Card{}).Where("id = ?", card.ID).Update("status", types.StatusDone).Error; err != nil {
		t.Fatalf("finish card: %v", err)
	}
	testutil.SeedTransition(t, conn, card, types.StatusTodo, types.StatusDone, now, user.ID)

	if err := ss.UpdateTodaySnapshot(context.Background(), nil, board.ID); err != nil {
		t.Fatalf("second UpdateTodaySnapshot: %v", err)
	}
	snapshots = loadSnapshots(t, conn, board.ID)
	if len(snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snapshots))
	}
	if snapshots[0].CompletedPoints != 4 || snapshots[0].RemainingPoints != 0 {
		t.Fatalf("refreshed snapshot = %+v, want 4 completed / 0 remaining", snapshots[0])
	}
}

func TestCreateDailySnapshotsCoversAllBoards(t *testing.T) {
	conn := testutil.NewDB(t)
	now := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	ss := newSnapshotService(t, conn, now)

	user := testutil.SeedUser(t, conn)
	first := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))
	second := testutil.SeedBoard(t, conn, user.ID, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	testutil.SeedCard(t, conn, first.ID, types.StatusTodo, 1, first.CreatedAt)
	testutil.SeedCard(t, conn, second.ID, types.StatusTodo, 1, second.CreatedAt)

	if err := ss.CreateDailySnapshots(context.Background()); err != nil {
		t.Fatalf("CreateDailySnapshots: %v", err)
	}

	for _, board := range []uuid.UUID{first.ID, second.ID} {
		snapshots := loadSnapshots(t, conn, board)
		if len(snapshots) != 1 {
			t.Fatalf("board %s snapshots = %d, want 1", board, len(snapshots))
		}
		if !dayOf(snapshots[0].SnapshotDate).Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("snapshot date = %v, want today", snapshots[0].SnapshotDate)
		}
	}
}
