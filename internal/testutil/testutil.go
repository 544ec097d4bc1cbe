package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/taskforge/taskforge-backend/internal/db"
	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/types"
)

// NewDB opens a fresh in-memory sqlite database with the full schema.
// Every test gets its own database, so tests can run in parallel.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return conn
}

// NewLogger returns a development-mode logger for tests.
func NewLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// SeedUser inserts a user with a throwaway identity.
func SeedUser(t *testing.T, conn *gorm.DB) *types.User {
	t.Helper()
	now := time.Now().UTC()
	user := &types.User{
		ID:        uuid.New(),
		Email:     uuid.New().String() + "@example.com",
		Password:  "hashed",
		FirstName: "Test",
		LastName:  "User",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedBoard inserts a board created at the given time, owned by creator.
func SeedBoard(t *testing.T, conn *gorm.DB, creator uuid.UUID, createdAt time.Time) *types.Board {
	t.Helper()
	board := &types.Board{
		ID:        uuid.New(),
		Name:      "Test Board",
		CreatorID: creator,
		Status:    types.BoardStatusInProgress,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := conn.Create(board).Error; err != nil {
		t.Fatalf("seed board: %v", err)
	}
	return board
}

// SeedCard inserts a card on the board with the given status and estimate.
func SeedCard(t *testing.T, conn *gorm.DB, boardID uuid.UUID, status types.Status, estimate float64, createdAt time.Time) *types.Card {
	t.Helper()
	card := &types.Card{
		ID:            uuid.New(),
		BoardID:       boardID,
		Title:         "Test Card",
		Status:        status,
		EstimateHours: &estimate,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := conn.Create(card).Error; err != nil {
		t.Fatalf("seed card: %v", err)
	}
	return card
}

// SeedTransition appends a history record for the card.
func SeedTransition(t *testing.T, conn *gorm.DB, card *types.Card, from, to types.Status, at time.Time, actor uuid.UUID) *types.CardHistory {
	t.Helper()
	record := &types.CardHistory{
		CardID:     card.ID,
		BoardID:    card.BoardID,
		FromStatus: from,
		ToStatus:   to,
		ChangeDate: at,
		ActorID:    actor,
	}
	if err := conn.Create(record).Error; err != nil {
		t.Fatalf("seed transition: %v", err)
	}
	return record
}
