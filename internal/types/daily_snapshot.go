package types

import (
	"time"

	"github.com/google/uuid"
)

// DailySnapshot is one persisted per-day aggregate of a board's progress.
// Historical days are immutable once elapsed; today's snapshot may be
// deleted and recreated to reflect same-day changes.
type DailySnapshot struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BoardID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_board_snapshot_date;column:board_id" json:"board_id"`
	// SnapshotDate is the calendar day, normalized to midnight UTC.
	SnapshotDate time.Time `gorm:"not null;uniqueIndex:ux_board_snapshot_date;column:snapshot_date" json:"snapshot_date"`
	// RemainingPoints + CompletedPoints always equals the total points of
	// cards created on or before SnapshotDate.
	RemainingPoints      float64 `gorm:"not null;column:remaining_points" json:"remaining_points"`
	CompletedPoints      float64 `gorm:"not null;column:completed_points" json:"completed_points"`
	CompletedPointsDaily float64 `gorm:"not null;column:completed_points_daily" json:"completed_points_daily"`
	RemainingTasks       int     `gorm:"not null;column:remaining_tasks" json:"remaining_tasks"`
	CompletedTasks       int     `gorm:"not null;column:completed_tasks" json:"completed_tasks"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
}

func (DailySnapshot) TableName() string {
	return "daily_snapshot"
}
