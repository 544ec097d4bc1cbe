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

// BurndownPoint is one day on the burndown chart. Remaining is nil for
// future days that have no snapshot yet.
type BurndownPoint struct {
	Date           time.Time `json:"date"`
	Remaining      *float64  `json:"remaining"`
	Ideal          float64   `json:"ideal"`
	CompletedDaily float64   `json:"completed_daily"`
}

// WeeklyVelocity aggregates snapshots over one Monday-started week.
type WeeklyVelocity struct {
	WeekLabel       string    `json:"week_label"`
	WeekStart       time.Time `json:"week_start"`
	WeekEnd         time.Time `json:"week_end"`
	CompletedPoints float64   `json:"completed_points"`
	CompletedTasks  int       `json:"completed_tasks"`
}

type BurndownResponse struct {
	BurndownData      []BurndownPoint  `json:"burndown_data"`
	VelocityData      []WeeklyVelocity `json:"velocity_data"`
	AverageVelocity   float64          `json:"average_velocity"`
	TotalPoints       float64          `json:"total_points"`
	CompletedPoints   float64          `json:"completed_points"`
	RemainingPoints   float64          `json:"remaining_points"`
	EstimatedEndDate  *time.Time       `json:"estimated_end_date"`
	ProjectDeadline   *time.Time       `json:"project_deadline"`
	DaysAheadOrBehind *int             `json:"days_ahead_or_behind"`
	ProjectHealth     string           `json:"project_health"`
}

const (
	HealthOnTrack = "ON_TRACK"
	HealthAtRisk  = "AT_RISK"
	HealthDelayed = "DELAYED"
)

// BurndownService is the read side of the analytics core: it folds the
// snapshot series into burndown points, weekly velocity buckets, a forecast
// completion date and a health classification. It persists nothing beyond
// the snapshot backfill it triggers.
type BurndownService interface {
	GetBurndownData(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*BurndownResponse, error)
}

type burndownService struct {
	db           *gorm.DB
	log          *logger.Logger
	boardRepo    repos.BoardRepo
	cardRepo     repos.CardRepo
	snapshotRepo repos.SnapshotRepo
	snapshots    SnapshotService
	now          func() time.Time
}

func NewBurndownService(
	db *gorm.DB,
	baseLog *logger.Logger,
	boardRepo repos.BoardRepo,
	cardRepo repos.CardRepo,
	snapshotRepo repos.SnapshotRepo,
	snapshots SnapshotService,
) BurndownService {
	return &burndownService{
		db:           db,
		log:          baseLog.With("service", "BurndownService"),
		boardRepo:    boardRepo,
		cardRepo:     cardRepo,
		snapshotRepo: snapshotRepo,
		snapshots:    snapshots,
		now:          time.Now,
	}
}

func (bs *burndownService) GetBurndownData(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*BurndownResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = bs.db
	}

	boards, err := bs.boardRepo.GetByIDs(ctx, transaction, []uuid.UUID{boardID})
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if len(boards) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("board %s", boardID))
	}
	board := boards[0]

	if err := bs.snapshots.EnsureSnapshotsExist(ctx, transaction, board.ID); err != nil {
		return nil, fmt.Errorf("ensure snapshots: %w", err)
	}

	cards, err := bs.cardRepo.GetByBoardID(ctx, transaction, board.ID)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	snapshots, err := bs.snapshotRepo.GetByBoardID(ctx, transaction, board.ID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	var totalPoints, completedPoints float64
	for _, card := range cards {
		totalPoints += card.Points()
		if card.Status == types.StatusDone {
			completedPoints += card.Points()
		}
	}
	remainingPoints := totalPoints - completedPoints

	burndownData := bs.buildBurndownData(board, snapshots, totalPoints)
	velocityData := bs.buildVelocityData(snapshots)
	averageVelocity := bs.averageVelocity(velocityData)
	estimatedEndDate := bs.estimatedEndDate(remainingPoints, averageVelocity)

	var daysAheadOrBehind *int
	health := HealthOnTrack
	if board.EndDate != nil && estimatedEndDate != nil {
		slack := daysBetween(*estimatedEndDate, *board.EndDate)
		daysAheadOrBehind = &slack
		switch {
		case slack < 0:
			health = HealthDelayed
		case slack <= 3:
			health = HealthAtRisk
		}
	}

	return &BurndownResponse{
		BurndownData:      burndownData,
		VelocityData:      velocityData,
		AverageVelocity:   averageVelocity,
		TotalPoints:       totalPoints,
		CompletedPoints:   completedPoints,
		RemainingPoints:   remainingPoints,
		EstimatedEndDate:  estimatedEndDate,
		ProjectDeadline:   board.EndDate,
		DaysAheadOrBehind: daysAheadOrBehind,
		ProjectHealth:     health,
	}, nil
}

// buildBurndownData walks the chart window day by day. The ideal line
// decays linearly from the initial total; the actual line carries the last
// known remaining value forward across snapshot gaps in the past and stays
// absent for future days.
func (bs *burndownService) buildBurndownData(board *types.Board, snapshots []*types.DailySnapshot, totalPoints float64) []BurndownPoint {
	if len(snapshots) == 0 {
		return []BurndownPoint{}
	}

	startDate := dayOf(snapshots[0].SnapshotDate)
	endDate := dayOf(bs.now()).AddDate(0, 0, 14)
	if board.EndDate != nil {
		endDate = dayOf(*board.EndDate)
	}
	totalDays := daysBetween(startDate, endDate)

	byDate := make(map[time.Time]*types.DailySnapshot, len(snapshots))
	for _, s := range snapshots {
		byDate[dayOf(s.SnapshotDate)] = s
	}

	today := dayOf(bs.now())
	lastRemaining := totalPoints
	var result []BurndownPoint

	for date, dayIndex := startDate, 0; !date.After(endDate); date, dayIndex = date.AddDate(0, 0, 1), dayIndex+1 {
		ideal := 0.0
		if totalDays > 0 {
			ideal = math.Max(0, totalPoints-totalPoints*float64(dayIndex)/float64(totalDays))
		}

		var remaining *float64
		completedDaily := 0.0
		if s, ok := byDate[date]; ok {
			v := s.RemainingPoints
			remaining = &v
			completedDaily = s.CompletedPointsDaily
		} else if !date.After(today) {
			v := lastRemaining
			remaining = &v
		}
		if remaining != nil {
			lastRemaining = *remaining
		}

		result = append(result, BurndownPoint{
			Date:           date,
			Remaining:      remaining,
			Ideal:          ideal,
			CompletedDaily: completedDaily,
		})
	}
	return result
}

// buildVelocityData groups snapshots by the Monday starting their week.
// Weekly points sum the per-day values; weekly tasks diff the cumulative
// counters between the week's edges, clamped at zero since completion can
// reverse.
func (bs *burndownService) buildVelocityData(snapshots []*types.DailySnapshot) []WeeklyVelocity {
	if len(snapshots) == 0 {
		return []WeeklyVelocity{}
	}

	var result []WeeklyVelocity
	weekNumber := 0
	var cur *WeeklyVelocity
	var firstOfWeek, lastOfWeek *types.DailySnapshot

	flush := func() {
		if cur == nil {
			return
		}
		cur.CompletedTasks = lastOfWeek.CompletedTasks - firstOfWeek.CompletedTasks
		if cur.CompletedTasks < 0 {
			cur.CompletedTasks = 0
		}
		result = append(result, *cur)
	}

	for _, s := range snapshots {
		weekStart := mondayOf(dayOf(s.SnapshotDate))
		if cur == nil || !cur.WeekStart.Equal(weekStart) {
			flush()
			weekNumber++
			weekEnd := weekStart.AddDate(0, 0, 6)
			cur = &WeeklyVelocity{
				WeekLabel: fmt.Sprintf("Week %d (%s - %s)", weekNumber, weekStart.Format("02/01"), weekEnd.Format("02/01")),
				WeekStart: weekStart,
				WeekEnd:   weekEnd,
			}
			firstOfWeek = s
		}
		cur.CompletedPoints += s.CompletedPointsDaily
		lastOfWeek = s
	}
	flush()
	return result
}

// averageVelocity means over weeks that have fully elapsed; if none have,
// the still-open weeks are all it can use.
func (bs *burndownService) averageVelocity(velocityData []WeeklyVelocity) float64 {
	if len(velocityData) == 0 {
		return 0
	}
	today := dayOf(bs.now())

	var sum float64
	var count int
	for _, week := range velocityData {
		if week.WeekEnd.Before(today) {
			sum += week.CompletedPoints
			count++
		}
	}
	if count == 0 {
		for _, week := range velocityData {
			sum += week.CompletedPoints
		}
		count = len(velocityData)
	}
	return sum / float64(count)
}

// estimatedEndDate projects remaining work at the average weekly pace.
// Already-done boards forecast today; zero velocity yields no forecast.
func (bs *burndownService) estimatedEndDate(remainingPoints, averageVelocity float64) *time.Time {
	today := dayOf(bs.now())
	if remainingPoints <= 0 {
		return &today
	}
	if averageVelocity <= 0 {
		return nil
	}
	weeksNeeded := remainingPoints / averageVelocity
	daysNeeded := int(math.Round(weeksNeeded * 7))
	end := today.AddDate(0, 0, daysNeeded)
	return &end
}
