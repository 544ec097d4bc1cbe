package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskforge/taskforge-backend/internal/services"
)

// AnalyticsHandler serves the burndown chart, the cycle-time forecast, the
// progress counts and the transition history for a board.
type AnalyticsHandler struct {
	burndownService services.BurndownService
	queryService    services.BoardQueryService
	snapshotService services.SnapshotService
	permissions     services.PermissionService
}

func NewAnalyticsHandler(
	burndownService services.BurndownService,
	queryService services.BoardQueryService,
	snapshotService services.SnapshotService,
	permissions services.PermissionService,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		burndownService: burndownService,
		queryService:    queryService,
		snapshotService: snapshotService,
		permissions:     permissions,
	}
}

func (ah *AnalyticsHandler) requireBoardAccess(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	actor, ok := actorID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	if _, err := ah.permissions.RequireAccess(c.Request.Context(), nil, boardID, actor); err != nil {
		RespondServiceError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return boardID, actor, true
}

func (ah *AnalyticsHandler) Burndown(c *gin.Context) {
	boardID, _, ok := ah.requireBoardAccess(c)
	if !ok {
		return
	}
	data, err := ah.burndownService.GetBurndownData(c.Request.Context(), nil, boardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, data)
}

func (ah *AnalyticsHandler) RefreshSnapshot(c *gin.Context) {
	boardID, _, ok := ah.requireBoardAccess(c)
	if !ok {
		return
	}
	if err := ah.snapshotService.UpdateTodaySnapshot(c.Request.Context(), nil, boardID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"refreshed": boardID})
}

func (ah *AnalyticsHandler) Forecast(c *gin.Context) {
	boardID, _, ok := ah.requireBoardAccess(c)
	if !ok {
		return
	}
	forecast, err := ah.queryService.Forecast(c.Request.Context(), nil, boardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, forecast)
}

func (ah *AnalyticsHandler) Progress(c *gin.Context) {
	boardID, _, ok := ah.requireBoardAccess(c)
	if !ok {
		return
	}
	progress, err := ah.queryService.GetProgress(c.Request.Context(), nil, boardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, progress)
}

func (ah *AnalyticsHandler) CheckStatus(c *gin.Context) {
	boardID, _, ok := ah.requireBoardAccess(c)
	if !ok {
		return
	}
	board, err := ah.queryService.CheckAndUpdateBoardStatus(c.Request.Context(), nil, boardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, board)
}

func (ah *AnalyticsHandler) History(c *gin.Context) {
	boardID, _, ok := ah.requireBoardAccess(c)
	if !ok {
		return
	}
	history, err := ah.queryService.GetHistory(c.Request.Context(), nil, boardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, history)
}
