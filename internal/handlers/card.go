package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/services"
	"github.com/taskforge/taskforge-backend/internal/types"
)

type CardHandler struct {
	log             *logger.Logger
	cardService     services.CardService
	queryService    services.BoardQueryService
	snapshotService services.SnapshotService
	permissions     services.PermissionService
}

func NewCardHandler(
	baseLog *logger.Logger,
	cardService services.CardService,
	queryService services.BoardQueryService,
	snapshotService services.SnapshotService,
	permissions services.PermissionService,
) *CardHandler {
	return &CardHandler{
		log:             baseLog.With("handler", "CardHandler"),
		cardService:     cardService,
		queryService:    queryService,
		snapshotService: snapshotService,
		permissions:     permissions,
	}
}

func (ch *CardHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req struct {
		BoardID       uuid.UUID       `json:"board_id" binding:"required"`
		Title         string          `json:"title" binding:"required"`
		Description   string          `json:"description"`
		Status        string          `json:"status"`
		Position      *int            `json:"position"`
		EstimateHours *float64        `json:"estimate_hours"`
		ActualHours   *float64        `json:"actual_hours"`
		DueDate       *time.Time      `json:"due_date"`
		Metadata      json.RawMessage `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if _, err := ch.permissions.RequireAccess(c.Request.Context(), nil, req.BoardID, actor); err != nil {
		RespondServiceError(c, err)
		return
	}
	card, err := ch.cardService.CreateCard(c.Request.Context(), nil, services.CardCreateInput{
		BoardID:       req.BoardID,
		Title:         req.Title,
		Description:   req.Description,
		Status:        types.Status(req.Status),
		Position:      req.Position,
		EstimateHours: req.EstimateHours,
		ActualHours:   req.ActualHours,
		DueDate:       req.DueDate,
		Metadata:      datatypes.JSON(req.Metadata),
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	ch.refreshDerivedState(c.Request.Context(), card.BoardID)
	RespondOK(c, card)
}

func (ch *CardHandler) ListByBoard(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return
	}
	if _, err := ch.permissions.RequireAccess(c.Request.Context(), nil, boardID, actor); err != nil {
		RespondServiceError(c, err)
		return
	}
	cards, err := ch.cardService.GetBoardCards(c.Request.Context(), nil, boardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, cards)
}

func (ch *CardHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	cardID, ok := pathUUID(c, "cardID")
	if !ok {
		return
	}
	var req struct {
		Title         *string    `json:"title"`
		Description   *string    `json:"description"`
		EstimateHours *float64   `json:"estimate_hours"`
		ActualHours   *float64   `json:"actual_hours"`
		DueDate       *time.Time `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if !ch.requireCardAccess(c, cardID, actor) {
		return
	}
	card, err := ch.cardService.UpdateCard(c.Request.Context(), nil, cardID, services.CardUpdateInput{
		Title:         req.Title,
		Description:   req.Description,
		EstimateHours: req.EstimateHours,
		ActualHours:   req.ActualHours,
		DueDate:       req.DueDate,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, card)
}

func (ch *CardHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	cardID, ok := pathUUID(c, "cardID")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if !ch.requireCardAccess(c, cardID, actor) {
		return
	}
	card, err := ch.cardService.UpdateStatus(c.Request.Context(), nil, cardID, types.Status(req.Status), actor)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	ch.refreshDerivedState(c.Request.Context(), card.BoardID)
	RespondOK(c, card)
}

func (ch *CardHandler) Move(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	cardID, ok := pathUUID(c, "cardID")
	if !ok {
		return
	}
	var req struct {
		Status   string `json:"status" binding:"required"`
		Position *int   `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if !ch.requireCardAccess(c, cardID, actor) {
		return
	}
	card, err := ch.cardService.MoveCard(c.Request.Context(), nil, cardID, types.Status(req.Status), *req.Position, actor)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	ch.refreshDerivedState(c.Request.Context(), card.BoardID)
	RespondOK(c, card)
}

func (ch *CardHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	cardID, ok := pathUUID(c, "cardID")
	if !ok {
		return
	}
	card, err := ch.cardService.GetCard(c.Request.Context(), nil, cardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if _, err := ch.permissions.RequireAccess(c.Request.Context(), nil, card.BoardID, actor); err != nil {
		RespondServiceError(c, err)
		return
	}
	if err := ch.cardService.DeleteCard(c.Request.Context(), nil, cardID); err != nil {
		RespondServiceError(c, err)
		return
	}
	ch.refreshDerivedState(c.Request.Context(), card.BoardID)
	RespondOK(c, gin.H{"deleted": cardID})
}

func (ch *CardHandler) requireCardAccess(c *gin.Context, cardID, actor uuid.UUID) bool {
	card, err := ch.cardService.GetCard(c.Request.Context(), nil, cardID)
	if err != nil {
		RespondServiceError(c, err)
		return false
	}
	if _, err := ch.permissions.RequireAccess(c.Request.Context(), nil, card.BoardID, actor); err != nil {
		RespondServiceError(c, err)
		return false
	}
	return true
}

// refreshDerivedState re-derives the board status and today's snapshot after
// a lifecycle change. Both are recomputable, so failures are logged rather
// than surfaced to the caller.
func (ch *CardHandler) refreshDerivedState(ctx context.Context, boardID uuid.UUID) {
	if _, err := ch.queryService.CheckAndUpdateBoardStatus(ctx, nil, boardID); err != nil {
		ch.log.Warn("board status refresh failed", "board_id", boardID, "error", err)
	}
	if err := ch.snapshotService.UpdateTodaySnapshot(ctx, nil, boardID); err != nil {
		ch.log.Warn("snapshot refresh failed", "board_id", boardID, "error", err)
	}
}
