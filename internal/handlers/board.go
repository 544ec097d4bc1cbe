package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskforge/taskforge-backend/internal/requestdata"
	"github.com/taskforge/taskforge-backend/internal/services"
	"github.com/taskforge/taskforge-backend/internal/types"
)

type BoardHandler struct {
	boardService services.BoardService
	queryService services.BoardQueryService
	permissions  services.PermissionService
}

func NewBoardHandler(
	boardService services.BoardService,
	queryService services.BoardQueryService,
	permissions services.PermissionService,
) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
		queryService: queryService,
		permissions:  permissions,
	}
}

func actorID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return uuid.Nil, false
	}
	return id, true
}

func (bh *BoardHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req struct {
		Name     string     `json:"name" binding:"required"`
		EndDate  *time.Time `json:"end_date"`
		WipLimit *int       `json:"wip_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	board, err := bh.boardService.CreateBoard(c.Request.Context(), nil, actor, services.BoardCreateInput{
		Name:     req.Name,
		EndDate:  req.EndDate,
		WipLimit: req.WipLimit,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, board)
}

func (bh *BoardHandler) List(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boards, err := bh.boardService.GetBoardsForUser(c.Request.Context(), nil, actor)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, boards)
}

func (bh *BoardHandler) Get(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return
	}
	if _, err := bh.permissions.RequireAccess(c.Request.Context(), nil, boardID, actor); err != nil {
		RespondServiceError(c, err)
		return
	}
	board, err := bh.queryService.GetBoard(c.Request.Context(), nil, boardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, board)
}

func (bh *BoardHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return
	}
	var req struct {
		Name     *string    `json:"name"`
		EndDate  *time.Time `json:"end_date"`
		WipLimit *int       `json:"wip_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	board, err := bh.boardService.UpdateBoard(c.Request.Context(), nil, boardID, actor, services.BoardUpdateInput{
		Name:     req.Name,
		EndDate:  req.EndDate,
		WipLimit: req.WipLimit,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, board)
}

func (bh *BoardHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return
	}
	if err := bh.boardService.DeleteBoard(c.Request.Context(), nil, boardID, actor); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": boardID})
}

func (bh *BoardHandler) GetMembers(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return
	}
	if _, err := bh.permissions.RequireAccess(c.Request.Context(), nil, boardID, actor); err != nil {
		RespondServiceError(c, err)
		return
	}
	members, err := bh.boardService.GetMembers(c.Request.Context(), nil, boardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, members)
}

func (bh *BoardHandler) InviteMember(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email" binding:"required"`
		Role  string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	member, err := bh.boardService.InviteMember(c.Request.Context(), nil, boardID, actor, req.Email, types.Role(req.Role))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, member)
}

func (bh *BoardHandler) ChangeMemberRole(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return
	}
	memberID, ok := pathUUID(c, "memberID")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := bh.boardService.ChangeMemberRole(c.Request.Context(), nil, boardID, actor, memberID, types.Role(req.Role)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"updated": memberID})
}

func (bh *BoardHandler) RemoveMember(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	boardID, ok := pathUUID(c, "boardID")
	if !ok {
		return
	}
	memberID, ok := pathUUID(c, "memberID")
	if !ok {
		return
	}
	if err := bh.boardService.RemoveMember(c.Request.Context(), nil, boardID, actor, memberID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": memberID})
}
