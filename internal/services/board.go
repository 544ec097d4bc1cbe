package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/apperr"
	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/types"
)

// BoardCreateInput carries the caller-supplied fields for a new board.
type BoardCreateInput struct {
	Name     string
	EndDate  *time.Time
	WipLimit *int
}

// BoardUpdateInput carries optional field updates; nil pointers leave the
// field untouched.
type BoardUpdateInput struct {
	Name     *string
	EndDate  *time.Time
	WipLimit *int
}

// BoardService owns board and membership writes. The creator becomes an
// ADMIN member and member-changing operations require the ADMIN role.
type BoardService interface {
	CreateBoard(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, in BoardCreateInput) (*types.Board, error)
	UpdateBoard(ctx context.Context, tx *gorm.DB, boardID, actorID uuid.UUID, in BoardUpdateInput) (*types.Board, error)
	DeleteBoard(ctx context.Context, tx *gorm.DB, boardID, actorID uuid.UUID) error
	GetBoardsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Board, error)
	GetMembers(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.BoardMember, error)
	InviteMember(ctx context.Context, tx *gorm.DB, boardID, actorID uuid.UUID, email string, role types.Role) (*types.BoardMember, error)
	ChangeMemberRole(ctx context.Context, tx *gorm.DB, boardID, actorID, memberID uuid.UUID, role types.Role) error
	RemoveMember(ctx context.Context, tx *gorm.DB, boardID, actorID, memberID uuid.UUID) error
}

type boardService struct {
	db           *gorm.DB
	log          *logger.Logger
	boardRepo    repos.BoardRepo
	memberRepo   repos.BoardMemberRepo
	cardRepo     repos.CardRepo
	historyRepo  repos.CardHistoryRepo
	snapshotRepo repos.SnapshotRepo
	userRepo     repos.UserRepo
	permissions  PermissionService
	now          func() time.Time
}

func NewBoardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	boardRepo repos.BoardRepo,
	memberRepo repos.BoardMemberRepo,
	cardRepo repos.CardRepo,
	historyRepo repos.CardHistoryRepo,
	snapshotRepo repos.SnapshotRepo,
	userRepo repos.UserRepo,
	permissions PermissionService,
) BoardService {
	return &boardService{
		db:           db,
		log:          baseLog.With("service", "BoardService"),
		boardRepo:    boardRepo,
		memberRepo:   memberRepo,
		cardRepo:     cardRepo,
		historyRepo:  historyRepo,
		snapshotRepo: snapshotRepo,
		userRepo:     userRepo,
		permissions:  permissions,
		now:          time.Now,
	}
}

func (bs *boardService) CreateBoard(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, in BoardCreateInput) (*types.Board, error) {
	if tx == nil {
		var created *types.Board
		err := bs.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			var txErr error
			created, txErr = bs.CreateBoard(ctx, inner, creatorID, in)
			return txErr
		})
		return created, err
	}

	now := bs.now().UTC()
	board := &types.Board{
		ID:        uuid.New(),
		Name:      in.Name,
		CreatorID: creatorID,
		Status:    types.BoardStatusInProgress,
		EndDate:   in.EndDate,
		WipLimit:  in.WipLimit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := bs.boardRepo.Create(ctx, tx, []*types.Board{board}); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	member := &types.BoardMember{
		ID:        uuid.New(),
		BoardID:   board.ID,
		UserID:    creatorID,
		Role:      types.RoleAdmin,
		CreatedAt: now,
	}
	if _, err := bs.memberRepo.Create(ctx, tx, []*types.BoardMember{member}); err != nil {
		return nil, fmt.Errorf("create board membership: %w", err)
	}

	bs.log.Info("board created", "board_id", board.ID, "creator_id", creatorID)
	return board, nil
}

func (bs *boardService) UpdateBoard(ctx context.Context, tx *gorm.DB, boardID, actorID uuid.UUID, in BoardUpdateInput) (*types.Board, error) {
	transaction := tx
	if transaction == nil {
		transaction = bs.db
	}
	if _, err := bs.permissions.RequireAdmin(ctx, transaction, boardID, actorID); err != nil {
		return nil, err
	}
	board, err := bs.getBoard(ctx, transaction, boardID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
		board.Name = *in.Name
	}
	if in.EndDate != nil {
		updates["end_date"] = *in.EndDate
		board.EndDate = in.EndDate
	}
	if in.WipLimit != nil {
		updates["wip_limit"] = *in.WipLimit
		board.WipLimit = in.WipLimit
	}
	if len(updates) == 0 {
		return board, nil
	}
	updates["updated_at"] = bs.now().UTC()

	if err := bs.boardRepo.UpdateFields(ctx, transaction, board.ID, updates); err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}
	return board, nil
}

func (bs *boardService) DeleteBoard(ctx context.Context, tx *gorm.DB, boardID, actorID uuid.UUID) error {
	if tx == nil {
		return bs.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			return bs.DeleteBoard(ctx, inner, boardID, actorID)
		})
	}

	if _, err := bs.permissions.RequireAdmin(ctx, tx, boardID, actorID); err != nil {
		return err
	}
	board, err := bs.getBoard(ctx, tx, boardID)
	if err != nil {
		return err
	}

	// Child rows first so deletion works without FK cascade support.
	if err := bs.historyRepo.DeleteByBoardID(ctx, tx, board.ID); err != nil {
		return fmt.Errorf("delete transition log: %w", err)
	}
	if err := bs.cardRepo.DeleteByBoardID(ctx, tx, board.ID); err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}
	if err := bs.snapshotRepo.DeleteByBoardID(ctx, tx, board.ID); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	if err := bs.memberRepo.DeleteByBoardID(ctx, tx, board.ID); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	if err := bs.boardRepo.Delete(ctx, tx, board.ID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}

	bs.log.Info("board deleted", "board_id", board.ID, "actor_id", actorID)
	return nil
}

func (bs *boardService) GetBoardsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Board, error) {
	transaction := tx
	if transaction == nil {
		transaction = bs.db
	}
	memberships, err := bs.memberRepo.GetByUserID(ctx, transaction, userID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	boardIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		boardIDs = append(boardIDs, m.BoardID)
	}
	return bs.boardRepo.GetByIDs(ctx, transaction, boardIDs)
}

func (bs *boardService) GetMembers(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) ([]*types.BoardMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = bs.db
	}
	if _, err := bs.getBoard(ctx, transaction, boardID); err != nil {
		return nil, err
	}
	return bs.memberRepo.GetByBoardID(ctx, transaction, boardID)
}

func (bs *boardService) InviteMember(ctx context.Context, tx *gorm.DB, boardID, actorID uuid.UUID, email string, role types.Role) (*types.BoardMember, error) {
	if tx == nil {
		var created *types.BoardMember
		err := bs.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			var txErr error
			created, txErr = bs.InviteMember(ctx, inner, boardID, actorID, email, role)
			return txErr
		})
		return created, err
	}

	if _, err := bs.permissions.RequireAdmin(ctx, tx, boardID, actorID); err != nil {
		return nil, err
	}
	if _, err := types.ParseRole(string(role)); err != nil {
		return nil, err
	}
	user, err := bs.userRepo.GetByEmail(ctx, tx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("user %s", email))
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if _, err := bs.memberRepo.GetByBoardAndUser(ctx, tx, boardID, user.ID); err == nil {
		return nil, apperr.Conflict(fmt.Sprintf("user %s is already a member of board %s", user.ID, boardID))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load membership: %w", err)
	}

	member := &types.BoardMember{
		ID:        uuid.New(),
		BoardID:   boardID,
		UserID:    user.ID,
		Role:      role,
		CreatedAt: bs.now().UTC(),
	}
	if _, err := bs.memberRepo.Create(ctx, tx, []*types.BoardMember{member}); err != nil {
		return nil, apperr.FromStore(err)
	}
	return member, nil
}

func (bs *boardService) ChangeMemberRole(ctx context.Context, tx *gorm.DB, boardID, actorID, memberID uuid.UUID, role types.Role) error {
	transaction := tx
	if transaction == nil {
		transaction = bs.db
	}
	if _, err := bs.permissions.RequireAdmin(ctx, transaction, boardID, actorID); err != nil {
		return err
	}
	if _, err := types.ParseRole(string(role)); err != nil {
		return err
	}
	member, err := bs.findMember(ctx, transaction, boardID, memberID)
	if err != nil {
		return err
	}
	return bs.memberRepo.UpdateRole(ctx, transaction, member.ID, role)
}

func (bs *boardService) RemoveMember(ctx context.Context, tx *gorm.DB, boardID, actorID, memberID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = bs.db
	}
	if _, err := bs.permissions.RequireAdmin(ctx, transaction, boardID, actorID); err != nil {
		return err
	}
	member, err := bs.findMember(ctx, transaction, boardID, memberID)
	if err != nil {
		return err
	}
	board, err := bs.getBoard(ctx, transaction, boardID)
	if err != nil {
		return err
	}
	if member.UserID == board.CreatorID {
		return apperr.Forbidden("the board creator cannot be removed")
	}
	return bs.memberRepo.Delete(ctx, transaction, member.ID)
}

func (bs *boardService) findMember(ctx context.Context, tx *gorm.DB, boardID, memberID uuid.UUID) (*types.BoardMember, error) {
	members, err := bs.memberRepo.GetByBoardID(ctx, tx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	for _, m := range members {
		if m.ID == memberID {
			return m, nil
		}
	}
	return nil, apperr.NotFound(fmt.Sprintf("member %s on board %s", memberID, boardID))
}

func (bs *boardService) getBoard(ctx context.Context, tx *gorm.DB, boardID uuid.UUID) (*types.Board, error) {
	boards, err := bs.boardRepo.GetByIDs(ctx, tx, []uuid.UUID{boardID})
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if len(boards) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("board %s", boardID))
	}
	return boards[0], nil
}
