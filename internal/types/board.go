package types

import (
	"time"

	"github.com/google/uuid"
)

type Board struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string      `gorm:"not null" json:"name"`
	CreatorID uuid.UUID   `gorm:"type:uuid;index;not null;column:creator_id" json:"creator_id"`
	Status    BoardStatus `gorm:"not null;default:IN_PROGRESS" json:"status"`
	// EndDate is the optional project deadline used by the forecast engine.
	EndDate *time.Time `gorm:"type:date;column:end_date" json:"end_date,omitempty"`
	// WipLimit caps concurrent IN_PROGRESS cards when positive.
	WipLimit  *int      `gorm:"column:wip_limit" json:"wip_limit,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Board) TableName() string {
	return "board"
}

type BoardMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_board_member;column:board_id" json:"board_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_board_member;column:user_id" json:"user_id"`
	Role      Role      `gorm:"not null" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (BoardMember) TableName() string {
	return "board_member"
}
