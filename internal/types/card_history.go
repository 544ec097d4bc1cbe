package types

import (
	"time"

	"github.com/google/uuid"
)

// CardHistory is one record of the append-only transition log. Records are
// never updated; they are removed only by cascading card deletion. The
// sequential primary key breaks ties between records sharing the same
// change timestamp.
type CardHistory struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CardID     uuid.UUID `gorm:"type:uuid;index;not null;column:card_id" json:"card_id"`
	BoardID    uuid.UUID `gorm:"type:uuid;index;not null;column:board_id" json:"board_id"`
	FromStatus Status    `gorm:"not null;column:from_status" json:"from_status"`
	ToStatus   Status    `gorm:"not null;column:to_status" json:"to_status"`
	ChangeDate time.Time `gorm:"not null;index;column:change_date" json:"change_date"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null;column:actor_id" json:"actor_id"`
}

func (CardHistory) TableName() string {
	return "card_history"
}
