package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Card struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BoardID     uuid.UUID `gorm:"type:uuid;index;not null;column:board_id" json:"board_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Status      Status    `gorm:"not null;default:TODO" json:"status"`
	// Position orders cards within their status column; nil sorts last.
	Position *int `gorm:"column:position" json:"position,omitempty"`
	// EstimateHours doubles as the card's story points; scoring treats a
	// missing estimate as 1.0.
	EstimateHours *float64       `gorm:"column:estimate_hours" json:"estimate_hours,omitempty"`
	ActualHours   *float64       `gorm:"column:actual_hours" json:"actual_hours,omitempty"`
	DueDate       *time.Time     `gorm:"type:date;column:due_date" json:"due_date,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;<-:create" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Card) TableName() string {
	return "card"
}

// Points returns the card's burndown weight.
func (c *Card) Points() float64 {
	if c.EstimateHours != nil {
		return *c.EstimateHours
	}
	return 1.0
}
