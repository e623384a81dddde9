package models

import "time"

// Category groups events. Names are unique after trimming.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`

	Events []Event `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`

	// EventCount is filled by queries that select it.
	EventCount int64 `gorm:"->;-:migration" json:"eventCount"`
}
