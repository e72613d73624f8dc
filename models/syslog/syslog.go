package syslog

import (
	"time"
)

// Entry is one persisted system event. Rows are written asynchronously
// by logger.AsyncLogger and read only by the dashboard.
type Entry struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	Level   string `gorm:"type:varchar(20);not null;index" json:"level"`
	Module  string `gorm:"type:varchar(100)" json:"module"`
	Message string `gorm:"type:text;not null" json:"message"`
	Details *string `gorm:"type:text" json:"details,omitempty"`

	ReservationID *uint `gorm:"index" json:"reservation_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName sets the table name for the Entry model
func (Entry) TableName() string {
	return "system_log"
}
