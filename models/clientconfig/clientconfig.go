package clientconfig

import (
	"time"
)

// ClientConfig is the per-agency follow-up configuration. Seeded at
// startup from the configured agency list and read fresh on every
// scheduler cycle, never cached.
type ClientConfig struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	AgencyName   string  `gorm:"type:varchar(200);not null;uniqueIndex" json:"agency_name"`
	ContactEmail *string `gorm:"type:varchar(200)" json:"contact_email,omitempty"`
	ContactPhone *string `gorm:"type:varchar(50)" json:"contact_phone,omitempty"`

	RequiresPO bool `gorm:"not null;default:true" json:"requires_po"`
	Active     bool `gorm:"not null;default:true" json:"active"`

	// Per-agency escalation thresholds, in days since the confirmation
	// email arrived.
	ReminderDays    int `gorm:"default:2" json:"reminder_days"`
	FinalNoticeDays int `gorm:"default:4" json:"final_notice_days"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name for the ClientConfig model
func (ClientConfig) TableName() string {
	return "client_configs"
}
