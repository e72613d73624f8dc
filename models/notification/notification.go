package notification

import (
	"time"

	"po-tracking/models/reservation"
)

// NoticeKind is the escalation tier of an outbound PO-request email.
type NoticeKind string

const (
	KindInitial     NoticeKind = "initial"
	KindReminder    NoticeKind = "reminder"
	KindFinalNotice NoticeKind = "final_notice"
)

func (k NoticeKind) String() string {
	return string(k)
}

func (k NoticeKind) IsValid() bool {
	switch k {
	case KindInitial, KindReminder, KindFinalNotice:
		return true
	default:
		return false
	}
}

// DeliveryStatus is the outcome of one dispatch attempt.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusError     DeliveryStatus = "error"
	StatusCancelled DeliveryStatus = "cancelled"
)

func (s DeliveryStatus) String() string {
	return string(s)
}

// Record is the audit trail of one email dispatch attempt. Rows are
// never deleted; the retry job is the only mutator after creation.
type Record struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	ReservationID uint                    `gorm:"not null;index" json:"reservation_id"`
	Reservation   reservation.Reservation `gorm:"foreignKey:ReservationID" json:"-"`

	Kind NoticeKind `gorm:"type:varchar(20);not null" json:"kind"`

	Recipient string  `gorm:"type:varchar(200);not null" json:"recipient"`
	CC        *string `gorm:"type:text" json:"cc,omitempty"`
	Subject   string  `gorm:"type:varchar(500);not null" json:"subject"`
	BodyHTML  *string `gorm:"type:text" json:"-"`

	Status       DeliveryStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ScheduledAt  time.Time      `gorm:"not null" json:"scheduled_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	ErrorAt      *time.Time     `json:"error_at,omitempty"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`

	Attempts    int `gorm:"default:0" json:"attempts"`
	MaxAttempts int `gorm:"default:3" json:"max_attempts"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the Record model
func (Record) TableName() string {
	return "notification_records"
}

// CanRetry reports whether the retry job may pick this record up again.
func (r *Record) CanRetry() bool {
	return r.Status == StatusError && r.Attempts < r.MaxAttempts
}
