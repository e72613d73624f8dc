package purchaseorder

import (
	"time"

	"po-tracking/models/reservation"
)

// Record is a received purchase order. At most one exists per
// reservation; a second inbound PO for a closed reservation is
// rejected by the PO poller, not stored.
type Record struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	ReservationID uint                    `gorm:"not null;uniqueIndex" json:"reservation_id"`
	Reservation   reservation.Reservation `gorm:"foreignKey:ReservationID" json:"-"`

	// Source email
	SenderEmail string     `gorm:"type:varchar(200);not null" json:"sender_email"`
	Subject     *string    `gorm:"type:varchar(500)" json:"subject,omitempty"`
	ReceivedAt  time.Time  `gorm:"not null" json:"received_at"`
	EmailID     *string    `gorm:"type:varchar(200)" json:"email_id,omitempty"`

	// Attachment
	FileName *string `gorm:"type:varchar(500)" json:"file_name,omitempty"`
	FileSize *int64  `json:"file_size,omitempty"`
	FilePath *string `gorm:"type:varchar(1000)" json:"file_path,omitempty"`

	// Extracted PO number, best effort
	PONumber *string `gorm:"type:varchar(100)" json:"po_number,omitempty"`

	// Validation fields are the only ones mutable after creation
	Validated   bool       `gorm:"default:false" json:"validated"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	ValidatedBy *string    `gorm:"type:varchar(100)" json:"validated_by,omitempty"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the Record model
func (Record) TableName() string {
	return "purchase_orders"
}
