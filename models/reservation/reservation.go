package reservation

import (
	"time"

	"gorm.io/datatypes"
)

// Reservation is one confirmed hotel booking extracted from a
// confirmation email. The purchase-order lifecycle hangs off POStatus.
type Reservation struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// Identifiers from the confirmation document
	ReservationCode string  `gorm:"type:varchar(50);not null;uniqueIndex" json:"reservation_code"`
	InternalLocator string  `gorm:"type:varchar(50);not null;index" json:"internal_locator"`
	Locator         *string `gorm:"type:varchar(50)" json:"locator,omitempty"`
	Agency          string  `gorm:"type:varchar(200);not null;index" json:"agency"`

	// Hotel
	HotelName    *string `gorm:"type:varchar(300)" json:"hotel_name,omitempty"`
	HotelAddress *string `gorm:"type:text" json:"hotel_address,omitempty"`
	HotelPhone   *string `gorm:"type:varchar(50)" json:"hotel_phone,omitempty"`

	// Stay
	CheckIn       *time.Time `json:"check_in,omitempty"`
	CheckOut      *time.Time `json:"check_out,omitempty"`
	ArrivalTime   *string    `gorm:"type:varchar(20)" json:"arrival_time,omitempty"`
	DepartureTime *string    `gorm:"type:varchar(20)" json:"departure_time,omitempty"`
	Nights        *int       `json:"nights,omitempty"`
	Rooms         *int       `json:"rooms,omitempty"`

	// Money
	TotalAmount float64 `gorm:"not null" json:"total_amount"`
	Currency    string  `gorm:"type:varchar(10);default:'CLP'" json:"currency"`

	// Best-effort nested room/occupancy listing
	RoomDetails datatypes.JSON `json:"room_details,omitempty"`

	CancellationDeadline *time.Time `json:"cancellation_deadline,omitempty"`

	HotelRemarks *string `gorm:"type:text" json:"hotel_remarks,omitempty"`
	AdvisorNotes *string `gorm:"type:text" json:"advisor_notes,omitempty"`

	// PO tracking state
	POStatus   POStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"po_status"`
	RequiresPO bool     `gorm:"not null;default:false" json:"requires_po"`

	// Issue date printed on the document ("INMEDIATO" means unset)
	IssueDate *time.Time `json:"issue_date,omitempty"`

	// Source email. OriginTimestamp is day 0 of the follow-up flow; it
	// is the confirmation mail's own date, not our row creation time.
	OriginEmailID   *string    `gorm:"type:varchar(200)" json:"origin_email_id,omitempty"`
	OriginTimestamp *time.Time `json:"origin_timestamp,omitempty"`
	PDFFilename     *string    `gorm:"type:varchar(500)" json:"pdf_filename,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name for the Reservation model
func (Reservation) TableName() string {
	return "reservations"
}

// ElapsedDays is the number of whole days since the confirmation email
// arrived. Day 0 is the arrival day; the row creation time is only a
// fallback for legacy rows without an origin timestamp.
func (r *Reservation) ElapsedDays(now time.Time) int {
	ref := r.CreatedAt
	if r.OriginTimestamp != nil {
		ref = *r.OriginTimestamp
	}
	days := int(now.Sub(ref).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
