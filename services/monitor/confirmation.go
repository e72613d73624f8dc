package monitor

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"po-tracking/config"
	"po-tracking/logger"
	"po-tracking/models/clientconfig"
	"po-tracking/models/reservation"
	"po-tracking/services/extractor"
	"po-tracking/services/mailbox"
)

// ConfirmationProcessor creates reservations from confirmation emails.
// A message is handled when at least one attachment produced a
// reservation or turned out to be a known duplicate.
type ConfirmationProcessor struct {
	Settings *config.Settings
}

func (p *ConfirmationProcessor) Name() string {
	return "reservation confirmations"
}

func (p *ConfirmationProcessor) Process(db *gorm.DB, msg *mailbox.Message) (bool, error) {
	subject := strings.ToLower(msg.Subject)
	if !strings.Contains(subject, "confirmación") &&
		!strings.Contains(subject, "confirmacion") &&
		!strings.Contains(subject, "confirmation") {
		logger.Debug("Not a confirmation email: " + msg.Subject)
		return false, nil
	}

	if !p.Settings.IsSenderAllowed(msg.FromAddress) {
		logger.Warningf("Sender not authorized: %s. Ignoring: %s", msg.FromAddress, msg.Subject)
		return false, nil
	}

	if len(msg.Attachments) == 0 {
		logger.Debug("Confirmation email without PDF attachments: " + msg.Subject)
		return false, nil
	}

	handled := false
	for _, attachment := range msg.Attachments {
		fields, err := extractor.ExtractFromBytes(attachment.Content, attachment.Filename)
		if err != nil {
			logger.Errorf("Could not extract data from %s: %v", attachment.Filename, err)
			continue
		}

		if ok, reasons := extractor.Validate(fields); !ok {
			logger.Errorf("Invalid data in %s: %s", attachment.Filename, strings.Join(reasons, ", "))
			continue
		}

		created, err := p.createReservation(db, msg, attachment.Filename, fields)
		if err != nil {
			logger.Errorf("Could not store reservation from %s: %v", attachment.Filename, err)
			continue
		}
		if created {
			handled = true
		}
	}

	return handled, nil
}

// createReservation persists one extracted document. Duplicates are a
// warning and count as handled so the email does not get reprocessed
// forever.
func (p *ConfirmationProcessor) createReservation(db *gorm.DB, msg *mailbox.Message, filename string, fields extractor.Fields) (bool, error) {
	var existing reservation.Reservation
	err := db.Where("reservation_code = ?", fields.ReservationCode).First(&existing).Error
	if err == nil {
		logger.Warningf("Reservation %s already exists, skipping", fields.ReservationCode)
		return true, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}

	requiresPO := p.agencyRequiresPO(db, fields.Agency)

	status := reservation.POStatusNotRequired
	if requiresPO {
		status = reservation.POStatusPending
	}

	origin := time.Now().UTC()
	if !msg.Date.IsZero() {
		origin = msg.Date
	}

	emailID := formatID(msg.ID)

	res := reservation.Reservation{
		ReservationCode:      fields.ReservationCode,
		InternalLocator:      fields.InternalLocator,
		Locator:              optional(fields.Locator),
		Agency:               fields.Agency,
		HotelName:            optional(fields.HotelName),
		HotelAddress:         optional(fields.HotelAddress),
		HotelPhone:           optional(fields.HotelPhone),
		CheckIn:              fields.CheckIn,
		CheckOut:             fields.CheckOut,
		ArrivalTime:          optional(fields.ArrivalTime),
		DepartureTime:        optional(fields.DepartureTime),
		Nights:               optionalInt(fields.Nights),
		Rooms:                optionalInt(fields.Rooms),
		TotalAmount:          *fields.TotalAmount,
		Currency:             defaultCurrency(fields.Currency),
		RoomDetails:          fields.RoomDetailsJSON(),
		CancellationDeadline: fields.CancellationDeadline,
		HotelRemarks:         optional(fields.HotelRemarks),
		AdvisorNotes:         optional(fields.AdvisorNotes),
		POStatus:             status,
		RequiresPO:           requiresPO,
		IssueDate:            fields.IssueDate,
		OriginEmailID:        &emailID,
		OriginTimestamp:      &origin,
		PDFFilename:          &filename,
	}

	if err := db.Create(&res).Error; err != nil {
		return false, err
	}

	logger.Successf("Reservation created: %s - %s - requires PO: %t",
		res.ReservationCode, res.Agency, requiresPO)
	return true, nil
}

// agencyRequiresPO prefers the agency's ClientConfig row; agencies
// without one fall back to the configured static list.
func (p *ConfirmationProcessor) agencyRequiresPO(db *gorm.DB, agency string) bool {
	var client clientconfig.ClientConfig
	err := db.Where("agency_name = ? AND active = ?", agency, true).First(&client).Error
	if err == nil {
		return client.RequiresPO
	}
	return p.Settings.RequiresPO(agency)
}
