package monitor

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"po-tracking/config"
	"po-tracking/logger"
	"po-tracking/models/purchaseorder"
	"po-tracking/models/reservation"
	"po-tracking/services/mailbox"
	"po-tracking/services/matcher"
)

var rePONumber = regexp.MustCompile(`(?i)(?:orden\s+de\s+compra|OC|PO)\s*(?:N[°º]?|#|:)?\s*([A-Z0-9-]{3,})`)

// PurchaseOrderProcessor links inbound PO emails to their pending
// reservation. Unmatched emails stay unread so an operator can resolve
// them by hand.
type PurchaseOrderProcessor struct {
	Settings *config.Settings
}

func (p *PurchaseOrderProcessor) Name() string {
	return "purchase orders"
}

func (p *PurchaseOrderProcessor) Process(db *gorm.DB, msg *mailbox.Message) (bool, error) {
	if !matcher.IsPOSubject(msg.Subject) {
		logger.Debug("Not a PO email: " + msg.Subject)
		return false, nil
	}

	if len(msg.Attachments) == 0 {
		logger.Warningf("PO email without PDF attachment, leaving unread: %s", msg.Subject)
		return false, nil
	}

	res, err := matcher.Match(db, msg)
	if err != nil {
		return false, err
	}
	if res == nil {
		logger.Warningf("No pending reservation matches PO email from %s: %s", msg.FromAddress, msg.Subject)
		return false, nil
	}

	var existing purchaseorder.Record
	err = db.Where("reservation_id = ?", res.ID).First(&existing).Error
	if err == nil {
		logger.Warningf("Reservation %s already has a PO on file, ignoring duplicate", res.ReservationCode)
		return true, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}

	attachment := msg.Attachments[0]
	filePath, err := p.saveAttachment(res.ReservationCode, attachment)
	if err != nil {
		logger.Errorf("Could not store PO file %s: %v", attachment.Filename, err)
		return false, err
	}

	receivedAt := time.Now().UTC()
	if !msg.Date.IsZero() {
		receivedAt = msg.Date
	}

	emailID := formatID(msg.ID)
	size := int64(attachment.Size)

	record := purchaseorder.Record{
		ReservationID: res.ID,
		SenderEmail:   msg.FromAddress,
		Subject:       optional(msg.Subject),
		ReceivedAt:    receivedAt,
		EmailID:       &emailID,
		FileName:      optional(attachment.Filename),
		FileSize:      &size,
		FilePath:      optional(filePath),
		PONumber:      extractPONumber(msg),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(&reservation.Reservation{}).
			Where("id = ?", res.ID).
			Update("po_status", reservation.POStatusReceived).Error
	})
	if err != nil {
		return false, err
	}

	logger.Successf("PO received for reservation %s from %s", res.ReservationCode, msg.FromAddress)
	return true, nil
}

// saveAttachment writes the PDF under the configured PO directory with
// a collision-proof name.
func (p *PurchaseOrderProcessor) saveAttachment(code string, att mailbox.Attachment) (string, error) {
	if err := os.MkdirAll(p.Settings.POFilesDir, os.ModePerm); err != nil {
		return "", err
	}

	name := "PO_" + code + "_" + uuid.New().String()[:8] + ".pdf"
	path := filepath.Join(p.Settings.POFilesDir, name)
	if err := os.WriteFile(path, att.Content, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// extractPONumber pulls the PO number out of subject or body, best
// effort. The token must carry at least one digit so bare keyword hits
// like "OC pendiente" do not pass as numbers.
func extractPONumber(msg *mailbox.Message) *string {
	for _, text := range []string{msg.Subject, msg.BodyText} {
		m := rePONumber.FindStringSubmatch(text)
		if m == nil || !strings.ContainsAny(m[1], "0123456789") {
			continue
		}
		value := strings.ToUpper(m[1])
		return &value
	}
	return nil
}
