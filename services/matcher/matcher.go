package matcher

import (
	"regexp"
	"strings"

	"gorm.io/gorm"

	"po-tracking/models/reservation"
	"po-tracking/services/mailbox"
)

// Heuristics run in order of decreasing confidence; the first hit
// wins. The agency-name fallback comes last because several pending
// reservations can share an agency.
var (
	reByCode    = regexp.MustCompile(`(?i)ID[:\s]*(\d+)`)
	reByLocator = regexp.MustCompile(`(?i)LOC[:\s]+([A-Z0-9]+)`)
	reByReserva = regexp.MustCompile(`(?i)Reserva[:\s]+([A-Z0-9]+)`)
	reByOrder   = regexp.MustCompile(`(?i)(?:orden\s+de\s+compra|OC|PO)[:\s]+([A-Z0-9]+)`)
)

// poKeywords mark a subject as a purchase-order candidate.
var poKeywords = []string{"orden de compra", "orden compra", "oc", "purchase order", "po"}

// IsPOSubject reports whether a subject line looks like a purchase
// order email.
func IsPOSubject(subject string) bool {
	subject = strings.ToLower(subject)
	for _, keyword := range poKeywords {
		if strings.Contains(subject, keyword) {
			return true
		}
	}
	return false
}

// Match finds the pending reservation an inbound PO email belongs to.
// Returns nil when nothing matches; the caller leaves the message
// unread for manual follow-up.
func Match(db *gorm.DB, msg *mailbox.Message) (*reservation.Reservation, error) {
	text := msg.SearchText()

	// 1. Explicit reservation id
	if m := reByCode.FindStringSubmatch(text); m != nil {
		if res, err := findPending(db, "reservation_code = ?", m[1]); err != nil {
			return nil, err
		} else if res != nil {
			return res, nil
		}
	}

	// 2. Internal locator
	if m := reByLocator.FindStringSubmatch(text); m != nil {
		if res, err := findPending(db, "internal_locator = ?", m[1]); err != nil {
			return nil, err
		} else if res != nil {
			return res, nil
		}
	}

	// 3. "Reserva CODE" — code may be either identifier
	if m := reByReserva.FindStringSubmatch(text); m != nil {
		if res, err := findPending(db, "reservation_code = ? OR internal_locator = ?", m[1], m[1]); err != nil {
			return nil, err
		} else if res != nil {
			return res, nil
		}
	}

	// 4. "Orden de Compra CODE" / "OC CODE" / "PO CODE"
	if m := reByOrder.FindStringSubmatch(text); m != nil {
		if res, err := findPending(db, "reservation_code = ? OR internal_locator = ?", m[1], m[1]); err != nil {
			return nil, err
		} else if res != nil {
			return res, nil
		}
	}

	// 5. Agency name as a substring of the sender address
	var pending []reservation.Reservation
	if err := db.Where("po_status = ?", reservation.POStatusPending).Find(&pending).Error; err != nil {
		return nil, err
	}
	sender := strings.ToLower(msg.FromAddress)
	for i := range pending {
		if strings.Contains(sender, strings.ToLower(pending[i].Agency)) {
			return &pending[i], nil
		}
	}

	return nil, nil
}

func findPending(db *gorm.DB, query string, args ...interface{}) (*reservation.Reservation, error) {
	var res reservation.Reservation
	err := db.Where("po_status = ?", reservation.POStatusPending).
		Where(query, args...).
		First(&res).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
