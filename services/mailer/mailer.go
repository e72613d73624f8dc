package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"gorm.io/gorm"

	"po-tracking/config"
	"po-tracking/constants"
	"po-tracking/logger"
	"po-tracking/models/notification"
	"po-tracking/models/reservation"
	"po-tracking/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer sends PO-request notices over SMTP and keeps the notification
// audit trail. Every dispatch attempt, including ones that never reach
// the network, leaves a notification record.
type Mailer struct {
	settings  *config.Settings
	templates *template.Template
}

func New(settings *config.Settings) (*Mailer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Mailer{settings: settings, templates: templates}, nil
}

type noticeData struct {
	Agency          string
	ReservationCode string
	InternalLocator string
	HotelName       string
	CheckIn         string
	CheckOut        string
	Amount          string
	Currency        string
	ElapsedDays     int
	FromName        string
}

// SendNotice dispatches one notice tier for a reservation and records
// the outcome. A missing recipient produces an error record addressed
// to the SIN EMAIL placeholder without touching the network. Returns
// whether the email actually went out.
func (m *Mailer) SendNotice(db *gorm.DB, res *reservation.Reservation, kind notification.NoticeKind, recipient string) bool {
	subject := subjectFor(kind, res.ReservationCode)
	now := time.Now().UTC()

	if strings.TrimSpace(recipient) == "" {
		logger.Errorf("No contact email configured for agency %s (reservation %s)", res.Agency, res.ReservationCode)
		message := "no contact email configured for agency " + res.Agency
		record := notification.Record{
			ReservationID: res.ID,
			Kind:          kind,
			Recipient:     constants.NoEmailPlaceholder,
			Subject:       subject,
			Status:        notification.StatusError,
			ScheduledAt:   now,
			ErrorAt:       &now,
			ErrorMessage:  &message,
			Attempts:      1,
		}
		if err := db.Create(&record).Error; err != nil {
			logger.Error("Failed to record missing-recipient notice", err)
		}
		return false
	}

	body, err := m.render(kind, res)
	if err != nil {
		logger.Error("Failed to render notice body", err)
		return false
	}

	cc := strings.Join(m.settings.CCRecipients(), ", ")
	record := notification.Record{
		ReservationID: res.ID,
		Kind:          kind,
		Recipient:     recipient,
		CC:            optional(cc),
		Subject:       subject,
		BodyHTML:      &body,
		Status:        notification.StatusPending,
		ScheduledAt:   now,
		Attempts:      1,
	}

	if err := m.deliver(recipient, m.settings.CCRecipients(), subject, body); err != nil {
		logger.Errorf("Failed to send %s notice for reservation %s: %v", kind, res.ReservationCode, err)
		errAt := time.Now().UTC()
		message := err.Error()
		record.Status = notification.StatusError
		record.ErrorAt = &errAt
		record.ErrorMessage = &message
	} else {
		sentAt := time.Now().UTC()
		record.Status = notification.StatusSent
		record.SentAt = &sentAt
		logger.Successf("Sent %s notice for reservation %s to %s", kind, res.ReservationCode, recipient)
	}

	if err := db.Create(&record).Error; err != nil {
		logger.Error("Failed to persist notification record", err)
	}

	return record.Status == notification.StatusSent
}

// RetryFailed re-dispatches error records that still have attempts
// left. The stored subject and body are reused unchanged; the record
// is updated in place so a notice never appears twice in the trail.
func (m *Mailer) RetryFailed(db *gorm.DB) int {
	var failed []notification.Record
	err := db.Where("status = ? AND attempts < max_attempts", notification.StatusError).
		Find(&failed).Error
	if err != nil {
		logger.Error("Failed to list retryable notifications", err)
		return 0
	}

	retried := 0
	for i := range failed {
		record := &failed[i]
		if record.Recipient == constants.NoEmailPlaceholder || record.BodyHTML == nil {
			continue
		}

		var cc []string
		if record.CC != nil {
			cc = splitAddresses(*record.CC)
		}

		record.Attempts++
		if err := m.deliver(record.Recipient, cc, record.Subject, *record.BodyHTML); err != nil {
			logger.Errorf("Retry %d/%d failed for notification %d: %v", record.Attempts, record.MaxAttempts, record.ID, err)
			errAt := time.Now().UTC()
			message := err.Error()
			record.ErrorAt = &errAt
			record.ErrorMessage = &message
		} else {
			sentAt := time.Now().UTC()
			record.Status = notification.StatusSent
			record.SentAt = &sentAt
			record.ErrorMessage = nil
			retried++
			logger.Successf("Retry succeeded for notification %d (%s)", record.ID, record.Recipient)
		}

		if err := db.Save(record).Error; err != nil {
			logger.Error("Failed to update notification record", err)
		}
	}

	return retried
}

// Resend dispatches an existing record again with its stored subject
// and body, updating the row in place. Used by the manual resend
// endpoint; unlike RetryFailed it ignores the attempt cap because a
// human asked for it.
func (m *Mailer) Resend(db *gorm.DB, record *notification.Record) bool {
	if record.BodyHTML == nil {
		return false
	}

	var cc []string
	if record.CC != nil {
		cc = splitAddresses(*record.CC)
	}

	record.Attempts++
	if err := m.deliver(record.Recipient, cc, record.Subject, *record.BodyHTML); err != nil {
		logger.Errorf("Manual resend failed for notification %d: %v", record.ID, err)
		errAt := time.Now().UTC()
		message := err.Error()
		record.Status = notification.StatusError
		record.ErrorAt = &errAt
		record.ErrorMessage = &message
	} else {
		sentAt := time.Now().UTC()
		record.Status = notification.StatusSent
		record.SentAt = &sentAt
		record.ErrorMessage = nil
		logger.Successf("Manual resend succeeded for notification %d (%s)", record.ID, record.Recipient)
	}

	if err := db.Save(record).Error; err != nil {
		logger.Error("Failed to update notification record", err)
	}

	return record.Status == notification.StatusSent
}

// deliver performs one SMTP submission.
func (m *Mailer) deliver(to string, cc []string, subject, bodyHTML string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.settings.SMTPFromName, m.settings.SMTPFromEmail); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %s: %w", to, err)
	}
	if len(cc) > 0 {
		if err := msg.Cc(cc...); err != nil {
			return fmt.Errorf("invalid cc list: %w", err)
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, bodyHTML)

	tlsPolicy := gomail.TLSMandatory
	if !m.settings.SMTPUseTLS {
		tlsPolicy = gomail.TLSOpportunistic
	}

	client, err := gomail.NewClient(m.settings.SMTPHost,
		gomail.WithPort(m.settings.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.settings.SMTPUsername),
		gomail.WithPassword(m.settings.SMTPPassword),
		gomail.WithTLSPolicy(tlsPolicy),
	)
	if err != nil {
		return fmt.Errorf("smtp client setup failed: %w", err)
	}

	return client.DialAndSend(msg)
}

func (m *Mailer) render(kind notification.NoticeKind, res *reservation.Reservation) (string, error) {
	data := noticeData{
		Agency:          res.Agency,
		ReservationCode: res.ReservationCode,
		InternalLocator: res.InternalLocator,
		CheckIn:         utils.FormatDate(res.CheckIn),
		CheckOut:        utils.FormatDate(res.CheckOut),
		Amount:          utils.FormatAmount(res.TotalAmount),
		Currency:        res.Currency,
		ElapsedDays:     res.ElapsedDays(time.Now().UTC()),
		FromName:        m.settings.SMTPFromName,
	}
	if res.HotelName != nil {
		data.HotelName = *res.HotelName
	}

	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, string(kind)+".html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func subjectFor(kind notification.NoticeKind, code string) string {
	switch kind {
	case notification.KindReminder:
		return fmt.Sprintf(constants.SubjectReminder, code)
	case notification.KindFinalNotice:
		return fmt.Sprintf(constants.SubjectFinalNotice, code)
	default:
		return fmt.Sprintf(constants.SubjectInitial, code)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func splitAddresses(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
