package scheduler

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"po-tracking/config"
	"po-tracking/constants"
	"po-tracking/logger"
	"po-tracking/models/clientconfig"
	"po-tracking/models/notification"
	"po-tracking/models/purchaseorder"
	"po-tracking/models/reservation"
	"po-tracking/services/lifecycle"
	"po-tracking/services/mailer"
)

// Scheduler owns the periodic jobs: the follow-up sweep, the retry
// pass, the nightly expiry cleanup and the morning report.
type Scheduler struct {
	db       *gorm.DB
	settings *config.Settings
	mailer   *mailer.Mailer
	events   *logger.AsyncLogger
	cron     *cron.Cron
}

func New(db *gorm.DB, settings *config.Settings, m *mailer.Mailer, events *logger.AsyncLogger) *Scheduler {
	return &Scheduler{
		db:       db,
		settings: settings,
		mailer:   m,
		events:   events,
		cron:     cron.New(),
	}
}

// Start registers the jobs and launches the cron loop. The follow-up
// sweep also runs once immediately so a restart never waits a full
// interval to catch up.
func (s *Scheduler) Start() error {
	checks := s.settings.SchedulerChecksPerDay
	if checks < 1 {
		checks = 1
	}
	if checks > 24 {
		checks = 24
	}
	every := fmt.Sprintf("@every %dh", 24/checks)

	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{every, "process pending", s.ProcessPending},
		{"@every 2h", "retry failed", s.RetryFailed},
		{"0 2 * * *", "cleanup expired", s.CleanupExpired},
		{"0 8 * * *", "daily report", s.DailyReport},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.guarded(job.name, job.run) }); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
	}

	s.cron.Start()
	logger.Successf("Scheduler started: follow-up sweep %s", every)

	go s.guarded("startup sweep", s.ProcessPending)
	return nil
}

// Stop halts the cron loop, letting a running job finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Scheduler stopped")
}

// RunNow triggers the follow-up sweep out of band, for the admin API.
func (s *Scheduler) RunNow() {
	go s.guarded("manual sweep", s.ProcessPending)
}

// guarded keeps a panicking job from taking down the process.
func (s *Scheduler) guarded(name string, run func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Job %s panicked: %v", name, r)
		}
	}()
	run()
}

// ProcessPending walks every reservation still waiting for a PO and
// applies the escalation policy to each one independently, so a
// failure on one reservation never stalls the rest.
func (s *Scheduler) ProcessPending() {
	logger.Info("🔄 Running PO follow-up sweep...")

	var pending []reservation.Reservation
	err := s.db.Where("po_status = ? AND requires_po = ?", reservation.POStatusPending, true).
		Find(&pending).Error
	if err != nil {
		logger.Error("Failed to list pending reservations", err)
		return
	}

	sent, expired := 0, 0
	nowUTC := time.Now().UTC()

	for i := range pending {
		res := &pending[i]

		recipient, reminderDays, finalDays := s.agencyPolicy(res.Agency)

		recorded, err := s.recordedKinds(res.ID)
		if err != nil {
			logger.Errorf("Failed to load notice history for reservation %s: %v", res.ReservationCode, err)
			continue
		}

		decision := lifecycle.Evaluate(res, reminderDays, finalDays, recorded, nowUTC)

		for _, kind := range decision.Skip {
			s.recordSkipped(res, kind, recipient)
		}

		if decision.Send != nil {
			if s.mailer.SendNotice(s.db, res, *decision.Send, recipient) {
				sent++
				s.events.Event("INFO", "scheduler",
					fmt.Sprintf("%s notice sent for reservation %s", *decision.Send, res.ReservationCode), &res.ID)
			}
		}

		if decision.Expire {
			if err := s.expire(res); err != nil {
				logger.Errorf("Failed to expire reservation %s: %v", res.ReservationCode, err)
				continue
			}
			expired++
		}
	}

	logger.Successf("Follow-up sweep done: %d pending, %d notices sent, %d expired",
		len(pending), sent, expired)
}

// RetryFailed re-attempts notices that bounced off SMTP.
func (s *Scheduler) RetryFailed() {
	logger.Info("🔄 Retrying failed notifications...")
	retried := s.mailer.RetryFailed(s.db)
	if retried > 0 {
		logger.Successf("Recovered %d failed notifications", retried)
	}
}

// CleanupExpired closes pending reservations whose check-in date has
// already passed. A PO that arrives after check-in has nothing left to
// authorize.
func (s *Scheduler) CleanupExpired() {
	logger.Info("🔄 Running expiry cleanup...")

	today := now.BeginningOfDay()

	result := s.db.Model(&reservation.Reservation{}).
		Where("po_status = ? AND check_in IS NOT NULL AND check_in < ?", reservation.POStatusPending, today).
		Update("po_status", reservation.POStatusExpired)
	if result.Error != nil {
		logger.Error("Expiry cleanup failed", result.Error)
		return
	}

	if result.RowsAffected > 0 {
		logger.Warningf("Expired %d reservations past their check-in date", result.RowsAffected)
		s.events.Event("WARNING", "scheduler",
			fmt.Sprintf("expired %d reservations past check-in", result.RowsAffected), nil)
	}
}

// DailyReport logs a morning snapshot of the PO pipeline.
func (s *Scheduler) DailyReport() {
	stats, err := s.Stats()
	if err != nil {
		logger.Error("Failed to build daily report", err)
		return
	}

	logger.Info("📊 Daily PO report")
	logger.Infof("   Pending: %d (critical: %d)", stats.Pending, stats.Critical)
	logger.Infof("   Received: %d  Expired: %d  Not required: %d",
		stats.Received, stats.Expired, stats.NotRequired)
	logger.Infof("   POs received in the last 24h: %d", stats.ReceivedToday)

	s.events.Event("INFO", "scheduler",
		fmt.Sprintf("daily report: %d pending, %d critical", stats.Pending, stats.Critical), nil)
}

// Stats is the pipeline snapshot served by the admin API and the daily
// report.
type Stats struct {
	Pending       int64 `json:"pending"`
	Received      int64 `json:"received"`
	Expired       int64 `json:"expired"`
	NotRequired   int64 `json:"not_required"`
	Cancelled     int64 `json:"cancelled"`
	Critical      int64 `json:"critical"`
	ReceivedToday int64 `json:"received_today"`
}

func (s *Scheduler) Stats() (*Stats, error) {
	var stats Stats

	counts := map[reservation.POStatus]*int64{
		reservation.POStatusPending:     &stats.Pending,
		reservation.POStatusReceived:    &stats.Received,
		reservation.POStatusExpired:     &stats.Expired,
		reservation.POStatusNotRequired: &stats.NotRequired,
		reservation.POStatusCancelled:   &stats.Cancelled,
	}
	for status, target := range counts {
		err := s.db.Model(&reservation.Reservation{}).
			Where("po_status = ?", status).
			Count(target).Error
		if err != nil {
			return nil, err
		}
	}

	// Critical: pending long enough that the final notice tier is due.
	criticalCutoff := time.Now().UTC().AddDate(0, 0, -s.settings.DaysForFinalNotice)
	err := s.db.Model(&reservation.Reservation{}).
		Where("po_status = ? AND requires_po = ?", reservation.POStatusPending, true).
		Where("COALESCE(origin_timestamp, created_at) <= ?", criticalCutoff).
		Count(&stats.Critical).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&purchaseorder.Record{}).
		Where("received_at >= ?", time.Now().UTC().Add(-24*time.Hour)).
		Count(&stats.ReceivedToday).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// agencyPolicy resolves the contact address and escalation days for an
// agency. The per-agency client config wins; agencies without one use
// the global defaults and the SIN EMAIL path.
func (s *Scheduler) agencyPolicy(agency string) (recipient string, reminderDays, finalDays int) {
	reminderDays = s.settings.DaysForReminder
	finalDays = s.settings.DaysForFinalNotice

	var client clientconfig.ClientConfig
	err := s.db.Where("agency_name = ? AND active = ?", agency, true).First(&client).Error
	if err != nil {
		return "", reminderDays, finalDays
	}

	if client.ContactEmail != nil {
		recipient = *client.ContactEmail
	}
	if client.ReminderDays > 0 {
		reminderDays = client.ReminderDays
	}
	if client.FinalNoticeDays > 0 {
		finalDays = client.FinalNoticeDays
	}
	return recipient, reminderDays, finalDays
}

// recordedKinds lists the notice tiers with a recorded attempt. Error
// records count too: the sweep never re-schedules a tier, recovery from
// a failed send belongs to the retry job or a manual resend.
func (s *Scheduler) recordedKinds(reservationID uint) (map[notification.NoticeKind]bool, error) {
	var records []notification.Record
	err := s.db.Where("reservation_id = ?", reservationID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	recorded := make(map[notification.NoticeKind]bool, len(records))
	for i := range records {
		recorded[records[i].Kind] = true
	}
	return recorded, nil
}

// recordSkipped closes a superseded lower tier in the audit trail so
// the history shows it was deliberately collapsed, not forgotten.
func (s *Scheduler) recordSkipped(res *reservation.Reservation, kind notification.NoticeKind, recipient string) {
	if recipient == "" {
		recipient = constants.NoEmailPlaceholder
	}
	record := notification.Record{
		ReservationID: res.ID,
		Kind:          kind,
		Recipient:     recipient,
		Subject:       fmt.Sprintf("Aviso omitido (%s) - Reserva %s", kind, res.ReservationCode),
		Status:        notification.StatusCancelled,
		ScheduledAt:   time.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		logger.Error("Failed to record skipped notice", err)
	}
}

func (s *Scheduler) expire(res *reservation.Reservation) error {
	err := s.db.Model(&reservation.Reservation{}).
		Where("id = ?", res.ID).
		Update("po_status", reservation.POStatusExpired).Error
	if err != nil {
		return err
	}
	logger.Warningf("Reservation %s expired without a PO", res.ReservationCode)
	s.events.Event("WARNING", "scheduler",
		fmt.Sprintf("reservation %s expired without a PO", res.ReservationCode), &res.ID)
	return nil
}
