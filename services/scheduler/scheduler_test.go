package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"po-tracking/config"
	"po-tracking/constants"
	"po-tracking/database"
	"po-tracking/logger"
	"po-tracking/models/clientconfig"
	"po-tracking/models/notification"
	"po-tracking/models/reservation"
	"po-tracking/services/mailer"
)

func setup(t *testing.T) (*Scheduler, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	settings := &config.Settings{
		SMTPFromName:       "Kontrol Travel",
		SMTPFromEmail:      "admin@kontroltravel.com",
		DaysForReminder:    2,
		DaysForFinalNotice: 4,
	}

	m, err := mailer.New(settings)
	require.NoError(t, err)

	events := logger.NewAsyncLogger(db)
	go events.ProcessLog()

	return New(db, settings, m, events), db
}

func seedPending(t *testing.T, db *gorm.DB, code string, daysAgo int) *reservation.Reservation {
	t.Helper()
	origin := time.Now().UTC().AddDate(0, 0, -daysAgo)
	res := &reservation.Reservation{
		ReservationCode: code,
		InternalLocator: "KT" + code,
		Agency:          "Turismo Andino",
		TotalAmount:     100000,
		POStatus:        reservation.POStatusPending,
		RequiresPO:      true,
		OriginTimestamp: &origin,
	}
	require.NoError(t, db.Create(res).Error)
	return res
}

func closeTier(t *testing.T, db *gorm.DB, res *reservation.Reservation, kind notification.NoticeKind) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&notification.Record{
		ReservationID: res.ID,
		Kind:          kind,
		Recipient:     "a@b.cl",
		Subject:       "s",
		Status:        notification.StatusSent,
		ScheduledAt:   now,
		SentAt:        &now,
		Attempts:      1,
	}).Error)
}

// Without an agency contact the sweep still records the attempt as an
// error against the SIN EMAIL placeholder.
func TestProcessPendingWithoutContact(t *testing.T) {
	sched, db := setup(t)
	res := seedPending(t, db, "100", 0)

	sched.ProcessPending()

	var record notification.Record
	require.NoError(t, db.Where("reservation_id = ?", res.ID).First(&record).Error)
	assert.Equal(t, notification.KindInitial, record.Kind)
	assert.Equal(t, constants.NoEmailPlaceholder, record.Recipient)
	assert.Equal(t, notification.StatusError, record.Status)
}

// A failed attempt still blocks re-scheduling; recovery is the retry
// job's business, not the sweep's.
func TestProcessPendingNeverReschedulesATier(t *testing.T) {
	sched, db := setup(t)
	res := seedPending(t, db, "150", 0)

	sched.ProcessPending()
	sched.ProcessPending()

	var count int64
	require.NoError(t, db.Model(&notification.Record{}).
		Where("reservation_id = ?", res.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// A long outage collapses the backlog: the final notice is attempted
// and the lower tiers are closed as cancelled, never dispatched.
func TestProcessPendingCollapsesBacklog(t *testing.T) {
	sched, db := setup(t)
	res := seedPending(t, db, "200", 4)

	sched.ProcessPending()

	var records []notification.Record
	require.NoError(t, db.Where("reservation_id = ?", res.ID).Find(&records).Error)

	byKind := make(map[notification.NoticeKind]notification.DeliveryStatus)
	for _, r := range records {
		byKind[r.Kind] = r.Status
	}

	assert.Len(t, records, 3)
	assert.Equal(t, notification.StatusError, byKind[notification.KindFinalNotice])
	assert.Equal(t, notification.StatusCancelled, byKind[notification.KindReminder])
	assert.Equal(t, notification.StatusCancelled, byKind[notification.KindInitial])
}

func TestProcessPendingExpiresExhaustedReservations(t *testing.T) {
	sched, db := setup(t)
	res := seedPending(t, db, "300", 6)
	closeTier(t, db, res, notification.KindInitial)
	closeTier(t, db, res, notification.KindReminder)
	closeTier(t, db, res, notification.KindFinalNotice)

	sched.ProcessPending()

	var updated reservation.Reservation
	require.NoError(t, db.First(&updated, res.ID).Error)
	assert.Equal(t, reservation.POStatusExpired, updated.POStatus)
}

func TestProcessPendingRespectsClosedTiers(t *testing.T) {
	sched, db := setup(t)
	res := seedPending(t, db, "400", 1)
	closeTier(t, db, res, notification.KindInitial)

	sched.ProcessPending()

	// Day 1 with the initial sent: nothing new is owed.
	var count int64
	require.NoError(t, db.Model(&notification.Record{}).
		Where("reservation_id = ?", res.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCleanupExpired(t *testing.T) {
	sched, db := setup(t)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	tomorrow := time.Now().UTC().AddDate(0, 0, 2)

	past := seedPending(t, db, "500", 0)
	require.NoError(t, db.Model(past).Update("check_in", yesterday).Error)
	future := seedPending(t, db, "600", 0)
	require.NoError(t, db.Model(future).Update("check_in", tomorrow).Error)

	sched.CleanupExpired()

	var updated reservation.Reservation
	require.NoError(t, db.First(&updated, past.ID).Error)
	assert.Equal(t, reservation.POStatusExpired, updated.POStatus)

	var untouched reservation.Reservation
	require.NoError(t, db.First(&untouched, future.ID).Error)
	assert.Equal(t, reservation.POStatusPending, untouched.POStatus)
}

func TestAgencyPolicyOverrides(t *testing.T) {
	sched, db := setup(t)

	email := "contacto@andino.cl"
	require.NoError(t, db.Create(&clientconfig.ClientConfig{
		AgencyName:      "Turismo Andino",
		ContactEmail:    &email,
		RequiresPO:      true,
		Active:          true,
		ReminderDays:    3,
		FinalNoticeDays: 7,
	}).Error)

	recipient, reminderDays, finalDays := sched.agencyPolicy("Turismo Andino")
	assert.Equal(t, email, recipient)
	assert.Equal(t, 3, reminderDays)
	assert.Equal(t, 7, finalDays)

	// Unknown agencies use the global defaults and have no contact.
	recipient, reminderDays, finalDays = sched.agencyPolicy("Desconocida")
	assert.Equal(t, "", recipient)
	assert.Equal(t, 2, reminderDays)
	assert.Equal(t, 4, finalDays)
}

func TestStats(t *testing.T) {
	sched, db := setup(t)

	seedPending(t, db, "700", 5)
	seedPending(t, db, "701", 0)
	received := seedPending(t, db, "702", 1)
	require.NoError(t, db.Model(received).Update("po_status", reservation.POStatusReceived).Error)

	stats, err := sched.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Received)
	assert.Equal(t, int64(1), stats.Critical)
}
