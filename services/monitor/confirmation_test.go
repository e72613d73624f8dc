package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"po-tracking/config"
	"po-tracking/models/clientconfig"
	"po-tracking/models/reservation"
	"po-tracking/services/extractor"
	"po-tracking/services/mailbox"
)

func confirmationSettings() *config.Settings {
	return &config.Settings{
		AllowedConfirmationSenders: "reservas@kontroltravel.com",
		AgenciesRequiringPO:        "Turismo Andino",
	}
}

func confirmationFields(code string) extractor.Fields {
	amount := 1234567.0
	return extractor.Fields{
		ReservationCode: code,
		InternalLocator: "KT" + code,
		Agency:          "Turismo Andino",
		TotalAmount:     &amount,
		Currency:        "CLP",
	}
}

func confirmationMessage() *mailbox.Message {
	return &mailbox.Message{
		ID:          3,
		Subject:     "Confirmación de Reserva 45215412",
		FromAddress: "reservas@kontroltravel.com",
		Date:        time.Now().UTC().Add(-time.Hour),
	}
}

func TestConfirmationProcessorRejectsOtherSubjects(t *testing.T) {
	db := setupDB(t)
	processor := &ConfirmationProcessor{Settings: confirmationSettings()}

	msg := confirmationMessage()
	msg.Subject = "Factura de servicios"

	handled, err := processor.Process(db, msg)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestConfirmationProcessorRejectsUnknownSender(t *testing.T) {
	db := setupDB(t)
	processor := &ConfirmationProcessor{Settings: confirmationSettings()}

	msg := confirmationMessage()
	msg.FromAddress = "spam@otro.com"

	handled, err := processor.Process(db, msg)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestConfirmationProcessorNeedsAttachments(t *testing.T) {
	db := setupDB(t)
	processor := &ConfirmationProcessor{Settings: confirmationSettings()}

	handled, err := processor.Process(db, confirmationMessage())
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestCreateReservationFromFields(t *testing.T) {
	db := setupDB(t)
	processor := &ConfirmationProcessor{Settings: confirmationSettings()}
	msg := confirmationMessage()

	created, err := processor.createReservation(db, msg, "confirmacion.pdf", confirmationFields("45215412"))
	require.NoError(t, err)
	assert.True(t, created)

	var res reservation.Reservation
	require.NoError(t, db.Where("reservation_code = ?", "45215412").First(&res).Error)
	assert.Equal(t, reservation.POStatusPending, res.POStatus)
	assert.True(t, res.RequiresPO)
	assert.Equal(t, float64(1234567), res.TotalAmount)

	// Day 0 is the email's own date, not the row insert time.
	require.NotNil(t, res.OriginTimestamp)
	assert.WithinDuration(t, msg.Date, *res.OriginTimestamp, time.Second)
}

func TestCreateReservationDuplicateIsIdempotent(t *testing.T) {
	db := setupDB(t)
	processor := &ConfirmationProcessor{Settings: confirmationSettings()}
	msg := confirmationMessage()

	created, err := processor.createReservation(db, msg, "a.pdf", confirmationFields("777"))
	require.NoError(t, err)
	require.True(t, created)

	// Reprocessing the same document counts as handled without a second row.
	created, err = processor.createReservation(db, msg, "a.pdf", confirmationFields("777"))
	require.NoError(t, err)
	assert.True(t, created)

	var count int64
	require.NoError(t, db.Model(&reservation.Reservation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateReservationAgencyWithoutPO(t *testing.T) {
	db := setupDB(t)
	processor := &ConfirmationProcessor{Settings: confirmationSettings()}

	fields := confirmationFields("888")
	fields.Agency = "Agencia Sin Convenio"

	created, err := processor.createReservation(db, confirmationMessage(), "b.pdf", fields)
	require.NoError(t, err)
	require.True(t, created)

	var res reservation.Reservation
	require.NoError(t, db.Where("reservation_code = ?", "888").First(&res).Error)
	assert.Equal(t, reservation.POStatusNotRequired, res.POStatus)
	assert.False(t, res.RequiresPO)
}

func TestAgencyRequiresPOPrefersClientConfig(t *testing.T) {
	db := setupDB(t)
	processor := &ConfirmationProcessor{Settings: confirmationSettings()}

	// The static list says yes, but the stored config overrides it.
	require.NoError(t, db.Create(&clientconfig.ClientConfig{
		AgencyName: "Turismo Andino",
		RequiresPO: false,
		Active:     true,
	}).Error)

	assert.False(t, processor.agencyRequiresPO(db, "Turismo Andino"))

	// Inactive configs fall back to the static list.
	require.NoError(t, db.Model(&clientconfig.ClientConfig{}).
		Where("agency_name = ?", "Turismo Andino").
		Update("active", false).Error)

	assert.True(t, processor.agencyRequiresPO(db, "Turismo Andino"))
}
