package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"po-tracking/database"
	"po-tracking/models/reservation"
	"po-tracking/services/mailbox"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seed(t *testing.T, db *gorm.DB, res *reservation.Reservation) *reservation.Reservation {
	t.Helper()
	if res.POStatus == "" {
		res.POStatus = reservation.POStatusPending
	}
	res.RequiresPO = true
	require.NoError(t, db.Create(res).Error)
	return res
}

func TestIsPOSubject(t *testing.T) {
	assert.True(t, IsPOSubject("Orden de Compra - Reserva ID 45215412"))
	assert.True(t, IsPOSubject("RE: OC pendiente"))
	assert.True(t, IsPOSubject("Purchase Order 8812"))
	assert.False(t, IsPOSubject("Itinerario de vuelo"))
}

func TestMatchByReservationCode(t *testing.T) {
	db := setupDB(t)
	want := seed(t, db, &reservation.Reservation{
		ReservationCode: "45215412",
		InternalLocator: "KT1001",
		Agency:          "Turismo Andino",
	})
	seed(t, db, &reservation.Reservation{
		ReservationCode: "99999999",
		InternalLocator: "KT1002",
		Agency:          "Otra Agencia",
	})

	msg := &mailbox.Message{
		Subject:     "Orden de Compra - Reserva ID 45215412",
		FromAddress: "compras@cliente.cl",
	}

	got, err := Match(db, msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestMatchByInternalLocator(t *testing.T) {
	db := setupDB(t)
	want := seed(t, db, &reservation.Reservation{
		ReservationCode: "11111",
		InternalLocator: "KT8842",
		Agency:          "Turismo Andino",
	})

	msg := &mailbox.Message{
		Subject:  "Adjunto OC",
		BodyText: "Corresponde a la reserva LOC KT8842, saludos.",
	}

	got, err := Match(db, msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestMatchBySenderAgency(t *testing.T) {
	db := setupDB(t)
	want := seed(t, db, &reservation.Reservation{
		ReservationCode: "22222",
		InternalLocator: "KT2002",
		Agency:          "andesviajes",
	})

	msg := &mailbox.Message{
		Subject:     "Orden de compra adjunta",
		FromAddress: "finanzas@andesviajes.cl",
	}

	got, err := Match(db, msg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestMatchIgnoresClosedReservations(t *testing.T) {
	db := setupDB(t)
	seed(t, db, &reservation.Reservation{
		ReservationCode: "33333",
		InternalLocator: "KT3003",
		Agency:          "Agencia Sur",
		POStatus:        reservation.POStatusReceived,
	})

	msg := &mailbox.Message{
		Subject: "OC Reserva ID 33333",
	}

	got, err := Match(db, msg)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchNothing(t *testing.T) {
	db := setupDB(t)
	seed(t, db, &reservation.Reservation{
		ReservationCode: "44444",
		InternalLocator: "KT4004",
		Agency:          "Agencia Norte",
	})

	msg := &mailbox.Message{
		Subject:     "Orden de compra sin referencia",
		FromAddress: "alguien@desconocido.cl",
	}

	got, err := Match(db, msg)
	require.NoError(t, err)
	assert.Nil(t, got)
}
