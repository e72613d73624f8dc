package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfirmation = `CONFIRMACIÓN DE RESERVA
ID: 45215412
LOC Interno: KT8842
Localizador: 99120
Agencia: Turismo Andino SpA
Fecha Emision: 12 nov. 2025
Gran Hotel Pacífico
Av. Providencia 1234, Santiago,
Teléfono: 226789900
Check In: jueves 27, nov. 2025
Check Out: domingo 30, nov. 2025
Hora Llegada: 3:00 PM
Hora Salida: 12:00 PM
Noches: 3
Habitaciones: 2
Total: CLP $1.234.567
`

func TestParseTextFullDocument(t *testing.T) {
	f := ParseText(sampleConfirmation)

	assert.Equal(t, "45215412", f.ReservationCode)
	assert.Equal(t, "KT8842", f.InternalLocator)
	assert.Equal(t, "99120", f.Locator)
	assert.Equal(t, "Turismo Andino SpA", f.Agency)

	require.NotNil(t, f.IssueDate)
	assert.Equal(t, time.Date(2025, time.November, 12, 0, 0, 0, 0, time.UTC), *f.IssueDate)

	require.NotNil(t, f.CheckIn)
	assert.Equal(t, time.Date(2025, time.November, 27, 0, 0, 0, 0, time.UTC), *f.CheckIn)
	require.NotNil(t, f.CheckOut)
	assert.Equal(t, time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC), *f.CheckOut)

	assert.Equal(t, "3:00 PM", f.ArrivalTime)
	assert.Equal(t, 3, f.Nights)
	assert.Equal(t, 2, f.Rooms)

	require.NotNil(t, f.TotalAmount)
	assert.Equal(t, float64(1234567), *f.TotalAmount)
	assert.Equal(t, "CLP", f.Currency)
}

func TestParseTextLocatorFallback(t *testing.T) {
	// Documents without an explicit ID reuse the internal locator as
	// the reservation code.
	f := ParseText("LOC Interno: AB1234\nAgencia: Viajes Sur\nTotal: CLP $500.000\n")

	assert.Equal(t, "AB1234", f.ReservationCode)
	assert.Equal(t, "AB1234", f.InternalLocator)
}

func TestParseTextImmediateIssueDate(t *testing.T) {
	f := ParseText("ID: 100\nFecha Emision: INMEDIATO\n")
	assert.Nil(t, f.IssueDate)
}

func TestParseAmountVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"total clp", "Total: CLP $1.234.567", 1234567},
		{"total dollar sign", "Total: $ 850.000", 850000},
		{"monto total", "Monto Total: CLP 2.500.000", 2500000},
		{"total a pagar", "Total a Pagar: $123.456", 123456},
		{"comma separators", "Total: CLP $1,234,567", 1234567},
		{"fallback bare currency", "El valor asciende a CLP 987.654 por la estadía", 987654},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, currency := parseAmount(tt.text)
			require.NotNil(t, amount)
			assert.Equal(t, tt.want, *amount)
			assert.Equal(t, "CLP", currency)
		})
	}
}

func TestParseAmountAbsent(t *testing.T) {
	amount, currency := parseAmount("sin montos en este texto")
	assert.Nil(t, amount)
	assert.Equal(t, "", currency)
}

func TestParseSpanishDate(t *testing.T) {
	tests := []struct {
		raw  string
		want *time.Time
	}{
		{"27 nov. 2025", timePtr(2025, time.November, 27)},
		{"3 enero 2026", timePtr(2026, time.January, 3)},
		{"15 DIC 2025", timePtr(2025, time.December, 15)},
		{"garbage", nil},
		{"27 xyz 2025", nil},
		{"nov 2025", nil},
	}

	for _, tt := range tests {
		got := ParseSpanishDate(tt.raw)
		if tt.want == nil {
			assert.Nil(t, got, tt.raw)
		} else {
			require.NotNil(t, got, tt.raw)
			assert.Equal(t, *tt.want, *got, tt.raw)
		}
	}
}

func TestValidateMandatoryFields(t *testing.T) {
	amount := 1000.0

	valid := Fields{
		ReservationCode: "1",
		InternalLocator: "L1",
		Agency:          "A",
		TotalAmount:     &amount,
	}
	ok, reasons := Validate(valid)
	assert.True(t, ok)
	assert.Empty(t, reasons)

	ok, reasons = Validate(Fields{ReservationCode: "1"})
	assert.False(t, ok)
	assert.Len(t, reasons, 3)
}

func timePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
