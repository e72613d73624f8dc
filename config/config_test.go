package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListSettings(t *testing.T) {
	s := &Settings{
		EmailCCRecipients:          "admin@kontroltravel.com, gerencia@kontroltravel.com,",
		AllowedConfirmationSenders: "Reservas@KontrolTravel.com",
		AgenciesRequiringPO:        "Turismo Andino, Viajes Sur",
	}

	assert.Equal(t, []string{"admin@kontroltravel.com", "gerencia@kontroltravel.com"}, s.CCRecipients())
	assert.Equal(t, []string{"Turismo Andino", "Viajes Sur"}, s.Agencies())

	// Sender comparison is case-insensitive.
	assert.True(t, s.IsSenderAllowed("reservas@kontroltravel.com"))
	assert.True(t, s.IsSenderAllowed(" RESERVAS@kontroltravel.com "))
	assert.False(t, s.IsSenderAllowed("otro@kontroltravel.com"))

	// Agency names are matched exactly.
	assert.True(t, s.RequiresPO("Turismo Andino"))
	assert.False(t, s.RequiresPO("turismo andino"))
	assert.False(t, s.RequiresPO("Desconocida"))
}

func TestValidateReportsGaps(t *testing.T) {
	s := &Settings{}
	errs := s.Validate()
	assert.Len(t, errs, 4)

	s = &Settings{
		IMAPHost: "imap.example.com", IMAPUsername: "u",
		POInboxHost: "imap.example.com", POInboxUsername: "u",
		SMTPHost: "smtp.example.com", SMTPUsername: "u",
		AgenciesRequiringPO: "Turismo Andino",
	}
	assert.Empty(t, s.Validate())
}
