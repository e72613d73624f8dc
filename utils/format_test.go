package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.000"},
		{1234567, "1.234.567"},
		{-50000, "-50.000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.value))
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", FormatDate(nil))

	d := time.Date(2025, time.November, 27, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "27/11/2025", FormatDate(&d))
}
