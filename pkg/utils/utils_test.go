package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	for _, in := range []string{"29-JAN-2026", "29-jan-2026", "29-Jan-2026"} {
		d, err := ParseExpiry(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, 2026, d.Year())
		assert.Equal(t, time.January, d.Month())
		assert.Equal(t, 29, d.Day())
	}

	for _, in := range []string{"", "2026-01-29", "29/JAN/2026", "29-JANUARY-2026", "32-JAN-2026"} {
		_, err := ParseExpiry(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestFormatExpiryRoundTrip(t *testing.T) {
	d := time.Date(2026, time.February, 5, 0, 0, 0, 0, IndiaLocation)
	s := FormatExpiry(d)
	assert.Equal(t, "05-FEB-2026", s)

	parsed, err := ParseExpiry(s)
	require.NoError(t, err)
	assert.True(t, d.Equal(parsed))
}

func TestIsToday(t *testing.T) {
	now := time.Date(2026, 1, 29, 13, 0, 0, 0, IndiaLocation)
	sameDay := time.Date(2026, 1, 29, 0, 0, 0, 0, IndiaLocation)
	nextDay := time.Date(2026, 1, 30, 0, 0, 0, 0, IndiaLocation)

	assert.True(t, IsToday(sameDay, now))
	assert.False(t, IsToday(nextDay, now))
}

func TestRoundToStep(t *testing.T) {
	assert.Equal(t, 25000.0, RoundToStep(25012, 50))
	assert.Equal(t, 25050.0, RoundToStep(25025, 50))
	assert.Equal(t, 25000.0, RoundToStep(24980, 50))
	assert.Equal(t, 123.45, RoundToStep(123.45, 0))
}

func TestFormatIndianCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "₹0.00"},
		{999, "₹999.00"},
		{1000, "₹1,000.00"},
		{123456.78, "₹1,23,456.78"},
		{12345678.9, "₹1,23,45,678.90"},
		{-2500, "-₹2,500.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatIndianCurrency(tt.in), "input %v", tt.in)
	}
}

func TestFormatPnl(t *testing.T) {
	assert.Equal(t, "+₹3,000.00", FormatPnl(3000))
	assert.Equal(t, "-₹2,000.00", FormatPnl(-2000))
	assert.Equal(t, "+₹0.00", FormatPnl(0))
}
