package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateAt_NormalizesToCanonical(t *testing.T) {
	d, err := NewDate(2025, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05 09:00", d.At(9, 0))
	assert.Equal(t, "2025-03-05", d.String())
}

func TestNewDate_RejectsImpossibleDays(t *testing.T) {
	_, err := NewDate(2023, 2, 29)
	assert.ErrorIs(t, err, ErrInvalidDue)
	_, err = NewDate(2024, 13, 1)
	assert.ErrorIs(t, err, ErrInvalidDue)
	_, err = NewDate(2024, 2, 29)
	assert.NoError(t, err)
}

func TestNowDue_TruncatesToMinuteInZone(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2025, 3, 15, 11, 30, 59, 999, time.UTC)
	assert.Equal(t, "2025-03-15 14:30", NowDue(now, loc))
}

func TestParseDue(t *testing.T) {
	got, err := ParseDue("2025-03-15 14:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "2025-3-15 14:30", "2025-03-15T14:30", "2025-03-15 25:00"} {
		_, err := ParseDue(bad, time.UTC)
		assert.ErrorIs(t, err, ErrInvalidDue, bad)
	}
}

func TestSlots(t *testing.T) {
	slots := Slots()
	require.Len(t, slots, 48)
	assert.Equal(t, "00:00", slots[0])
	assert.Equal(t, "00:30", slots[1])
	assert.Equal(t, "23:30", slots[47])
}

func TestParseHHMM(t *testing.T) {
	h, m, err := ParseHHMM("9:30")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"24:00", "12:60", "12", "ab:cd"} {
		_, _, err := ParseHHMM(bad)
		assert.Error(t, err, bad)
	}
}
