package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekdayAcceptsBothEncodings(t *testing.T) {
	cases := map[string]Weekday{
		"Monday":    Monday,
		"mon":       Monday,
		"M":         Monday,
		" tuesday ": Tuesday,
		"T":         Tuesday,
		"W":         Wednesday,
		"TH":        Thursday,
		"thu":       Thursday,
		"F":         Friday,
		"SA":        Saturday,
		"SATURDAY":  Saturday,
	}
	for raw, want := range cases {
		got, err := ParseWeekday(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseWeekdayRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "SUNDAY", "S", "funday"} {
		_, err := ParseWeekday(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseWeekdaysDeduplicates(t *testing.T) {
	days, err := ParseWeekdays([]string{"M", "monday", "TU"})
	require.NoError(t, err)
	assert.Equal(t, []Weekday{Monday, Tuesday}, days)
}

func TestSlotRulesResolve(t *testing.T) {
	rules := DefaultSlotRules()

	slot, err := rules.Resolve("mon", 1)
	require.NoError(t, err)
	assert.Equal(t, Slot{Day: Monday, Period: 1}, slot)

	_, err = rules.Resolve("SA", 1)
	assert.Error(t, err)

	_, err = rules.Resolve("Monday", 0)
	assert.Error(t, err)

	_, err = rules.Resolve("Monday", 9)
	assert.Error(t, err)
}

func TestNewSlotRulesValidates(t *testing.T) {
	_, err := NewSlotRules(nil, 8)
	assert.Error(t, err)

	_, err = NewSlotRules([]string{"MONDAY"}, 0)
	assert.Error(t, err)

	rules, err := NewSlotRules([]string{"M", "SA"}, 6)
	require.NoError(t, err)
	assert.NoError(t, rules.Check(Slot{Day: Saturday, Period: 6}))
}

func TestSlotOrdering(t *testing.T) {
	assert.True(t, Slot{Day: Monday, Period: 8}.Less(Slot{Day: Tuesday, Period: 1}))
	assert.True(t, Slot{Day: Friday, Period: 1}.Less(Slot{Day: Friday, Period: 2}))
	assert.False(t, Slot{Day: Saturday, Period: 1}.Less(Slot{Day: Monday, Period: 1}))
	assert.Equal(t, "Wednesday", Wednesday.Label())
}
