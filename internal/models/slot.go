package models

import (
	"fmt"
	"strings"
)

// Weekday is the canonical day encoding used everywhere behind the HTTP boundary.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
)

// AllWeekdays lists the recognised days in week order.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

var weekdayAliases = map[string]Weekday{
	"MONDAY": Monday, "MON": Monday, "M": Monday,
	"TUESDAY": Tuesday, "TUE": Tuesday, "TU": Tuesday, "T": Tuesday,
	"WEDNESDAY": Wednesday, "WED": Wednesday, "W": Wednesday,
	"THURSDAY": Thursday, "THU": Thursday, "TH": Thursday,
	"FRIDAY": Friday, "FRI": Friday, "F": Friday,
	"SATURDAY": Saturday, "SAT": Saturday, "SA": Saturday,
}

// ParseWeekday converts full names, three-letter abbreviations and short
// codes (M, T, W, TH, F, SA) into the canonical form.
func ParseWeekday(raw string) (Weekday, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if day, ok := weekdayAliases[key]; ok {
		return day, nil
	}
	return "", fmt.Errorf("unrecognised day %q", raw)
}

// ParseWeekdays parses a list of day labels preserving order and dropping duplicates.
func ParseWeekdays(raw []string) ([]Weekday, error) {
	seen := make(map[Weekday]struct{}, len(raw))
	days := make([]Weekday, 0, len(raw))
	for _, item := range raw {
		day, err := ParseWeekday(item)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	return days, nil
}

// Index returns the zero-based position in the week, or -1 for unknown values.
func (d Weekday) Index() int {
	for i, day := range AllWeekdays {
		if day == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is one of the canonical values.
func (d Weekday) Valid() bool {
	return d.Index() >= 0
}

// Label renders the day in title case for documents.
func (d Weekday) Label() string {
	if d == "" {
		return ""
	}
	lower := strings.ToLower(string(d))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Slot is a (day, period) pair.
type Slot struct {
	Day    Weekday `db:"day" json:"day"`
	Period int     `db:"period" json:"period"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%s/%d", s.Day, s.Period)
}

// Less orders slots by week position then period.
func (s Slot) Less(other Slot) bool {
	if s.Day != other.Day {
		return s.Day.Index() < other.Day.Index()
	}
	return s.Period < other.Period
}

// SlotRules captures the configured school week.
type SlotRules struct {
	Days          []Weekday
	PeriodsPerDay int
}

// DefaultSlotRules is Monday to Friday with eight periods.
func DefaultSlotRules() SlotRules {
	return SlotRules{Days: []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}, PeriodsPerDay: 8}
}

// NewSlotRules parses configured day labels.
func NewSlotRules(days []string, periodsPerDay int) (SlotRules, error) {
	parsed, err := ParseWeekdays(days)
	if err != nil {
		return SlotRules{}, err
	}
	if len(parsed) == 0 {
		return SlotRules{}, fmt.Errorf("at least one school day is required")
	}
	if periodsPerDay <= 0 {
		return SlotRules{}, fmt.Errorf("periods per day must be positive, got %d", periodsPerDay)
	}
	return SlotRules{Days: parsed, PeriodsPerDay: periodsPerDay}, nil
}

// Resolve parses raw input into a slot within the configured week.
func (r SlotRules) Resolve(rawDay string, period int) (Slot, error) {
	day, err := ParseWeekday(rawDay)
	if err != nil {
		return Slot{}, err
	}
	slot := Slot{Day: day, Period: period}
	if err := r.Check(slot); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

// Check validates a canonical slot against the configured week.
func (r SlotRules) Check(slot Slot) error {
	if !r.hasDay(slot.Day) {
		return fmt.Errorf("day %s is not a school day", slot.Day)
	}
	if slot.Period < 1 || slot.Period > r.PeriodsPerDay {
		return fmt.Errorf("period must be between 1 and %d", r.PeriodsPerDay)
	}
	return nil
}

func (r SlotRules) hasDay(day Weekday) bool {
	for _, d := range r.Days {
		if d == day {
			return true
		}
	}
	return false
}
