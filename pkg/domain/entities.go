// Package domain defines the venue configuration records, collection keys,
// and rule evaluation primitives shared by the draft engine, the persistence
// backends and the HTTP surface.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityKind identifies the collection a record belongs to.
type EntityKind string

// Supported collection kinds used in records and persistence buckets.
const (
	// KindSeatOption identifies per-seat-type inventory settings.
	KindSeatOption EntityKind = "seat_option"
	// KindOperatingHours identifies the weekly opening schedule.
	KindOperatingHours EntityKind = "operating_hours"
	// KindException identifies a dated exception to the weekly schedule.
	KindException EntityKind = "exception_date"
)

// Kinds lists every supported collection kind.
func Kinds() []EntityKind {
	return []EntityKind{KindSeatOption, KindOperatingHours, KindException}
}

// ParseEntityKind validates a collection kind string.
func ParseEntityKind(raw string) (EntityKind, error) {
	for _, kind := range Kinds() {
		if string(kind) == raw {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", raw)
}

// Key is implemented by every collection key type. Keys are intrinsic to the
// domain and never change identity.
type Key interface {
	comparable
	String() string
}

// SeatType enumerates the bookable seating categories of a bar.
type SeatType string

// Seating categories.
const (
	SeatTable   SeatType = "table"
	SeatBar     SeatType = "bar"
	SeatCounter SeatType = "counter"
)

// SeatTypes returns the fixed seat type key space in display order.
func SeatTypes() []SeatType {
	return []SeatType{SeatTable, SeatBar, SeatCounter}
}

func (s SeatType) String() string { return string(s) }

// ParseSeatType resolves a seat type from its string form.
func ParseSeatType(raw string) (SeatType, error) {
	for _, st := range SeatTypes() {
		if string(st) == strings.ToLower(strings.TrimSpace(raw)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown seat type %q", raw)
}

// Weekday identifies a day of the operating week, Monday first.
type Weekday int

// Days of the operating week.
const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Weekdays returns the fixed weekday key space in week order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// MarshalText encodes the weekday by name.
func (d Weekday) MarshalText() ([]byte, error) {
	if d < Monday || d > Sunday {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a weekday name.
func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseWeekday resolves a weekday from its full or three letter name.
func ParseWeekday(raw string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, full := range weekdayNames {
		if name == full || (len(name) == 3 && strings.HasPrefix(full, name)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// ExceptionDateLayout is the calendar layout of exception keys.
const ExceptionDateLayout = "2006-01-02"

// ExceptionDate is a calendar date key (YYYY-MM-DD). The key space is open
// ended; each date is still unique within a bar.
type ExceptionDate string

func (d ExceptionDate) String() string { return string(d) }

// Time returns the date at midnight UTC.
func (d ExceptionDate) Time() time.Time {
	t, _ := time.Parse(ExceptionDateLayout, string(d))
	return t
}

// ParseExceptionDate validates and canonicalises a calendar date.
func ParseExceptionDate(raw string) (ExceptionDate, error) {
	t, err := time.Parse(ExceptionDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid exception date %q: want YYYY-MM-DD", raw)
	}
	return ExceptionDate(t.Format(ExceptionDateLayout)), nil
}

// ExceptionDateOf returns the exception key for the calendar day of t.
func ExceptionDateOf(t time.Time) ExceptionDate {
	return ExceptionDate(t.Format(ExceptionDateLayout))
}

// SeatOptionFields is the editable payload of one seat type. Numeric inputs are
// nullable so partially typed values can live in a draft.
type SeatOptionFields struct {
	Enabled        bool             `json:"enabled"`
	AvailableCount *int             `json:"available_count"`
	MinPartySize   *int             `json:"min_party_size"`
	MaxPartySize   *int             `json:"max_party_size"`
	Restrictions   SeatRestrictions `json:"restrictions"`
	Notes          string           `json:"notes,omitempty"`
}

// SeatRestrictions carries booking restrictions for a seat type.
type SeatRestrictions struct {
	MinimumSpendEnabled bool `json:"minimum_spend_enabled"`
	// MinimumSpend is expressed in minor currency units.
	MinimumSpend    *int `json:"minimum_spend"`
	DepositRequired bool `json:"deposit_required"`
}

// OperatingHoursFields is the editable payload of one weekday. Times are
// minutes after midnight.
type OperatingHoursFields struct {
	Open               bool `json:"open"`
	OpensAt            *int `json:"opens_at"`
	ClosesAt           *int `json:"closes_at"`
	MaxCovers          *int `json:"max_covers"`
	LastSeatingEnabled bool `json:"last_seating_enabled"`
	LastSeatingMinutes *int `json:"last_seating_minutes"`
}

// ExceptionFields is the editable payload of one exception date.
type ExceptionFields struct {
	Closed                  bool   `json:"closed"`
	OpensAt                 *int   `json:"opens_at"`
	ClosesAt                *int   `json:"closes_at"`
	CapacityOverrideEnabled bool   `json:"capacity_override_enabled"`
	Capacity                *int   `json:"capacity"`
	Reason                  string `json:"reason,omitempty"`
}

// MinutesPerDay bounds time-of-day values.
const MinutesPerDay = 24 * 60

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
