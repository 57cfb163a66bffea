// Package venue defines the concrete collections edited through the draft
// engine: seat options, weekly operating hours and exception dates.
package venue

import (
	"fmt"
	"strconv"
	"strings"

	"venueadmin/internal/draft"
	"venueadmin/pkg/domain"
)

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intPtr(v int) *int { return &v }

// reconcileBounds keeps low <= high after an edit. The bound that was edited
// wins and the other one is pulled to it; when both were edited the lower
// bound wins. An unchanged inconsistent pair is left for the validator.
func reconcileBounds(prevLow, prevHigh *int, low, high **int) {
	if *low == nil || *high == nil || **low <= **high {
		return
	}
	lowEdited := !equalInt(prevLow, *low)
	highEdited := !equalInt(prevHigh, *high)
	switch {
	case lowEdited:
		*high = cloneInt(*low)
	case highEdited:
		*low = cloneInt(*high)
	}
}

// ParseClock parses HH:MM into minutes after midnight. 24:00 is accepted as
// the end of the day.
func ParseClock(raw string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not HH:MM", domain.ErrInvalidValue, raw)
	}
	h, errH := strconv.Atoi(hh)
	m, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil || h < 0 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q is not HH:MM", domain.ErrInvalidValue, raw)
	}
	minutes := h*60 + m
	if minutes > domain.MinutesPerDay {
		return 0, fmt.Errorf("%w: %q is past midnight", domain.ErrInvalidValue, raw)
	}
	return minutes, nil
}

// clockField builds a setter for a time-of-day field accepting HH:MM text or
// a number of minutes.
func clockField[F any](target func(*F) **int) draft.FieldSetter[F] {
	return func(fields *F, value any) error {
		if s, ok := value.(string); ok && strings.Contains(s, ":") {
			minutes, err := ParseClock(s)
			if err != nil {
				return err
			}
			*target(fields) = &minutes
			return nil
		}
		v, err := draft.IntValue(value)
		if err != nil {
			return err
		}
		if v != nil && (*v < 0 || *v > domain.MinutesPerDay) {
			return fmt.Errorf("%w: %d minutes is outside the day", domain.ErrInvalidValue, *v)
		}
		*target(fields) = v
		return nil
	}
}

// clockWindowRules are shared by operating hours and exception dates.
func clockWindowViolations(opensAt, closesAt *int) []domain.Violation {
	var out []domain.Violation
	if opensAt == nil {
		out = append(out, domain.Violation{Rule: "opening_time_required", Message: "Opening time is required when open"})
	}
	if closesAt == nil {
		out = append(out, domain.Violation{Rule: "closing_time_required", Message: "Closing time is required when open"})
	}
	if opensAt != nil && closesAt != nil {
		switch {
		case *opensAt > *closesAt:
			out = append(out, domain.Violation{
				Rule:    "time_window_order",
				Message: fmt.Sprintf("Opening time %s must not be after closing time %s", domain.FormatClock(*opensAt), domain.FormatClock(*closesAt)),
			})
		case *opensAt == *closesAt:
			out = append(out, domain.Violation{
				Rule:     "time_window_empty",
				Severity: domain.SeverityWarn,
				Message:  "Opening and closing times are equal; no bookings can be taken",
			})
		}
	}
	return out
}
