package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateRange is a half-open [From, To) window of calendar days. When Period is
// set it takes precedence and is resolved relative to "now" by Bounds.
type DateRange struct {
	From   time.Time
	To     time.Time
	Period string
}

// OneDay returns the window [day, day+1).
func OneDay(day time.Time) DateRange {
	d := Day(day)
	return DateRange{From: d, To: d.AddDate(0, 0, 1)}
}

// LastPeriod returns a range described only by a period code such as "5d".
func LastPeriod(period string) DateRange { return DateRange{Period: period} }

// earliest is what "max" resolves to.
var earliest = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Bounds resolves the range into concrete day bounds. The upper bound of a
// period range is tomorrow so that today's observation is included.
func (r DateRange) Bounds(now time.Time) (from, to time.Time, err error) {
	if r.Period == "" {
		if r.From.IsZero() || r.To.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("date range: missing bounds")
		}
		from, to = Day(r.From), Day(r.To)
		if !to.After(from) {
			return time.Time{}, time.Time{}, fmt.Errorf("date range: empty window %s..%s", from.Format(DateLayout), to.Format(DateLayout))
		}
		return from, to, nil
	}
	today := Day(now)
	to = today.AddDate(0, 0, 1)
	from, err = PeriodStart(r.Period, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// Contains reports whether day falls inside [from, to).
func Contains(from, to, day time.Time) bool {
	return !day.Before(from) && day.Before(to)
}

// PeriodStart maps a Yahoo-style range code onto the first day it covers.
// Accepted: Nd, Nwk, Nmo, Ny, ytd, max.
func PeriodStart(period string, today time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "":
		return time.Time{}, fmt.Errorf("period: empty")
	case "ytd":
		return time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "max":
		return earliest, nil
	}
	unit := ""
	for _, u := range []string{"mo", "wk", "d", "y"} {
		if strings.HasSuffix(p, u) {
			unit = u
			break
		}
	}
	if unit == "" {
		return time.Time{}, fmt.Errorf("period %q: unknown unit", period)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(p, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("period %q: bad count", period)
	}
	switch unit {
	case "d":
		return today.AddDate(0, 0, -(n - 1)), nil
	case "wk":
		return today.AddDate(0, 0, -7*n), nil
	case "mo":
		return today.AddDate(0, -n, 0), nil
	default:
		return today.AddDate(-n, 0, 0), nil
	}
}

// ValidPeriod reports whether period is a recognized range code.
func ValidPeriod(period string) bool {
	_, err := PeriodStart(period, Day(time.Now()))
	return err == nil
}
