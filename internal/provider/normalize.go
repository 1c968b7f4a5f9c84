package provider

import (
	"sort"
	"time"
)

// NormalizeHistory collapses quotes to one per calendar day, ordered by date
// ascending. For duplicate days later input wins. Quotes with a negative close
// are dropped and negative volumes clamp to zero. Dates are truncated to UTC
// midnight.
func NormalizeHistory(quotes []Quote) []Quote {
	byDay := make(map[time.Time]Quote, len(quotes))
	for _, q := range quotes {
		if q.Close.IsNegative() {
			continue
		}
		q.Date = Day(q.Date)
		if q.Volume < 0 {
			q.Volume = 0
		}
		byDay[q.Date] = q
	}

	out := make([]Quote, 0, len(byDay))
	for _, q := range byDay {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Window keeps only the quotes whose day falls in [from, to).
func Window(quotes []Quote, from, to time.Time) []Quote {
	out := quotes[:0:0]
	for _, q := range quotes {
		if Contains(from, to, Day(q.Date)) {
			out = append(out, q)
		}
	}
	return out
}
