package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used on every boundary.
const DateLayout = "2006-01-02"

// Quote is the normalized daily observation returned by all providers.
// Date is a calendar date at UTC midnight.
type Quote struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
	Source string          `json:"source,omitempty"`
}

// Day returns the quote date formatted as YYYY-MM-DD.
func (q Quote) Day() string { return q.Date.Format(DateLayout) }

// CompanySnapshot holds descriptive company data. Fields a provider does not
// carry are left empty.
type CompanySnapshot struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
}

type Provider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, r DateRange) ([]Quote, error)
	FetchSnapshot(ctx context.Context, symbol string) (CompanySnapshot, error)
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD calendar date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
