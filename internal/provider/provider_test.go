package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalizeHistory_SortsAndLaterDuplicateWins(t *testing.T) {
	in := []Quote{
		{Symbol: "AAPL", Date: day("2024-01-03"), Close: decimal.NewFromInt(12), Volume: 30},
		{Symbol: "AAPL", Date: day("2024-01-02").Add(15 * time.Hour), Close: decimal.NewFromInt(10), Volume: 10},
		{Symbol: "AAPL", Date: day("2024-01-02"), Close: decimal.NewFromInt(11), Volume: 20},
	}
	out := NormalizeHistory(in)
	if len(out) != 2 {
		t.Fatalf("want 2, got %d: %+v", len(out), out)
	}
	if out[0].Day() != "2024-01-02" || !out[0].Close.Equal(decimal.NewFromInt(11)) {
		t.Fatalf("unexpected first: %+v", out[0])
	}
	if out[1].Day() != "2024-01-03" {
		t.Fatalf("unexpected second: %+v", out[1])
	}
	if !out[0].Date.Equal(day("2024-01-02")) {
		t.Fatalf("date not truncated: %v", out[0].Date)
	}
}

func TestNormalizeHistory_DropsNegativeCloseClampsVolume(t *testing.T) {
	in := []Quote{
		{Symbol: "X", Date: day("2024-01-02"), Close: decimal.NewFromInt(-1), Volume: 5},
		{Symbol: "X", Date: day("2024-01-03"), Close: decimal.Zero, Volume: -7},
	}
	out := NormalizeHistory(in)
	require.Len(t, out, 1)
	require.Equal(t, "2024-01-03", out[0].Day())
	require.Equal(t, int64(0), out[0].Volume)
}

func TestWindow_HalfOpen(t *testing.T) {
	qs := []Quote{{Date: day("2024-01-01")}, {Date: day("2024-01-02")}, {Date: day("2024-01-03")}}
	out := Window(qs, day("2024-01-02"), day("2024-01-03"))
	require.Len(t, out, 1)
	require.Equal(t, "2024-01-02", out[0].Day())
}

func TestDateRange_Bounds(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

	from, to, err := OneDay(day("2024-03-01")).Bounds(now)
	require.NoError(t, err)
	require.Equal(t, day("2024-03-01"), from)
	require.Equal(t, day("2024-03-02"), to)

	from, to, err = LastPeriod("5d").Bounds(now)
	require.NoError(t, err)
	require.Equal(t, day("2024-03-11"), from)
	require.Equal(t, day("2024-03-16"), to)

	from, _, err = LastPeriod("1mo").Bounds(now)
	require.NoError(t, err)
	require.Equal(t, day("2024-02-15"), from)

	from, _, err = LastPeriod("ytd").Bounds(now)
	require.NoError(t, err)
	require.Equal(t, day("2024-01-01"), from)

	_, _, err = LastPeriod("3x").Bounds(now)
	require.Error(t, err)

	_, _, err = DateRange{From: day("2024-03-02"), To: day("2024-03-02")}.Bounds(now)
	require.Error(t, err)
}

func TestValidPeriod(t *testing.T) {
	for _, p := range []string{"1d", "5d", "2wk", "1mo", "6mo", "1y", "10y", "ytd", "max", "MAX"} {
		require.Truef(t, ValidPeriod(p), "want valid: %s", p)
	}
	for _, p := range []string{"", "d", "0d", "-1mo", "abc", "5m"} {
		require.Falsef(t, ValidPeriod(p), "want invalid: %s", p)
	}
}

func TestErrorKinds(t *testing.T) {
	err := Unavailable("alphavantage", "ZZZZ", "empty series")
	require.ErrorIs(t, err, ErrDataUnavailable)
	require.NotErrorIs(t, err, ErrProviderError)
	require.Equal(t, "DataUnavailable", KindOf(err))
	require.Contains(t, err.Error(), "alphavantage")
	require.Contains(t, err.Error(), "ZZZZ")

	wrapped := fmt.Errorf("resolve: %w", Rejected("finnhub", "AAPL", "rate limited"))
	require.Equal(t, "ProviderError", KindOf(wrapped))

	require.Equal(t, "", KindOf(errors.New("plain")))
	require.Equal(t, "", KindOf(nil))
}

func TestTransport_ClassifiesOnlyUnkindedErrors(t *testing.T) {
	err := Transport("yahoo", "AAPL", context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrUpstreamUnreachable)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	already := Unavailable("yahoo", "AAPL", "no bars")
	require.Same(t, already, Transport("yahoo", "AAPL", already))
	require.NoError(t, Transport("yahoo", "AAPL", nil))

	require.True(t, IsTransport(context.Canceled))
	require.False(t, IsTransport(errors.New("boom")))
}
