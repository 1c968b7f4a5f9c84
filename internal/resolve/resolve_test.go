package resolve

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"marketmovers/internal/logging"
	"marketmovers/internal/provider"
)

// dayProvider serves closes from a map keyed by YYYY-MM-DD.
type dayProvider struct {
	mu     sync.Mutex
	closes map[string]string
	errOn  map[string]error
	asked  []string
}

func (d *dayProvider) Name() string { return "days" }

func (d *dayProvider) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	day := r.From.Format(provider.DateLayout)
	d.mu.Lock()
	d.asked = append(d.asked, day)
	d.mu.Unlock()
	if err := d.errOn[day]; err != nil {
		return nil, err
	}
	c, ok := d.closes[day]
	if !ok {
		return nil, provider.Unavailable("days", symbol, "empty")
	}
	return []provider.Quote{{Symbol: symbol, Date: r.From, Close: decimal.RequireFromString(c), Volume: 100}}, nil
}

func (d *dayProvider) FetchSnapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	return provider.CompanySnapshot{}, errors.New("unused")
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := provider.ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestResolve_TradingDayZeroLookback(t *testing.T) {
	p := &dayProvider{closes: map[string]string{"2024-01-05": "181.18"}}
	res, err := New(p, logging.Nop()).Resolve(context.Background(), "AAPL", "2024-01-05", 7)
	require.NoError(t, err)
	require.Equal(t, mustDay(t, "2024-01-05"), res.ResolvedDate)
	require.Equal(t, res.RequestedDate, res.ResolvedDate)
	require.Equal(t, 0, res.LookbackDays)
	require.Equal(t, "181.18", res.Quote.Close.String())
	require.Equal(t, []string{"2024-01-05"}, p.asked)
}

func TestResolve_WeekendStepsBackToFriday(t *testing.T) {
	p := &dayProvider{closes: map[string]string{"2024-01-05": "181.18"}}
	res, err := New(p, nil).Resolve(context.Background(), "AAPL", "2024-01-07", 7)
	require.NoError(t, err)
	require.Equal(t, mustDay(t, "2024-01-05"), res.ResolvedDate)
	require.Equal(t, 2, res.LookbackDays)
	require.Equal(t, []string{"2024-01-07", "2024-01-06", "2024-01-05"}, p.asked)
}

func TestResolve_UnknownSymbolExhaustsLookback(t *testing.T) {
	p := &dayProvider{}
	_, err := New(p, nil).Resolve(context.Background(), "ZZZZ", "2024-01-10", 7)
	require.ErrorIs(t, err, provider.ErrNoTradingDayFound)
	require.NotErrorIs(t, err, provider.ErrDataUnavailable)
	require.Len(t, p.asked, 7)
	require.Equal(t, "2024-01-10", p.asked[0])
	require.Equal(t, "2024-01-04", p.asked[6])
}

func TestResolve_DefaultLookback(t *testing.T) {
	p := &dayProvider{}
	_, err := New(p, nil).Resolve(context.Background(), "ZZZZ", "2024-01-10", 0)
	require.ErrorIs(t, err, provider.ErrNoTradingDayFound)
	require.Len(t, p.asked, DefaultMaxLookbackDays)
}

func TestResolve_InvalidDateMakesNoCalls(t *testing.T) {
	for _, in := range []string{"", "2024-13-01", "01/05/2024", "2024-02-30", "yesterday"} {
		p := &dayProvider{}
		_, err := New(p, nil).Resolve(context.Background(), "AAPL", in, 7)
		require.ErrorIsf(t, err, provider.ErrInvalidDateFormat, "input %q", in)
		require.Empty(t, p.asked)
	}
}

func TestResolve_NonEmptyErrorsPropagateImmediately(t *testing.T) {
	for _, kind := range []error{provider.ErrProviderError, provider.ErrUpstreamUnreachable} {
		p := &dayProvider{
			closes: map[string]string{"2024-01-05": "1"},
			errOn:  map[string]error{"2024-01-06": provider.NewError(kind, "days", "AAPL", errors.New("x"))},
		}
		_, err := New(p, nil).Resolve(context.Background(), "AAPL", "2024-01-07", 7)
		require.ErrorIs(t, err, kind)
		require.Equal(t, []string{"2024-01-07", "2024-01-06"}, p.asked)
	}
}

func TestResolve_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &dayProvider{}
	_, err := New(p, nil).Resolve(ctx, "AAPL", "2024-01-07", 7)
	require.ErrorIs(t, err, provider.ErrUpstreamUnreachable)
	require.Empty(t, p.asked)
}

// For every placement of a single data day, the result stays inside the
// lookback window or fails with NoTradingDayFound.
func TestResolve_BoundedLookbackProperty(t *testing.T) {
	requested := mustDay(t, "2024-03-15")
	for lookback := 1; lookback <= 10; lookback++ {
		for offset := 0; offset <= 12; offset++ {
			dataDay := requested.AddDate(0, 0, -offset).Format(provider.DateLayout)
			p := &dayProvider{closes: map[string]string{dataDay: "10"}}
			res, err := New(p, nil).ResolveDay(context.Background(), "X", requested, lookback)
			if offset < lookback {
				require.NoError(t, err)
				require.False(t, res.ResolvedDate.After(requested))
				require.LessOrEqual(t, int(requested.Sub(res.ResolvedDate).Hours()/24), lookback)
				require.Equal(t, offset, res.LookbackDays)
				continue
			}
			require.ErrorIs(t, err, provider.ErrNoTradingDayFound)
			require.Len(t, p.asked, lookback)
		}
	}
}

// Providers that answer a one-day query with a neighbouring day do not
// resolve that day.
type sloppyProvider struct{ dayProvider }

func (s *sloppyProvider) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	s.asked = append(s.asked, r.From.Format(provider.DateLayout))
	prev := r.From.AddDate(0, 0, -1)
	return []provider.Quote{{Symbol: symbol, Date: prev, Close: decimal.NewFromInt(1)}}, nil
}

func TestResolve_IgnoresOffDayQuotes(t *testing.T) {
	p := &sloppyProvider{}
	_, err := New(p, nil).Resolve(context.Background(), "X", "2024-01-07", 3)
	require.ErrorIs(t, err, provider.ErrNoTradingDayFound)
	require.Len(t, p.asked, 3)
}
