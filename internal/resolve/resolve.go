// Package resolve maps a requested calendar date to the nearest earlier day
// that a provider has an observation for.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"marketmovers/internal/logging"
	"marketmovers/internal/provider"
)

// DefaultMaxLookbackDays is used when a non-positive lookback is requested.
const DefaultMaxLookbackDays = 7

// Result is a resolved observation. ResolvedDate is never after
// RequestedDate and LookbackDays is the distance between them.
type Result struct {
	Symbol        string
	RequestedDate time.Time
	ResolvedDate  time.Time
	LookbackDays  int
	Quote         provider.Quote
}

type Resolver struct {
	p      provider.Provider
	logger arbor.ILogger
}

func New(p provider.Provider, logger arbor.ILogger) *Resolver {
	return &Resolver{p: p, logger: logging.OrNop(logger)}
}

// Resolve parses requestedDate (YYYY-MM-DD) and resolves it. A malformed date
// fails with ErrInvalidDateFormat before any provider call.
func (r *Resolver) Resolve(ctx context.Context, symbol, requestedDate string, maxLookbackDays int) (Result, error) {
	day, err := provider.ParseDay(strings.TrimSpace(requestedDate))
	if err != nil {
		return Result{}, provider.NewError(provider.ErrInvalidDateFormat, "", symbol, fmt.Errorf("%q: want %s", requestedDate, provider.DateLayout))
	}
	return r.ResolveDay(ctx, symbol, day, maxLookbackDays)
}

// ResolveDay walks back one calendar day at a time from day, making at most
// maxLookbackDays one-day queries. Only DataUnavailable moves the walk on;
// any other failure is returned as is. No trading calendar is consulted: a
// day is a trading day exactly when the provider has data for it.
func (r *Resolver) ResolveDay(ctx context.Context, symbol string, day time.Time, maxLookbackDays int) (Result, error) {
	if maxLookbackDays <= 0 {
		maxLookbackDays = DefaultMaxLookbackDays
	}
	requested := provider.Day(day)

	for i := range maxLookbackDays {
		if err := ctx.Err(); err != nil {
			return Result{}, provider.Transport("", symbol, err)
		}
		date := requested.AddDate(0, 0, -i)
		quotes, err := r.p.FetchHistory(ctx, symbol, provider.OneDay(date))
		if err != nil {
			if errors.Is(err, provider.ErrDataUnavailable) {
				r.logger.Debug().Str("symbol", symbol).Str("date", date.Format(provider.DateLayout)).Msg("no observation, stepping back")
				continue
			}
			return Result{}, err
		}
		q, ok := onDay(quotes, date)
		if !ok {
			continue
		}
		return Result{
			Symbol:        symbol,
			RequestedDate: requested,
			ResolvedDate:  date,
			LookbackDays:  i,
			Quote:         q,
		}, nil
	}

	earliest := requested.AddDate(0, 0, -(maxLookbackDays - 1))
	return Result{}, provider.NewError(provider.ErrNoTradingDayFound, "", symbol,
		fmt.Errorf("no observation between %s and %s", earliest.Format(provider.DateLayout), requested.Format(provider.DateLayout)))
}

// onDay picks the observation for date. Providers that return neighbouring
// days in a one-day query are treated as having no data for date.
func onDay(quotes []provider.Quote, date time.Time) (provider.Quote, bool) {
	for i := len(quotes) - 1; i >= 0; i-- {
		if provider.Day(quotes[i].Date).Equal(date) {
			return quotes[i], true
		}
	}
	return provider.Quote{}, false
}
