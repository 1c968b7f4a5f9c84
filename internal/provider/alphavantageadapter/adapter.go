// Package alphavantageadapter exposes the Alpha Vantage API client as a
// provider.Provider.
package alphavantageadapter

import (
	"context"
	"errors"
	"time"

	"marketmovers/internal/provider"
	"marketmovers/internal/provider/alphavantage"
)

// compactSpan is roughly how far back the 100 observations of a compact
// series reach in calendar days.
const compactSpan = 100 * 24 * time.Hour

type Config struct {
	Name string // display name, default: alphavantage
	// Now is the clock used to resolve period ranges. Defaults to time.Now.
	Now func() time.Time
}

type Adapter struct {
	cfg    Config
	client *alphavantage.APIClient
}

func New(cfg Config, client *alphavantage.APIClient) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "alphavantage"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	now := a.cfg.Now()
	from, to, err := r.Bounds(now)
	if err != nil {
		return nil, provider.Rejected(a.cfg.Name, symbol, "%v", err)
	}

	size := alphavantage.OutputCompact
	if now.Sub(from) > compactSpan {
		size = alphavantage.OutputFull
	}

	bars, err := a.client.GetDailySeries(ctx, symbol, size)
	if err != nil {
		return nil, a.classify(symbol, err)
	}

	quotes := make([]provider.Quote, 0, len(bars))
	for _, b := range bars {
		quotes = append(quotes, provider.Quote{
			Symbol: symbol,
			Date:   b.Date,
			Close:  b.Close,
			Volume: b.Volume,
			Source: a.cfg.Name,
		})
	}
	quotes = provider.Window(provider.NormalizeHistory(quotes), from, to)
	if len(quotes) == 0 {
		return nil, provider.Unavailable(a.cfg.Name, symbol, "no observations in [%s, %s)", from.Format(provider.DateLayout), to.Format(provider.DateLayout))
	}
	return quotes, nil
}

func (a *Adapter) FetchSnapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	ov, err := a.client.GetOverview(ctx, symbol)
	if err != nil {
		return provider.CompanySnapshot{}, a.classify(symbol, err)
	}
	snap := provider.CompanySnapshot{
		Symbol:      ov.Symbol,
		Name:        ov.Name,
		Sector:      ov.Sector,
		Industry:    ov.Industry,
		Description: ov.Description,
	}
	if snap.Symbol == "" {
		snap.Symbol = symbol
	}
	return snap, nil
}

// classify maps raw client errors onto the provider error kinds.
func (a *Adapter) classify(symbol string, err error) error {
	var (
		notice *alphavantage.NoticeError
		status *alphavantage.StatusError
	)
	switch {
	case errors.Is(err, alphavantage.ErrEmptyResponse):
		return provider.NewError(provider.ErrDataUnavailable, a.cfg.Name, symbol, err)
	case errors.Is(err, alphavantage.ErrRequestFailed), provider.IsTransport(err):
		return provider.NewError(provider.ErrUpstreamUnreachable, a.cfg.Name, symbol, err)
	case errors.As(err, &status) && status.Code >= 500:
		return provider.NewError(provider.ErrUpstreamUnreachable, a.cfg.Name, symbol, err)
	case errors.As(err, &notice),
		errors.Is(err, alphavantage.ErrRateLimited),
		errors.Is(err, alphavantage.ErrUnauthorized):
		return provider.NewError(provider.ErrProviderError, a.cfg.Name, symbol, err)
	default:
		// Undecodable payloads and 4xx statuses.
		return provider.NewError(provider.ErrProviderError, a.cfg.Name, symbol, err)
	}
}
