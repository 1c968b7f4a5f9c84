// Package yahoo adapts the Yahoo Finance chart and quote endpoints, via
// piquette/finance-go, to provider.Provider.
package yahoo

import (
	"context"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"marketmovers/internal/provider"
)

// Backend is the slice of finance-go the provider uses.
type Backend interface {
	Bars(symbol string, from, to time.Time) ([]finance.ChartBar, error)
	Quote(symbol string) (*finance.Quote, error)
}

// FinanceGo is the default Backend.
type FinanceGo struct{}

func (FinanceGo) Bars(symbol string, from, to time.Time) ([]finance.ChartBar, error) {
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	})
	var bars []finance.ChartBar
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	return bars, iter.Err()
}

func (FinanceGo) Quote(symbol string) (*finance.Quote, error) { return quote.Get(symbol) }

type Config struct {
	Name string
	Now  func() time.Time
}

type Provider struct {
	cfg     Config
	backend Backend
}

func New(cfg Config, backend Backend) *Provider {
	if cfg.Name == "" {
		cfg.Name = "yahoo"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if backend == nil {
		backend = FinanceGo{}
	}
	return &Provider{cfg: cfg, backend: backend}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Symbol maps an exchange ticker to Yahoo's form: share-class dots become
// dashes (BRK.B -> BRK-B).
func Symbol(ticker string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(ticker)), ".", "-")
}

func (p *Provider) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	from, to, err := r.Bounds(p.cfg.Now())
	if err != nil {
		return nil, provider.Rejected(p.cfg.Name, symbol, "%v", err)
	}

	bars, err := call(ctx, func() ([]finance.ChartBar, error) { return p.backend.Bars(Symbol(symbol), from, to) })
	if err != nil {
		return nil, p.classify(symbol, err)
	}

	quotes := make([]provider.Quote, 0, len(bars))
	for _, b := range bars {
		quotes = append(quotes, provider.Quote{
			Symbol: symbol,
			Date:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Close:  b.Close,
			Volume: int64(b.Volume),
			Source: p.cfg.Name,
		})
	}
	quotes = provider.Window(provider.NormalizeHistory(quotes), from, to)
	if len(quotes) == 0 {
		return nil, provider.Unavailable(p.cfg.Name, symbol, "no bars in [%s, %s)", from.Format(provider.DateLayout), to.Format(provider.DateLayout))
	}
	return quotes, nil
}

func (p *Provider) FetchSnapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	q, err := call(ctx, func() (*finance.Quote, error) { return p.backend.Quote(Symbol(symbol)) })
	if err != nil {
		return provider.CompanySnapshot{}, p.classify(symbol, err)
	}
	if q == nil {
		return provider.CompanySnapshot{}, provider.Unavailable(p.cfg.Name, symbol, "unknown symbol")
	}
	return provider.CompanySnapshot{Symbol: symbol, Name: q.ShortName}, nil
}

func (p *Provider) classify(symbol string, err error) error {
	if provider.IsTransport(err) {
		return provider.NewError(provider.ErrUpstreamUnreachable, p.cfg.Name, symbol, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no data found") || strings.Contains(msg, "not found") {
		return provider.NewError(provider.ErrDataUnavailable, p.cfg.Name, symbol, err)
	}
	return provider.NewError(provider.ErrProviderError, p.cfg.Name, symbol, err)
}

// call runs a blocking library call and gives up when ctx is done. The
// goroutine is left to finish on its own.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
