// Package aggregate fans requests out across providers and tickers and
// assembles the results handed to the HTTP and CLI layers.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"marketmovers/internal/logging"
	"marketmovers/internal/movers"
	"marketmovers/internal/provider"
	"marketmovers/internal/resolve"
	"marketmovers/internal/universe"
)

// ErrEmptyUniverse is returned by Movers when there is nothing to rank.
var ErrEmptyUniverse = errors.New("empty ticker universe")

// DefaultPeriod is the history span fetched per ticker for Movers. Period
// codes count calendar days, so the span must cover two sessions even after
// a long weekend and before the current day's close.
const DefaultPeriod = "10d"

type Config struct {
	// Period is the history requested per ticker; the last two observations
	// are compared. Default DefaultPeriod.
	Period string
	// Concurrency bounds in-flight provider calls. Default 8.
	Concurrency int
	// TickerTimeout bounds each ticker's fetch. Default 10s.
	TickerTimeout time.Duration
	// MaxLookbackDays is the resolver default. Default 7.
	MaxLookbackDays int
	// Enrich fills missing name and sector on ranked entries from snapshots.
	Enrich bool
}

func (c Config) withDefaults() Config {
	if c.Period == "" {
		c.Period = DefaultPeriod
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.TickerTimeout <= 0 {
		c.TickerTimeout = 10 * time.Second
	}
	if c.MaxLookbackDays <= 0 {
		c.MaxLookbackDays = resolve.DefaultMaxLookbackDays
	}
	return c
}

// Report accounts for every requested ticker: Requested = Succeeded + Failed,
// and Excluded counts successes that could not be ranked.
type Report struct {
	Requested      int            `json:"requested"`
	Succeeded      int            `json:"succeeded"`
	Failed         int            `json:"failed"`
	Excluded       int            `json:"excluded"`
	FailuresByKind map[string]int `json:"failuresByKind"`
	Period         string         `json:"period"`
}

type Orchestrator struct {
	p        provider.Provider
	resolver *resolve.Resolver
	cfg      Config
	logger   arbor.ILogger
}

func New(p provider.Provider, cfg Config, logger arbor.ILogger) *Orchestrator {
	logger = logging.OrNop(logger)
	return &Orchestrator{
		p:        p,
		resolver: resolve.New(p, logger),
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// outcome is one ticker's result: either an input for ranking or an error.
type outcome struct {
	input movers.Input
	err   error
}

// Movers ranks the universe. Per-ticker failures are counted and excluded;
// when every ticker fails the call fails with ErrNoDataAvailable. The ranking
// is assembled in universe order after all fetches finish, so it does not
// depend on completion order.
func (o *Orchestrator) Movers(ctx context.Context, tickers []universe.Constituent, topN int) (movers.Ranked, Report, error) {
	report := Report{Requested: len(tickers), FailuresByKind: map[string]int{}, Period: o.cfg.Period}
	if len(tickers) == 0 {
		return movers.Ranked{}, report, ErrEmptyUniverse
	}

	outcomes := make([]outcome, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for i, c := range tickers {
		g.Go(func() error {
			outcomes[i] = o.fetchOne(gctx, c)
			return nil
		})
	}
	_ = g.Wait()

	inputs := make([]movers.Input, 0, len(tickers))
	for i, oc := range outcomes {
		if oc.err != nil {
			report.Failed++
			kind := provider.KindOf(oc.err)
			if kind == "" {
				kind = "Unknown"
			}
			report.FailuresByKind[kind]++
			ev := o.logger.Debug()
			if errors.Is(oc.err, provider.ErrUpstreamUnreachable) {
				ev = o.logger.Warn()
			}
			ev.Str("ticker", tickers[i].Ticker).Str("kind", kind).Err(oc.err).Msg("ticker excluded")
			continue
		}
		report.Succeeded++
		inputs = append(inputs, oc.input)
	}

	if report.Succeeded == 0 {
		if err := ctx.Err(); err != nil {
			return movers.Ranked{}, report, provider.Transport("", "", err)
		}
		return movers.Ranked{}, report, provider.NewError(provider.ErrNoDataAvailable, "", "",
			fmt.Errorf("all %d tickers failed", report.Requested))
	}

	entries := make([]movers.Entry, 0, len(inputs))
	for _, in := range inputs {
		if e, ok := movers.Compute(in); ok {
			entries = append(entries, e)
			continue
		}
		report.Excluded++
	}
	ranked := movers.Partition(entries, topN)

	if o.cfg.Enrich {
		o.enrich(ctx, ranked.Gainers)
		o.enrich(ctx, ranked.Losers)
	}

	o.logger.Info().
		Int("requested", report.Requested).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("excluded", report.Excluded).
		Int("gainers", len(ranked.Gainers)).
		Int("losers", len(ranked.Losers)).
		Msg("movers ranked")
	return ranked, report, nil
}

func (o *Orchestrator) fetchOne(ctx context.Context, c universe.Constituent) outcome {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.TickerTimeout)
	defer cancel()
	quotes, err := o.p.FetchHistory(ctx, c.Ticker, provider.LastPeriod(o.cfg.Period))
	if err != nil {
		return outcome{err: provider.Transport(o.p.Name(), c.Ticker, err)}
	}
	return outcome{input: movers.FromHistory(c.Ticker, c.Name, c.Sector, quotes)}
}

// enrich fills empty name and sector fields in place. Failures leave the
// fields empty.
func (o *Orchestrator) enrich(ctx context.Context, entries []movers.Entry) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for i := range entries {
		if entries[i].Name != "" && entries[i].Sector != "" {
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, o.cfg.TickerTimeout)
			defer cancel()
			snap, err := o.p.FetchSnapshot(cctx, entries[i].Ticker)
			if err != nil {
				o.logger.Debug().Str("ticker", entries[i].Ticker).Err(err).Msg("snapshot enrichment failed")
				return nil
			}
			if entries[i].Name == "" {
				entries[i].Name = snap.Name
			}
			if entries[i].Sector == "" {
				entries[i].Sector = snap.Sector
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Resolve resolves symbol at date. lookback <= 0 uses the configured default.
func (o *Orchestrator) Resolve(ctx context.Context, symbol, date string, lookback int) (resolve.Result, error) {
	if lookback <= 0 {
		lookback = o.cfg.MaxLookbackDays
	}
	return o.resolver.Resolve(ctx, symbol, date, lookback)
}

// History returns the observations for symbol over period.
func (o *Orchestrator) History(ctx context.Context, symbol, period string) ([]provider.Quote, error) {
	if period == "" {
		period = o.cfg.Period
	}
	if !provider.ValidPeriod(period) {
		return nil, provider.NewError(provider.ErrInvalidDateFormat, "", symbol, fmt.Errorf("period %q", period))
	}
	return o.p.FetchHistory(ctx, symbol, provider.LastPeriod(period))
}

func (o *Orchestrator) Snapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	return o.p.FetchSnapshot(ctx, symbol)
}
