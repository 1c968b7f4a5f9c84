// Package app wires configuration into the provider chain, universe source
// and orchestrator shared by the binaries.
package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"marketmovers/internal/aggregate"
	"marketmovers/internal/config"
	"marketmovers/internal/httpx"
	"marketmovers/internal/logging"
	"marketmovers/internal/provider"
	"marketmovers/internal/provider/alphavantage"
	"marketmovers/internal/provider/alphavantageadapter"
	"marketmovers/internal/provider/cache"
	"marketmovers/internal/provider/fallback"
	"marketmovers/internal/provider/finnhub"
	"marketmovers/internal/provider/ratelimit"
	"marketmovers/internal/provider/yahoo"
	"marketmovers/internal/universe"
)

// ErrNoProviders is returned when no configured provider can be built.
var ErrNoProviders = errors.New("no usable providers configured")

type App struct {
	Config       config.Config
	Provider     provider.Provider
	Universe     universe.Source
	Orchestrator *aggregate.Orchestrator
	Logger       arbor.ILogger
}

// New builds every component from cfg.
func New(cfg config.Config, logger arbor.ILogger) (*App, error) {
	logger = logging.OrNop(logger)
	hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	p, err := Providers(cfg, hc, logger)
	if err != nil {
		return nil, err
	}
	src, err := Universe(cfg.Universe, hc)
	if err != nil {
		return nil, err
	}
	orch := aggregate.New(p, aggregate.Config{
		Period:          cfg.Movers.Period,
		Concurrency:     cfg.Movers.Concurrency,
		TickerTimeout:   time.Duration(cfg.Movers.TickerTimeoutSec) * time.Second,
		MaxLookbackDays: cfg.Resolve.MaxLookbackDays,
		Enrich:          cfg.Movers.Enrich,
	}, logger)
	return &App{Config: cfg, Provider: p, Universe: src, Orchestrator: orch, Logger: logger}, nil
}

// Providers builds the fallback chain in cfg.Providers order. Disabled
// providers and keyed providers without a key are skipped with a warning.
func Providers(cfg config.Config, hc *httpx.Client, logger arbor.ILogger) (provider.Provider, error) {
	logger = logging.OrNop(logger)
	var members []provider.Provider
	for _, name := range cfg.Providers {
		var (
			p   provider.Provider
			pc  config.Provider
			err error
		)
		switch name {
		case config.AlphaVantage:
			pc = cfg.AlphaVantage
			if !pc.Enabled {
				continue
			}
			if pc.APIKey == "" {
				logger.Warn().Str("provider", name).Msg("enabled but ALPHAVANTAGE_API_KEY not set; skipping")
				continue
			}
			opts := []alphavantage.APIClientOption{
				alphavantage.WithHTTPClient(hc),
				alphavantage.WithHeader(http.Header{"Accept": []string{"application/json"}}),
			}
			if pc.BaseURL != "" {
				opts = append(opts, alphavantage.WithBaseURL(pc.BaseURL))
			}
			var client *alphavantage.APIClient
			client, err = alphavantage.NewAPIClient(pc.APIKey, opts...)
			if err == nil {
				p = alphavantageadapter.New(alphavantageadapter.Config{Name: name}, client)
			}
		case config.Finnhub:
			pc = cfg.Finnhub
			if !pc.Enabled {
				continue
			}
			if pc.APIKey == "" {
				logger.Warn().Str("provider", name).Msg("enabled but FINNHUB_API_KEY not set; skipping")
				continue
			}
			p = finnhub.New(finnhub.Config{Name: name, BaseURL: pc.BaseURL, Token: pc.APIKey}, hc)
		case config.Yahoo:
			pc = cfg.Yahoo
			if !pc.Enabled {
				continue
			}
			p = yahoo.New(yahoo.Config{Name: name}, nil)
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		members = append(members, Decorate(p, pc))
		logger.Info().Str("provider", name).Int("max_rpm", pc.MaxRequestsPerMinute).Int("cache_ttl_sec", pc.CacheTTLSeconds).Msg("provider enabled")
	}
	if len(members) == 0 {
		return nil, ErrNoProviders
	}
	if len(members) == 1 {
		return members[0], nil
	}
	return fallback.New(logger, members...), nil
}

// Decorate wraps p with the rate limit and snapshot cache described by pc.
// A token bucket is preferred over a minimum interval when both are set.
func Decorate(p provider.Provider, pc config.Provider) provider.Provider {
	switch {
	case pc.MaxRequestsPerMinute > 0:
		p = ratelimit.PerMinute(p, pc.MaxRequestsPerMinute, pc.Burst)
	case pc.MinRequestIntervalSec > 0:
		p = &ratelimit.MinInterval{P: p, Interval: time.Duration(pc.MinRequestIntervalSec) * time.Second}
	}
	if pc.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, TTL: time.Duration(pc.CacheTTLSeconds) * time.Second, MaxItems: pc.CacheMaxItems}
	}
	return p
}

// Universe builds the configured ticker source.
func Universe(u config.Universe, hc *httpx.Client) (universe.Source, error) {
	switch u.Source {
	case "", "static":
		return universe.FromTickers(u.Tickers...), nil
	case "file":
		return universe.File{Path: u.File}, nil
	case "wikipedia":
		return universe.Wikipedia{URL: u.URL, Client: hc}, nil
	default:
		return nil, fmt.Errorf("unknown universe source %q", u.Source)
	}
}
