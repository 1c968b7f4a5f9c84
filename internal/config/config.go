package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"marketmovers/internal/provider"
)

type Server struct {
	Port              string `json:"port" toml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" toml:"request_timeout_sec"`
}

type Log struct {
	Level string `json:"level" toml:"level"`
}

// Provider holds the settings shared by every upstream adapter.
type Provider struct {
	Enabled               bool   `json:"enabled" toml:"enabled"`
	APIKey                string `json:"api_key" toml:"api_key"`
	BaseURL               string `json:"base_url" toml:"base_url"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" toml:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" toml:"min_request_interval_sec"`
	Burst                 int    `json:"burst" toml:"burst"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" toml:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items" toml:"cache_max_items"`
}

type Movers struct {
	TopN             int    `json:"top_n" toml:"top_n"`
	Period           string `json:"period" toml:"period"`
	Concurrency      int    `json:"concurrency" toml:"concurrency"`
	TickerTimeoutSec int    `json:"ticker_timeout_sec" toml:"ticker_timeout_sec"`
	Enrich           bool   `json:"enrich" toml:"enrich"`
}

type Resolve struct {
	MaxLookbackDays int `json:"max_lookback_days" toml:"max_lookback_days"`
}

// Universe selects where the ticker list comes from: "static" uses Tickers,
// "file" reads File, "wikipedia" scrapes URL.
type Universe struct {
	Source  string   `json:"source" toml:"source"`
	Tickers []string `json:"tickers" toml:"tickers"`
	File    string   `json:"file" toml:"file"`
	URL     string   `json:"url" toml:"url"`
}

type Config struct {
	Server   Server   `json:"server" toml:"server"`
	Log      Log      `json:"log" toml:"log"`
	Movers   Movers   `json:"movers" toml:"movers"`
	Resolve  Resolve  `json:"resolve" toml:"resolve"`
	Universe Universe `json:"universe" toml:"universe"`
	// Providers lists adapter names in fallback priority order.
	Providers    []string `json:"providers" toml:"providers"`
	AlphaVantage Provider `json:"alphavantage" toml:"alphavantage"`
	Finnhub      Provider `json:"finnhub" toml:"finnhub"`
	Yahoo        Provider `json:"yahoo" toml:"yahoo"`
}

// Known adapter names.
const (
	AlphaVantage = "alphavantage"
	Finnhub      = "finnhub"
	Yahoo        = "yahoo"
)

func Default() Config {
	return Config{
		Server:  Server{Port: "8080", RequestTimeoutSec: 30},
		Log:     Log{Level: "info"},
		Movers:  Movers{TopN: 10, Period: "10d", Concurrency: 8, TickerTimeoutSec: 10},
		Resolve: Resolve{MaxLookbackDays: 7},
		Universe: Universe{
			Source: "static",
			Tickers: []string{
				"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "BRK.B", "TSLA", "JPM", "V",
				"UNH", "XOM", "JNJ", "PG", "MA", "HD", "COST", "ABBV", "MRK", "CVX",
			},
		},
		Providers: []string{Yahoo, AlphaVantage, Finnhub},
		AlphaVantage: Provider{
			Enabled:              true,
			MaxRequestsPerMinute: 5,
			Burst:                1,
			CacheTTLSeconds:      3600,
			CacheMaxItems:        5000,
		},
		Finnhub: Provider{
			Enabled:              true,
			MaxRequestsPerMinute: 60,
			Burst:                5,
			CacheTTLSeconds:      3600,
			CacheMaxItems:        5000,
		},
		Yahoo: Provider{
			Enabled:               true,
			MinRequestIntervalSec: 0,
			CacheTTLSeconds:       3600,
			CacheMaxItems:         5000,
		},
	}
}

// Load builds the configuration: defaults, then the file at path (JSON, or
// TOML when the extension is .toml), then a .env file in the working
// directory, then environment variables. If path is empty, config.toml or
// config.json is used when present. Variables from .env never override ones
// already set in the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.toml", "config.json"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, cfg.Validate()
}

func decode(path string, b []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(b, cfg)
	}
	return json.Unmarshal(b, cfg)
}

// Validate reports settings that cannot be wired.
func (c Config) Validate() error {
	for _, name := range c.Providers {
		switch name {
		case AlphaVantage, Finnhub, Yahoo:
		default:
			return fmt.Errorf("unknown provider %q", name)
		}
	}
	if !provider.ValidPeriod(c.Movers.Period) {
		return fmt.Errorf("invalid movers.period %q", c.Movers.Period)
	}
	switch c.Universe.Source {
	case "static":
		if len(c.Universe.Tickers) == 0 {
			return errors.New("universe.source=static needs universe.tickers")
		}
	case "file":
		if c.Universe.File == "" {
			return errors.New("universe.source=file needs universe.file")
		}
	case "wikipedia":
	default:
		return fmt.Errorf("unknown universe source %q", c.Universe.Source)
	}
	return nil
}

// normalize replaces non-positive numeric settings with defaults.
func normalize(cfg *Config) {
	def := Default()
	if cfg.Server.Port == "" {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.RequestTimeoutSec <= 0 {
		cfg.Server.RequestTimeoutSec = def.Server.RequestTimeoutSec
	}
	if cfg.Movers.TopN <= 0 {
		cfg.Movers.TopN = def.Movers.TopN
	}
	if cfg.Movers.Period == "" {
		cfg.Movers.Period = def.Movers.Period
	}
	if cfg.Movers.Concurrency <= 0 {
		cfg.Movers.Concurrency = def.Movers.Concurrency
	}
	if cfg.Movers.TickerTimeoutSec <= 0 {
		cfg.Movers.TickerTimeoutSec = def.Movers.TickerTimeoutSec
	}
	if cfg.Resolve.MaxLookbackDays <= 0 {
		cfg.Resolve.MaxLookbackDays = def.Resolve.MaxLookbackDays
	}
	for i, p := range cfg.Providers {
		cfg.Providers[i] = strings.ToLower(strings.TrimSpace(p))
	}
	cfg.Universe.Source = strings.ToLower(strings.TrimSpace(cfg.Universe.Source))
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	envInt("TOP_N", &cfg.Movers.TopN, 1)
	if v := os.Getenv("MOVERS_PERIOD"); v != "" {
		cfg.Movers.Period = v
	}
	envInt("MOVERS_CONCURRENCY", &cfg.Movers.Concurrency, 1)
	envInt("MOVERS_TICKER_TIMEOUT_SEC", &cfg.Movers.TickerTimeoutSec, 1)
	envBool("MOVERS_ENRICH", &cfg.Movers.Enrich)
	envInt("MAX_LOOKBACK_DAYS", &cfg.Resolve.MaxLookbackDays, 1)

	if v := os.Getenv("UNIVERSE_SOURCE"); v != "" {
		cfg.Universe.Source = v
	}
	if v := os.Getenv("UNIVERSE_TICKERS"); v != "" {
		cfg.Universe.Tickers = splitCSV(v)
	}
	if v := os.Getenv("UNIVERSE_FILE"); v != "" {
		cfg.Universe.File = v
	}
	if v := os.Getenv("UNIVERSE_URL"); v != "" {
		cfg.Universe.URL = v
	}
	if v := os.Getenv("PROVIDERS"); v != "" {
		cfg.Providers = splitCSV(v)
	}

	providerEnv("ALPHAVANTAGE", &cfg.AlphaVantage)
	providerEnv("FINNHUB", &cfg.Finnhub)
	providerEnv("YAHOO", &cfg.Yahoo)
}

// providerEnv applies PREFIX_API_KEY, PREFIX_ENABLED, PREFIX_BASE_URL,
// PREFIX_MAX_RPM, PREFIX_MIN_INTERVAL_SEC, PREFIX_BURST, PREFIX_CACHE_TTL_SEC
// and PREFIX_CACHE_MAX_ITEMS.
func providerEnv(prefix string, p *Provider) {
	if v := os.Getenv(prefix + "_API_KEY"); v != "" {
		p.APIKey = v
	}
	envBool(prefix+"_ENABLED", &p.Enabled)
	if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
		p.BaseURL = v
	}
	envInt(prefix+"_MAX_RPM", &p.MaxRequestsPerMinute, 0)
	envInt(prefix+"_MIN_INTERVAL_SEC", &p.MinRequestIntervalSec, 0)
	envInt(prefix+"_BURST", &p.Burst, 1)
	envInt(prefix+"_CACHE_TTL_SEC", &p.CacheTTLSeconds, 0)
	envInt(prefix+"_CACHE_MAX_ITEMS", &p.CacheMaxItems, 1)
}

// envInt sets *dst from key when the value parses and is at least floor.
func envInt(key string, dst *int, floor int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil && x >= floor {
		*dst = x
	}
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
