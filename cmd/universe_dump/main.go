// Command universe_dump scrapes the index constituents table and writes it as
// a JSON universe file, optionally dropping tickers no provider has data for.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"sync"
	"time"

	"marketmovers/internal/app"
	"marketmovers/internal/config"
	"marketmovers/internal/httpx"
	"marketmovers/internal/logging"
	"marketmovers/internal/provider"
	"marketmovers/internal/universe"
)

func main() {
	var (
		outPath     string
		url         string
		cfgPath     string
		verify      bool
		concurrency int
		timeoutSec  int
	)
	flag.StringVar(&outPath, "out", "universe.json", "output JSON file path")
	flag.StringVar(&url, "url", universe.DefaultWikipediaURL, "page holding the constituents table")
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.toml or config.json (optional)")
	flag.BoolVar(&verify, "verify", false, "drop tickers without recent history from the configured providers")
	flag.IntVar(&concurrency, "concurrency", 4, "parallel history checks when -verify is set")
	flag.IntVar(&timeoutSec, "timeout", 20, "per-request timeout seconds")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logging.New("info").Fatal().Err(err).Msg("config")
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	src := universe.Wikipedia{URL: url, Client: httpx.New(time.Duration(timeoutSec) * time.Second)}
	cs, err := src.Constituents(ctx)
	if err != nil {
		logger.Fatal().Err(err).Str("url", url).Msg("scrape constituents")
		os.Exit(1)
	}
	logger.Info().Int("constituents", len(cs)).Msg("scraped")

	if verify {
		a, err := app.New(cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("wiring providers")
			os.Exit(1)
		}
		cs = verifyHistory(ctx, a, cs, concurrency, time.Duration(timeoutSec)*time.Second)
	}

	if err := writeUniverse(outPath, cs); err != nil {
		logger.Fatal().Err(err).Msg("write universe")
		os.Exit(1)
	}
	logger.Info().Str("out", outPath).Int("tickers", len(cs)).Msg("done")
}

// verifyHistory keeps the constituents whose recent history can be fetched.
// Only DataUnavailable drops a ticker; other failures keep it so that a flaky
// upstream does not shrink the universe.
func verifyHistory(ctx context.Context, a *app.App, cs []universe.Constituent, concurrency int, timeout time.Duration) []universe.Constituent {
	if concurrency <= 0 {
		concurrency = 1
	}
	keep := make([]bool, len(cs))
	jobs := make(chan int, concurrency*2)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			_, err := a.Orchestrator.History(cctx, cs[i].Ticker, "5d")
			cancel()
			switch {
			case err == nil:
				keep[i] = true
			case errors.Is(err, provider.ErrDataUnavailable):
				a.Logger.Warn().Str("ticker", cs[i].Ticker).Msg("no recent history; dropping")
			default:
				keep[i] = true
				a.Logger.Warn().Str("ticker", cs[i].Ticker).Str("kind", provider.KindOf(err)).Err(err).Msg("history check failed; keeping")
			}
		}
	}
	for range concurrency {
		wg.Add(1)
		go worker()
	}
	for i := range cs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := cs[:0:0]
	for i, c := range cs {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func writeUniverse(path string, cs []universe.Constituent) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cs); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
