// Command fetch queries the configured providers from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"marketmovers/internal/app"
	"marketmovers/internal/config"
	"marketmovers/internal/logging"
)

var (
	configPath   string
	logLevel     string
	providersCSV string
	timeoutSec   int
	asJSON       bool

	logger arbor.ILogger

	// buildApp wires the app for a command; replaced in tests.
	buildApp = setup
)

var rootCmd = &cobra.Command{
	Use:           "fetch",
	Short:         "Query market data providers",
	Long:          `Resolve prices, rank daily movers and inspect history using the providers from config.toml, config.json or the environment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "path to config.toml or config.json")
	pf.StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	pf.StringVar(&providersCSV, "providers", "", "comma-separated provider order, e.g. yahoo,finnhub")
	pf.IntVar(&timeoutSec, "timeout", 0, "overall timeout in seconds (overrides config)")
	pf.BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(moversCmd, priceCmd, historyCmd, companyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides and wires the app.
func setup() (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if providersCSV != "" {
		cfg.Providers = nil
		for _, p := range strings.Split(providersCSV, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				cfg.Providers = append(cfg.Providers, p)
			}
		}
	}
	if timeoutSec > 0 {
		cfg.Server.RequestTimeoutSec = timeoutSec
	}
	logger = logging.New(cfg.Log.Level)
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("provider", a.Provider.Name()).Msg("providers wired")
	return a, nil
}

// commandContext is canceled on SIGINT or after the configured timeout.
func commandContext(a *app.App) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.Config.Server.RequestTimeoutSec)*time.Second)
	return ctx, func() { cancel(); stop() }
}
