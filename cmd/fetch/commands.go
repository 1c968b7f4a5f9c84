package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"marketmovers/internal/provider"
	"marketmovers/internal/universe"
)

var (
	moversTop     int
	moversTickers string

	priceDate     string
	priceLookback int

	historyPeriod string
)

var moversCmd = &cobra.Command{
	Use:   "movers",
	Short: "Rank the top gainers and losers of the universe",
	Args:  cobra.NoArgs,
	RunE:  runMovers,
}

var priceCmd = &cobra.Command{
	Use:   "price SYMBOL",
	Short: "Resolve the closing price on or before a date",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrice,
}

var historyCmd = &cobra.Command{
	Use:   "history SYMBOL",
	Short: "Show daily closes over a period",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var companyCmd = &cobra.Command{
	Use:   "company SYMBOL",
	Short: "Show descriptive company data",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompany,
}

func init() {
	moversCmd.Flags().IntVarP(&moversTop, "top", "n", 0, "entries per side (default from config)")
	moversCmd.Flags().StringVar(&moversTickers, "tickers", "", "comma-separated tickers instead of the configured universe")

	priceCmd.Flags().StringVarP(&priceDate, "date", "d", "", "date as YYYY-MM-DD (required)")
	priceCmd.Flags().IntVar(&priceLookback, "lookback", 0, "maximum days to step back (default from config)")
	_ = priceCmd.MarkFlagRequired("date")

	historyCmd.Flags().StringVarP(&historyPeriod, "period", "p", "1mo", "range code such as 5d, 1mo, ytd, max")
}

func runMovers(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(a)
	defer cancel()

	var src universe.Source = a.Universe
	if moversTickers != "" {
		src = universe.FromTickers(strings.Split(moversTickers, ",")...)
	}
	tickers, err := src.Constituents(ctx)
	if err != nil {
		return err
	}
	top := moversTop
	if top <= 0 {
		top = a.Config.Movers.TopN
	}
	ranked, report, err := a.Orchestrator.Movers(ctx, tickers, top)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if asJSON {
		return printJSON(w, map[string]any{"gainers": ranked.Gainers, "losers": ranked.Losers, "report": report})
	}
	printTitle(w, "Top gainers")
	printMovers(w, ranked.Gainers)
	printTitle(w, "Top losers")
	printMovers(w, ranked.Losers)
	printReport(w, report)
	return nil
}

func runPrice(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(a)
	defer cancel()

	res, err := a.Orchestrator.Resolve(ctx, strings.ToUpper(args[0]), priceDate, priceLookback)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if asJSON {
		return printJSON(w, res)
	}
	printTitle(w, res.Symbol)
	printKV(w, [][2]string{
		{"requested", res.RequestedDate.Format(provider.DateLayout)},
		{"resolved", res.ResolvedDate.Format(provider.DateLayout)},
		{"lookback", itoa(res.LookbackDays)},
		{"close", res.Quote.Close.String()},
		{"volume", itoa64(res.Quote.Volume)},
		{"source", res.Quote.Source},
	})
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(a)
	defer cancel()

	symbol := strings.ToUpper(args[0])
	quotes, err := a.Orchestrator.History(ctx, symbol, historyPeriod)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if asJSON {
		return printJSON(w, quotes)
	}
	printTitle(w, symbol+" "+historyPeriod)
	printHistory(w, quotes)
	return nil
}

func runCompany(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(a)
	defer cancel()

	snap, err := a.Orchestrator.Snapshot(ctx, strings.ToUpper(args[0]))
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if asJSON {
		return printJSON(w, snap)
	}
	printTitle(w, snap.Symbol)
	printKV(w, [][2]string{
		{"name", snap.Name},
		{"sector", snap.Sector},
		{"industry", snap.Industry},
		{"description", snap.Description},
	})
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
