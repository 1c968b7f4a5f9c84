package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"marketmovers/internal/aggregate"
	"marketmovers/internal/movers"
	"marketmovers/internal/provider"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Padding(0, 1)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

func printTitle(w io.Writer, s string) { fmt.Fprintln(w, titleStyle.Render(s)) }

// pctColumn is the index of the percent change column in the movers table.
const pctColumn = 3

func printMovers(w io.Writer, entries []movers.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Ticker, e.Name, e.Price.StringFixed(2), e.PctChange.StringFixed(2) + "%", itoa64(e.Volume)})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("TICKER", "NAME", "PRICE", "CHANGE", "VOLUME").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == pctColumn && entries[row].PctChange.IsPositive():
				return gainStyle
			case col == pctColumn && entries[row].PctChange.IsNegative():
				return lossStyle
			default:
				return cellStyle
			}
		})
	fmt.Fprintln(w, t)
}

func printHistory(w io.Writer, quotes []provider.Quote) {
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []string{q.Day(), q.Close.String(), itoa64(q.Volume)})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("DATE", "CLOSE", "VOLUME").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t)
}

func printKV(w io.Writer, pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	key := mutedStyle.Width(width + 2)
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		fmt.Fprintln(w, key.Render(p[0])+p[1])
	}
}

func printReport(w io.Writer, r aggregate.Report) {
	parts := []string{
		fmt.Sprintf("requested %d", r.Requested),
		fmt.Sprintf("succeeded %d", r.Succeeded),
		fmt.Sprintf("failed %d", r.Failed),
		fmt.Sprintf("excluded %d", r.Excluded),
	}
	for _, kind := range slices.Sorted(maps.Keys(r.FailuresByKind)) {
		parts = append(parts, fmt.Sprintf("%s %d", kind, r.FailuresByKind[kind]))
	}
	fmt.Fprintln(w, mutedStyle.Render(strings.Join(parts, " · ")))
}

func itoa(n int) string     { return strconv.Itoa(n) }
func itoa64(n int64) string { return strconv.FormatInt(n, 10) }
