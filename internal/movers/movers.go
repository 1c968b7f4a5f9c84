// Package movers computes percentage changes and ranks top gainers and
// losers.
package movers

import (
	"slices"

	"github.com/shopspring/decimal"

	"marketmovers/internal/provider"
)

// DefaultTopN applies when a non-positive topN is requested.
const DefaultTopN = 10

var hundred = decimal.NewFromInt(100)

// Input is one ticker's two-point window. Either quote may be missing.
type Input struct {
	Ticker   string
	Name     string
	Sector   string
	Previous *provider.Quote
	Current  *provider.Quote
	// Volume is the latest traded volume.
	Volume int64
}

// Entry is a ranked ticker. PctChange is in percent, unrounded.
type Entry struct {
	Ticker    string          `json:"ticker"`
	Name      string          `json:"name"`
	Sector    string          `json:"sector"`
	Price     decimal.Decimal `json:"price"`
	PctChange decimal.Decimal `json:"pctChange"`
	Volume    int64           `json:"volume"`
}

// Ranked holds at most topN entries on each side. Gainers are strictly
// positive and descending, losers strictly negative and ascending.
type Ranked struct {
	Gainers []Entry `json:"gainers"`
	Losers  []Entry `json:"losers"`
}

// Compute derives the entry for in. It reports false when an observation is
// missing or the previous close is not positive.
func Compute(in Input) (Entry, bool) {
	if in.Previous == nil || in.Current == nil || !in.Previous.Close.IsPositive() {
		return Entry{}, false
	}
	prev, cur := in.Previous.Close, in.Current.Close
	return Entry{
		Ticker:    in.Ticker,
		Name:      in.Name,
		Sector:    in.Sector,
		Price:     cur,
		PctChange: cur.Sub(prev).Mul(hundred).Div(prev),
		Volume:    in.Volume,
	}, true
}

// Partition splits entries by sign, sorts each side and truncates to topN.
// Entries with zero change are dropped. Ties keep their input order.
func Partition(entries []Entry, topN int) Ranked {
	if topN <= 0 {
		topN = DefaultTopN
	}
	out := Ranked{Gainers: []Entry{}, Losers: []Entry{}}
	for _, e := range entries {
		switch e.PctChange.Sign() {
		case 1:
			out.Gainers = append(out.Gainers, e)
		case -1:
			out.Losers = append(out.Losers, e)
		}
	}
	slices.SortStableFunc(out.Gainers, func(a, b Entry) int { return b.PctChange.Cmp(a.PctChange) })
	slices.SortStableFunc(out.Losers, func(a, b Entry) int { return a.PctChange.Cmp(b.PctChange) })
	if len(out.Gainers) > topN {
		out.Gainers = out.Gainers[:topN]
	}
	if len(out.Losers) > topN {
		out.Losers = out.Losers[:topN]
	}
	return out
}

// Rank computes every input and partitions the survivors.
func Rank(inputs []Input, topN int) Ranked {
	entries := make([]Entry, 0, len(inputs))
	for _, in := range inputs {
		if e, ok := Compute(in); ok {
			entries = append(entries, e)
		}
	}
	return Partition(entries, topN)
}

// FromHistory builds an Input from an ascending history, taking the last two
// observations as previous and current.
func FromHistory(ticker, name, sector string, quotes []provider.Quote) Input {
	in := Input{Ticker: ticker, Name: name, Sector: sector}
	n := len(quotes)
	if n >= 1 {
		cur := quotes[n-1]
		in.Current = &cur
		in.Volume = cur.Volume
	}
	if n >= 2 {
		prev := quotes[n-2]
		in.Previous = &prev
	}
	return in
}
