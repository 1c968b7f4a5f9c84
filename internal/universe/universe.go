// Package universe supplies the ordered list of tickers a movers ranking runs
// over.
package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Constituent is one member of the universe. Name and Sector may be empty.
type Constituent struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name,omitempty"`
	Sector string `json:"sector,omitempty"`
}

type Source interface {
	Constituents(ctx context.Context) ([]Constituent, error)
}

// Static is a fixed list, typically from configuration.
type Static []Constituent

func (s Static) Constituents(context.Context) ([]Constituent, error) {
	return Dedupe(s), nil
}

// FromTickers builds a Static source from bare symbols.
func FromTickers(tickers ...string) Static {
	out := make(Static, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, Constituent{Ticker: t})
	}
	return out
}

// File reads a JSON array of constituents, as written by universe_dump. The
// file is read on every call.
type File struct {
	Path string
}

func (f File) Constituents(context.Context) ([]Constituent, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	var cs []Constituent
	if err := json.Unmarshal(b, &cs); err != nil {
		return nil, fmt.Errorf("decode universe file %s: %w", f.Path, err)
	}
	return Dedupe(cs), nil
}

// Dedupe upper-cases and trims tickers, drops blanks and keeps the first
// occurrence of each ticker. Order is preserved.
func Dedupe(cs []Constituent) []Constituent {
	seen := make(map[string]struct{}, len(cs))
	out := make([]Constituent, 0, len(cs))
	for _, c := range cs {
		c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
		if c.Ticker == "" {
			continue
		}
		if _, dup := seen[c.Ticker]; dup {
			continue
		}
		seen[c.Ticker] = struct{}{}
		c.Name = strings.TrimSpace(c.Name)
		c.Sector = strings.TrimSpace(c.Sector)
		out = append(out, c)
	}
	return out
}

// Tickers returns just the symbols.
func Tickers(cs []Constituent) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Ticker
	}
	return out
}
