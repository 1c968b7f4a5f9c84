package universe

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"marketmovers/internal/httpx"
)

// DefaultWikipediaURL lists the S&P 500 constituents.
const DefaultWikipediaURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Wikipedia scrapes the constituents table of an index article. Columns are
// located by header text, so column reordering upstream is tolerated.
type Wikipedia struct {
	URL    string
	Client *httpx.Client
}

func (w Wikipedia) Constituents(ctx context.Context) ([]Constituent, error) {
	url := w.URL
	if url == "" {
		url = DefaultWikipediaURL
	}
	client := w.Client
	if client == nil {
		client = httpx.New(15 * time.Second)
	}
	body, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch constituents: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse constituents page: %w", err)
	}
	return ParseTable(doc)
}

// ParseTable extracts constituents from table#constituents.
func ParseTable(doc *goquery.Document) ([]Constituent, error) {
	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("constituents table not found")
	}

	col := map[string]int{"symbol": -1, "security": -1, "gics sector": -1}
	table.Find("tr").First().Find("th").Each(func(i int, s *goquery.Selection) {
		h := strings.ToLower(strings.TrimSpace(s.Text()))
		if _, ok := col[h]; ok {
			col[h] = i
		}
	})
	if col["symbol"] < 0 {
		return nil, fmt.Errorf("constituents table has no Symbol column")
	}

	var out []Constituent
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		cell := func(name string) string {
			i := col[name]
			if i < 0 || i >= cells.Length() {
				return ""
			}
			return strings.TrimSpace(cells.Eq(i).Text())
		}
		out = append(out, Constituent{
			Ticker: cell("symbol"),
			Name:   cell("security"),
			Sector: cell("gics sector"),
		})
	})
	out = Dedupe(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("constituents table is empty")
	}
	return out, nil
}
