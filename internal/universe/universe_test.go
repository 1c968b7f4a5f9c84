package universe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"marketmovers/internal/httpx"
)

func TestDedupe(t *testing.T) {
	got := Dedupe([]Constituent{
		{Ticker: " msft "}, {Ticker: "AAPL", Name: " Apple "}, {Ticker: ""}, {Ticker: "MSFT", Name: "dup"},
	})
	require.Equal(t, []Constituent{{Ticker: "MSFT"}, {Ticker: "AAPL", Name: "Apple"}}, got)
}

func TestStatic(t *testing.T) {
	cs, err := FromTickers("AAPL", "MSFT", "AAPL").Constituents(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "MSFT"}, Tickers(cs))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"ticker":"XOM","name":"Exxon Mobil","sector":"Energy"},{"ticker":"NVDA"}]`), 0o600))

	cs, err := File{Path: path}.Constituents(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Constituent{{Ticker: "XOM", Name: "Exxon Mobil", Sector: "Energy"}, {Ticker: "NVDA"}}, cs)

	_, err = File{Path: filepath.Join(t.TempDir(), "missing.json")}.Constituents(context.Background())
	require.Error(t, err)
}

func TestParseTable_Fixture(t *testing.T) {
	f, err := os.Open("testdata/constituents.html")
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)

	cs, err := ParseTable(doc)
	require.NoError(t, err)
	require.Equal(t, []Constituent{
		{Ticker: "MMM", Name: "3M", Sector: "Industrials"},
		{Ticker: "AAPL", Name: "Apple Inc.", Sector: "Information Technology"},
		{Ticker: "BRK.B", Name: "Berkshire Hathaway", Sector: "Financials"},
	}, cs)
}

func TestParseTable_Missing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><p>moved</p></body></html>`))
	require.NoError(t, err)
	_, err = ParseTable(doc)
	require.Error(t, err)
}

func TestWikipedia_FetchesAndParses(t *testing.T) {
	page, err := os.ReadFile("testdata/constituents.html")
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	cs, err := Wikipedia{URL: srv.URL, Client: httpx.New(2 * time.Second)}.Constituents(context.Background())
	require.NoError(t, err)
	require.Len(t, cs, 3)
}
