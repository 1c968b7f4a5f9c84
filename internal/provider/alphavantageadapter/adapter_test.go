package alphavantageadapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketmovers/internal/provider"
	"marketmovers/internal/provider/alphavantage"
)

const series = `{
  "Meta Data": {"2. Symbol": "AAPL"},
  "Time Series (Daily)": {
    "2024-01-05": {"4. close": "181.18", "5. volume": "62379661"},
    "2024-01-04": {"4. close": "181.91", "5. volume": "71983570"},
    "2024-01-03": {"4. close": "184.25", "5. volume": "58414460"}
  }
}`

func newAdapter(t *testing.T, handler http.HandlerFunc, now time.Time) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := alphavantage.NewAPIClient("k", alphavantage.WithBaseURL(srv.URL), alphavantage.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return New(Config{Now: func() time.Time { return now }}, client)
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := provider.ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestFetchHistory_OneDay(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "compact", r.URL.Query().Get("outputsize"))
		_, _ = w.Write([]byte(series))
	}, time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC))

	qs, err := a.FetchHistory(context.Background(), "AAPL", provider.OneDay(mustDay(t, "2024-01-04")))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.Equal(t, "2024-01-04", qs[0].Day())
	require.Equal(t, "181.91", qs[0].Close.String())
	require.Equal(t, int64(71983570), qs[0].Volume)
	require.Equal(t, "alphavantage", qs[0].Source)
}

func TestFetchHistory_PeriodAscending(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(series))
	}, time.Date(2024, 1, 5, 20, 0, 0, 0, time.UTC))

	qs, err := a.FetchHistory(context.Background(), "AAPL", provider.LastPeriod("5d"))
	require.NoError(t, err)
	require.Len(t, qs, 3)
	require.Equal(t, "2024-01-03", qs[0].Day())
	require.Equal(t, "2024-01-05", qs[2].Day())
}

func TestFetchHistory_LongRangeUsesFullOutput(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "full", r.URL.Query().Get("outputsize"))
		_, _ = w.Write([]byte(series))
	}, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	_, err := a.FetchHistory(context.Background(), "AAPL", provider.OneDay(mustDay(t, "2024-01-04")))
	require.NoError(t, err)
}

func TestFetchHistory_ErrorMapping(t *testing.T) {
	now := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"no observation on day", http.StatusOK, series, provider.ErrDataUnavailable},
		{"empty object", http.StatusOK, `{}`, provider.ErrDataUnavailable},
		{"error message", http.StatusOK, `{"Error Message":"Invalid API call."}`, provider.ErrProviderError},
		{"rate-limit note", http.StatusOK, `{"Note":"Thank you for using Alpha Vantage!"}`, provider.ErrProviderError},
		{"information", http.StatusOK, `{"Information":"The **demo** API key is for demo purposes only."}`, provider.ErrProviderError},
		{"http 429", http.StatusTooManyRequests, ``, provider.ErrProviderError},
		{"http 503", http.StatusServiceUnavailable, ``, provider.ErrUpstreamUnreachable},
		{"garbage", http.StatusOK, `<html>`, provider.ErrProviderError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, now)
			_, err := a.FetchHistory(context.Background(), "AAPL", provider.OneDay(mustDay(t, "2024-01-06")))
			require.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestFetchHistory_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := alphavantage.NewAPIClient("k", alphavantage.WithBaseURL(url))
	require.NoError(t, err)
	a := New(Config{}, client)

	_, err = a.FetchHistory(context.Background(), "AAPL", provider.LastPeriod("5d"))
	require.ErrorIs(t, err, provider.ErrUpstreamUnreachable)
}

func TestFetchSnapshot(t *testing.T) {
	a := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			_, _ = w.Write([]byte(`{"Symbol":"AAPL","Name":"Apple Inc","Sector":"TECHNOLOGY","Industry":"ELECTRONIC COMPUTERS"}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}, time.Now())

	snap, err := a.FetchSnapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.CompanySnapshot{Symbol: "AAPL", Name: "Apple Inc", Sector: "TECHNOLOGY", Industry: "ELECTRONIC COMPUTERS"}, snap)

	_, err = a.FetchSnapshot(context.Background(), "ZZZZ")
	require.ErrorIs(t, err, provider.ErrDataUnavailable)
}
