package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketmovers/internal/httpx"
	"marketmovers/internal/provider"
)

func newProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	now := time.Date(2024, 1, 5, 21, 0, 0, 0, time.UTC)
	return New(Config{BaseURL: srv.URL, Token: "tok", Now: func() time.Time { return now }}, httpx.New(2*time.Second))
}

func TestFetchHistory_Candles(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stock/candle", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "tok", q.Get("token"))
		require.Equal(t, "AAPL", q.Get("symbol"))
		require.Equal(t, "D", q.Get("resolution"))
		require.Equal(t, httpx.DefaultUserAgent, r.Header.Get("User-Agent"))
		// 2024-01-03, 2024-01-04, 2024-01-05 at 00:00 UTC
		_, _ = w.Write([]byte(`{"c":[184.25,181.91,181.18],"v":[58414460,71983570,6.2379661e7],"t":[1704240000,1704326400,1704412800],"s":"ok"}`))
	})

	qs, err := p.FetchHistory(context.Background(), "AAPL", provider.LastPeriod("5d"))
	require.NoError(t, err)
	require.Len(t, qs, 3)
	require.Equal(t, "2024-01-03", qs[0].Day())
	require.Equal(t, "181.18", qs[2].Close.String())
	require.Equal(t, int64(62379661), qs[2].Volume)
	require.Equal(t, "finnhub", qs[2].Source)
}

func TestFetchHistory_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"no data", http.StatusOK, `{"s":"no_data"}`, provider.ErrDataUnavailable},
		{"error field", http.StatusOK, `{"error":"You don't have access to this resource."}`, provider.ErrProviderError},
		{"rate limited", http.StatusTooManyRequests, `{"error":"API limit reached."}`, provider.ErrProviderError},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Invalid API key"}`, provider.ErrProviderError},
		{"bad gateway", http.StatusBadGateway, ``, provider.ErrUpstreamUnreachable},
		{"mismatch", http.StatusOK, `{"c":[1,2],"t":[1704240000],"s":"ok"}`, provider.ErrProviderError},
		{"outside window", http.StatusOK, `{"c":[1],"v":[1],"t":[946684800],"s":"ok"}`, provider.ErrDataUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := p.FetchHistory(context.Background(), "AAPL", provider.LastPeriod("5d"))
			require.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestFetchHistory_ContextCanceled(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.FetchHistory(ctx, "AAPL", provider.LastPeriod("5d"))
	require.ErrorIs(t, err, provider.ErrUpstreamUnreachable)
}

func TestFetchSnapshot(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stock/profile2", r.URL.Path)
		if r.URL.Query().Get("symbol") == "AAPL" {
			_, _ = w.Write([]byte(`{"country":"US","exchange":"NASDAQ NMS - GLOBAL MARKET","finnhubIndustry":"Technology","name":"Apple Inc","ticker":"AAPL"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	snap, err := p.FetchSnapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, provider.CompanySnapshot{Symbol: "AAPL", Name: "Apple Inc", Industry: "Technology"}, snap)

	_, err = p.FetchSnapshot(context.Background(), "ZZZZ")
	require.ErrorIs(t, err, provider.ErrDataUnavailable)
}
