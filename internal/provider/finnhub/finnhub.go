// Package finnhub implements provider.Provider on top of the Finnhub REST API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"marketmovers/internal/httpx"
	"marketmovers/internal/provider"
)

type Config struct {
	Name    string
	BaseURL string
	Token   string
	// Now resolves period ranges; defaults to time.Now.
	Now func() time.Time
}

type Provider struct {
	cfg    Config
	client *resty.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "finnhub"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://finnhub.io/api/v1"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if hc == nil {
		hc = httpx.New(10 * time.Second)
	}
	client := resty.NewWithClient(hc.HTTP).
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", hc.UserAgent).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetQueryParam("token", cfg.Token)
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return p.cfg.Name }

// candles is the /stock/candle payload. Arrays are parallel, indexed by bar.
type candles struct {
	Close     []decimal.Decimal `json:"c"`
	Volume    []json.Number     `json:"v"`
	Timestamp []int64           `json:"t"`
	Status    string            `json:"s"`
	Error     string            `json:"error"`
}

func (p *Provider) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	from, to, err := r.Bounds(p.cfg.Now())
	if err != nil {
		return nil, provider.Rejected(p.cfg.Name, symbol, "%v", err)
	}

	var body candles
	if err := p.get(ctx, symbol, "/stock/candle", map[string]string{
		"symbol":     symbol,
		"resolution": "D",
		"from":       strconv.FormatInt(from.Unix(), 10),
		// "to" is inclusive upstream.
		"to": strconv.FormatInt(to.Unix()-1, 10),
	}, &body); err != nil {
		return nil, err
	}
	if body.Error != "" {
		return nil, provider.Rejected(p.cfg.Name, symbol, "%s", body.Error)
	}
	switch body.Status {
	case "ok":
	case "no_data":
		return nil, provider.Unavailable(p.cfg.Name, symbol, "no candles")
	default:
		return nil, provider.Rejected(p.cfg.Name, symbol, "unexpected status %q", body.Status)
	}
	if len(body.Close) != len(body.Timestamp) {
		return nil, provider.Rejected(p.cfg.Name, symbol, "mismatched candle arrays: c=%d t=%d", len(body.Close), len(body.Timestamp))
	}

	quotes := make([]provider.Quote, 0, len(body.Timestamp))
	for i, ts := range body.Timestamp {
		q := provider.Quote{
			Symbol: symbol,
			Date:   time.Unix(ts, 0).UTC(),
			Close:  body.Close[i],
			Source: p.cfg.Name,
		}
		if i < len(body.Volume) {
			q.Volume = volume(body.Volume[i])
		}
		quotes = append(quotes, q)
	}
	quotes = provider.Window(provider.NormalizeHistory(quotes), from, to)
	if len(quotes) == 0 {
		return nil, provider.Unavailable(p.cfg.Name, symbol, "no candles in [%s, %s)", from.Format(provider.DateLayout), to.Format(provider.DateLayout))
	}
	return quotes, nil
}

type profile struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Industry string `json:"finnhubIndustry"`
	Exchange string `json:"exchange"`
	WebURL   string `json:"weburl"`
	Error    string `json:"error"`
}

func (p *Provider) FetchSnapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	var body profile
	if err := p.get(ctx, symbol, "/stock/profile2", map[string]string{"symbol": symbol}, &body); err != nil {
		return provider.CompanySnapshot{}, err
	}
	if body.Error != "" {
		return provider.CompanySnapshot{}, provider.Rejected(p.cfg.Name, symbol, "%s", body.Error)
	}
	if body.Ticker == "" && body.Name == "" {
		return provider.CompanySnapshot{}, provider.Unavailable(p.cfg.Name, symbol, "empty profile")
	}
	snap := provider.CompanySnapshot{Symbol: body.Ticker, Name: body.Name, Industry: body.Industry}
	if snap.Symbol == "" {
		snap.Symbol = symbol
	}
	return snap, nil
}

// get performs the request and decodes a 200 body into out. Every failure is
// returned as a *provider.Error.
func (p *Provider) get(ctx context.Context, symbol, path string, params map[string]string, out any) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return provider.Transport(p.cfg.Name, symbol, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusOK:
	case code == http.StatusTooManyRequests:
		return provider.Rejected(p.cfg.Name, symbol, "rate limited")
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return provider.Rejected(p.cfg.Name, symbol, "unauthorized (%d): %s", code, snippet(resp.Body()))
	case code >= 500:
		return provider.NewError(provider.ErrUpstreamUnreachable, p.cfg.Name, symbol, fmt.Errorf("status %d", code))
	default:
		return provider.Rejected(p.cfg.Name, symbol, "status %d: %s", code, snippet(resp.Body()))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return provider.Rejected(p.cfg.Name, symbol, "decode %s: %v", path, err)
	}
	return nil
}

func volume(n json.Number) int64 {
	if v, err := n.Int64(); err == nil {
		return v
	}
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return 0
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
