package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"marketmovers/internal/aggregate"
	"marketmovers/internal/movers"
	"marketmovers/internal/provider"
	"marketmovers/internal/universe"
)

// maxTopN caps the top query parameter.
const maxTopN = 100

type server struct {
	orch     *aggregate.Orchestrator
	universe universe.Source
	topN     int
	timeout  time.Duration
	logger   arbor.ILogger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/price", s.handlePrice)
	mux.HandleFunc("GET /api/movers", s.handleMovers)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/company", s.handleCompany)
	return withJSONHeaders(withGzip(s.logRequests(s.recoverPanic(limitBody(mux)))))
}

type priceResponse struct {
	Symbol        string          `json:"symbol"`
	RequestedDate string          `json:"requestedDate"`
	ResolvedDate  string          `json:"resolvedDate"`
	LookbackDays  int             `json:"lookbackDays"`
	Close         decimal.Decimal `json:"close"`
	Volume        int64           `json:"volume"`
	Source        string          `json:"source,omitempty"`
}

func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := normSymbol(q.Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param", "")
		return
	}
	lookback, ok := intParam(w, q.Get("lookback"), "lookback")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	res, err := s.orch.Resolve(ctx, symbol, q.Get("date"), lookback)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{
		Symbol:        res.Symbol,
		RequestedDate: res.RequestedDate.Format(provider.DateLayout),
		ResolvedDate:  res.ResolvedDate.Format(provider.DateLayout),
		LookbackDays:  res.LookbackDays,
		Close:         res.Quote.Close,
		Volume:        res.Quote.Volume,
		Source:        res.Quote.Source,
	})
}

type moversResponse struct {
	Gainers []movers.Entry   `json:"gainers"`
	Losers  []movers.Entry   `json:"losers"`
	Report  aggregate.Report `json:"report"`
}

func (s *server) handleMovers(w http.ResponseWriter, r *http.Request) {
	top, ok := intParam(w, r.URL.Query().Get("top"), "top")
	if !ok {
		return
	}
	if top <= 0 {
		top = s.topN
	}
	if top > maxTopN {
		top = maxTopN
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	tickers, err := s.universe.Constituents(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("universe")
		writeError(w, http.StatusServiceUnavailable, "ticker universe unavailable", "")
		return
	}
	ranked, report, err := s.orch.Movers(ctx, tickers, top)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moversResponse{Gainers: ranked.Gainers, Losers: ranked.Losers, Report: report})
}

type historyPoint struct {
	Date   string          `json:"date"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type historyResponse struct {
	Symbol string         `json:"symbol"`
	Period string         `json:"period"`
	Quotes []historyPoint `json:"quotes"`
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := normSymbol(q.Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param", "")
		return
	}
	period := strings.TrimSpace(q.Get("period"))
	if period == "" {
		period = "1mo"
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	quotes, err := s.orch.History(ctx, symbol, period)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	resp := historyResponse{Symbol: symbol, Period: period, Quotes: make([]historyPoint, 0, len(quotes))}
	for _, qt := range quotes {
		resp.Quotes = append(resp.Quotes, historyPoint{Date: qt.Day(), Close: qt.Close, Volume: qt.Volume})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleCompany(w http.ResponseWriter, r *http.Request) {
	symbol := normSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param", "")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	snap, err := s.orch.Snapshot(ctx, symbol)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrInvalidDateFormat):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrDataUnavailable), errors.Is(err, provider.ErrNoTradingDayFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrProviderError):
		return http.StatusBadGateway
	case errors.Is(err, provider.ErrUpstreamUnreachable):
		return http.StatusGatewayTimeout
	case errors.Is(err, provider.ErrNoDataAvailable), errors.Is(err, aggregate.ErrEmptyUniverse):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeFailure(w http.ResponseWriter, err error) {
	code := statusFor(err)
	kind := provider.KindOf(err)
	if code >= 500 {
		s.logger.Warn().Str("kind", kind).Err(err).Msg("request failed")
	}
	writeError(w, code, err.Error(), kind)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, code int, msg, kind string) {
	writeJSON(w, code, errorResponse{Error: msg, Kind: kind})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// intParam parses an optional integer query parameter. An empty value is 0.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name+" query param", "")
		return 0, false
	}
	return n, true
}

func normSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
