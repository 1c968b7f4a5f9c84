package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Output sizes accepted by TIME_SERIES_DAILY. Compact returns the latest 100
// observations.
const (
	OutputCompact = "compact"
	OutputFull    = "full"
)

// DailyBar is one row of TIME_SERIES_DAILY.
type DailyBar struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

type dailyResponse struct {
	MetaData map[string]string   `json:"Meta Data"`
	Series   map[string]dailyRow `json:"Time Series (Daily)"`
}

type dailyRow struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// GetDailySeries retrieves the daily series for symbol. Rows come back in no
// particular order.
func (c *APIClient) GetDailySeries(ctx context.Context, symbol, outputSize string, opts ...APIClientOption) ([]DailyBar, error) {
	if outputSize == "" {
		outputSize = OutputCompact
	}
	body, err := c.with(opts).get(ctx, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": outputSize,
	})
	if err != nil {
		return nil, err
	}

	var resp dailyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding daily series: %w", err)
	}
	if len(resp.Series) == 0 {
		return nil, ErrEmptyResponse
	}

	bars := make([]DailyBar, 0, len(resp.Series))
	for date, row := range resp.Series {
		// {
		//   "1. open": "187.1500",
		//   "2. high": "188.4400",
		//   "3. low": "183.8850",
		//   "4. close": "185.6400",
		//   "5. volume": "82488674"
		// }
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("decoding date %q: %w", date, err)
		}
		bar := DailyBar{Date: d}
		for _, f := range []struct {
			name string
			raw  string
			dst  *decimal.Decimal
		}{
			{"open", row.Open, &bar.Open},
			{"high", row.High, &bar.High},
			{"low", row.Low, &bar.Low},
			{"close", row.Close, &bar.Close},
		} {
			if f.raw == "" {
				continue
			}
			v, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, fmt.Errorf("decoding %s for %s: %w", f.name, date, err)
			}
			*f.dst = v
		}
		if row.Close == "" {
			return nil, fmt.Errorf("decoding close for %s: missing", date)
		}
		if row.Volume != "" {
			v, err := strconv.ParseInt(row.Volume, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decoding volume for %s: %w", date, err)
			}
			bar.Volume = v
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
