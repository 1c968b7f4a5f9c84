package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Overview is the subset of the OVERVIEW payload we use.
type Overview struct {
	Symbol      string `json:"Symbol"`
	AssetType   string `json:"AssetType"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Exchange    string `json:"Exchange"`
	Currency    string `json:"Currency"`
	Sector      string `json:"Sector"`
	Industry    string `json:"Industry"`
}

// GetOverview retrieves company fundamentals for symbol.
func (c *APIClient) GetOverview(ctx context.Context, symbol string, opts ...APIClientOption) (*Overview, error) {
	body, err := c.with(opts).get(ctx, map[string]string{
		"function": "OVERVIEW",
		"symbol":   symbol,
	})
	if err != nil {
		return nil, err
	}

	var ov Overview
	if err := json.Unmarshal(body, &ov); err != nil {
		return nil, fmt.Errorf("decoding overview: %w", err)
	}
	if ov.Symbol == "" && ov.Name == "" {
		return nil, ErrEmptyResponse
	}
	return &ov, nil
}
