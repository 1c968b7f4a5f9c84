package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
)

// notices are the in-band error fields Alpha Vantage returns with HTTP 200.
type notices struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (n notices) err() error {
	switch {
	case n.ErrorMessage != "":
		return &NoticeError{Field: "Error Message", Message: n.ErrorMessage}
	case n.Note != "":
		return &NoticeError{Field: "Note", Message: n.Note}
	case n.Information != "":
		return &NoticeError{Field: "Information", Message: n.Information}
	}
	return nil
}

// get performs GET /query with the given parameters and returns the raw body
// after status and notice checks.
func (c *APIClient) get(ctx context.Context, params map[string]string) ([]byte, error) {
	query := maps.Clone(c.query)
	for k, v := range params {
		query.Set(k, v)
	}

	url := fmt.Sprintf("%s/query?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, &StatusError{Code: res.StatusCode}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrRequestFailed, err)
	}
	if t := bytes.TrimSpace(body); bytes.Equal(t, []byte("{}")) || len(t) == 0 {
		return nil, ErrEmptyResponse
	}

	var n notices
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if err := n.err(); err != nil {
		return nil, err
	}
	return body, nil
}
