package alphavantage

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

const baseURL = "https://www.alphavantage.co"

var (
	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthorized is returned on HTTP 401 and 403.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptyResponse is returned when the API answers with an empty object,
	// which is how Alpha Vantage reports an unknown symbol on most functions.
	ErrEmptyResponse = errors.New("empty response")
	// ErrRequestFailed wraps failures of the HTTP round trip itself.
	ErrRequestFailed = errors.New("request failed")
)

// StatusError is returned for any other non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status code: %d", e.Code) }

// NoticeError carries one of the in-band messages Alpha Vantage returns with
// HTTP 200: "Error Message", "Note" or "Information".
type NoticeError struct {
	Field   string
	Message string
}

func (e *NoticeError) Error() string { return e.Field + ": " + e.Message }

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIClient is a client for the Alpha Vantage query API.
type APIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// APIClientOption is a configuration option for the API client.
type APIClientOption func(*APIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) APIClientOption {
	return func(c *APIClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) APIClientOption {
	return func(c *APIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) APIClientOption {
	return func(c *APIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewAPIClient creates a new Alpha Vantage API client.
func NewAPIClient(key string, options ...APIClientOption) (*APIClient, error) {
	if key == "" {
		return nil, errors.New("alphavantage: api key is required")
	}
	var client = &APIClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	// https://www.alphavantage.co/documentation/
	client.query.Set("apikey", key)
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// with returns a shallow copy of c with per-call options applied.
func (c *APIClient) with(opts []APIClientOption) *APIClient {
	var override = &APIClient{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}
	return override
}
