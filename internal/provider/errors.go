package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Error kinds. Every error produced by adapters, the resolver and the
// orchestrator matches exactly one of these with errors.Is.
var (
	ErrInvalidDateFormat   = errors.New("invalid date format")
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrProviderError       = errors.New("provider error")
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrNoTradingDayFound   = errors.New("no trading day found")
	ErrNoDataAvailable     = errors.New("no data available")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidDateFormat, "InvalidDateFormat"},
	{ErrDataUnavailable, "DataUnavailable"},
	{ErrProviderError, "ProviderError"},
	{ErrUpstreamUnreachable, "UpstreamUnreachable"},
	{ErrNoTradingDayFound, "NoTradingDayFound"},
	{ErrNoDataAvailable, "NoDataAvailable"},
}

// Error carries the kind together with the provider and symbol it concerns.
type Error struct {
	Kind     error
	Provider string
	Symbol   string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Symbol != "" {
		msg += " for " + e.Symbol
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *Error of the given kind. cause may be nil.
func NewError(kind error, providerName, symbol string, cause error) *Error {
	return &Error{Kind: kind, Provider: providerName, Symbol: symbol, Err: cause}
}

func Unavailable(providerName, symbol string, format string, args ...any) *Error {
	return NewError(ErrDataUnavailable, providerName, symbol, fmt.Errorf(format, args...))
}

func Rejected(providerName, symbol string, format string, args ...any) *Error {
	return NewError(ErrProviderError, providerName, symbol, fmt.Errorf(format, args...))
}

// Transport classifies a failure from the outbound call. Errors that already
// carry a kind pass through unchanged; anything else is unreachable upstream.
func Transport(providerName, symbol string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return NewError(ErrUpstreamUnreachable, providerName, symbol, err)
}

// IsTransport reports whether err looks like a network-level failure rather
// than a response from the provider.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// KindOf returns the stable name of err's kind, or "" when err carries none.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}
