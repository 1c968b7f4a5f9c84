// Package fallback tries several providers in priority order.
package fallback

import (
	"context"
	"errors"
	"strings"

	"github.com/ternarybob/arbor"

	"marketmovers/internal/logging"
	"marketmovers/internal/provider"
)

// Chain is a provider.Provider that asks each member in turn and returns the
// first success. When all fail it reports DataUnavailable if any member
// answered "no data", otherwise the first member's error. A canceled context
// stops the walk.
type Chain struct {
	providers []provider.Provider
	logger    arbor.ILogger
}

func New(logger arbor.ILogger, providers ...provider.Provider) *Chain {
	return &Chain{providers: providers, logger: logging.OrNop(logger)}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

// Len reports the number of member providers.
func (c *Chain) Len() int { return len(c.providers) }

func (c *Chain) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	return walk(ctx, c, symbol, "history", func(p provider.Provider) ([]provider.Quote, error) {
		return p.FetchHistory(ctx, symbol, r)
	})
}

func (c *Chain) FetchSnapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	return walk(ctx, c, symbol, "snapshot", func(p provider.Provider) (provider.CompanySnapshot, error) {
		return p.FetchSnapshot(ctx, symbol)
	})
}

func walk[T any](ctx context.Context, c *Chain, symbol, op string, fn func(provider.Provider) (T, error)) (T, error) {
	var (
		zero        T
		first       error
		unavailable error
	)
	if len(c.providers) == 0 {
		return zero, provider.Rejected("", symbol, "no providers configured")
	}
	for _, p := range c.providers {
		v, err := fn(p)
		if err == nil {
			return v, nil
		}
		if first == nil {
			first = err
		}
		if unavailable == nil && errors.Is(err, provider.ErrDataUnavailable) {
			unavailable = err
		}
		if ctx.Err() != nil {
			return zero, provider.Transport(p.Name(), symbol, err)
		}
		c.logger.Debug().Str("provider", p.Name()).Str("symbol", symbol).Str("op", op).Str("kind", provider.KindOf(err)).Err(err).Msg("provider failed, trying next")
	}
	if unavailable != nil {
		return zero, unavailable
	}
	return zero, first
}
