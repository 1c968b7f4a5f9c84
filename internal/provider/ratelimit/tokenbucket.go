package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"marketmovers/internal/provider"
)

// TokenBucket wraps a Provider and gates calls through a rate.Limiter.
type TokenBucket struct {
	P       provider.Provider
	Limiter *rate.Limiter
}

// PerMinute builds a TokenBucket allowing rpm calls per minute with the given
// burst. rpm <= 0 disables limiting.
func PerMinute(p provider.Provider, rpm, burst int) *TokenBucket {
	if rpm <= 0 {
		return &TokenBucket{P: p}
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{P: p, Limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)}
}

func (t *TokenBucket) Name() string { return t.P.Name() }

func (t *TokenBucket) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	if err := t.wait(ctx, symbol); err != nil {
		return nil, err
	}
	return t.P.FetchHistory(ctx, symbol, r)
}

func (t *TokenBucket) FetchSnapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	if err := t.wait(ctx, symbol); err != nil {
		return provider.CompanySnapshot{}, err
	}
	return t.P.FetchSnapshot(ctx, symbol)
}

func (t *TokenBucket) wait(ctx context.Context, symbol string) error {
	if t.Limiter == nil {
		return nil
	}
	if err := t.Limiter.Wait(ctx); err != nil {
		// Wait also fails early when the deadline cannot be met.
		return provider.NewError(provider.ErrUpstreamUnreachable, t.P.Name(), symbol, err)
	}
	return nil
}
