// Package ratelimit gates calls into a provider.Provider.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"marketmovers/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Each caller reserves the next free slot, so concurrent calls are spread
// Interval apart instead of being released together. A canceled context
// returns early with an UpstreamUnreachable error.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	if err := m.wait(ctx, symbol); err != nil {
		return nil, err
	}
	return m.P.FetchHistory(ctx, symbol, r)
}

func (m *MinInterval) FetchSnapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	if err := m.wait(ctx, symbol); err != nil {
		return provider.CompanySnapshot{}, err
	}
	return m.P.FetchSnapshot(ctx, symbol)
}

func (m *MinInterval) wait(ctx context.Context, symbol string) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	m.next = slot.Add(m.Interval)
	m.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return provider.Transport(m.P.Name(), symbol, ctx.Err())
	case <-t.C:
		return nil
	}
}
