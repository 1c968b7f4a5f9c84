// Package cache memoizes company snapshots in front of a provider.Provider.
// Historical prices are never cached.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"marketmovers/internal/provider"
)

// entry stores a cached snapshot with expiry.
type entry struct {
	expiresAt time.Time
	snap      provider.CompanySnapshot
}

// DefaultFetchTimeout bounds a coalesced upstream lookup.
const DefaultFetchTimeout = 15 * time.Second

// Provider caches FetchSnapshot results per symbol for TTL and coalesces
// concurrent lookups of the same symbol. FetchHistory passes straight
// through. A TTL <= 0 disables caching.
//
// A coalesced lookup is detached from the caller that started it and bounded
// by FetchTimeout instead, so one caller giving up does not fail the others.
// Each caller still stops waiting when its own context ends.
type Provider struct {
	P            provider.Provider
	TTL          time.Duration
	MaxItems     int
	FetchTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time

	mu    sync.RWMutex
	items map[string]entry // key: symbol
	group singleflight.Group
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) FetchHistory(ctx context.Context, symbol string, r provider.DateRange) ([]provider.Quote, error) {
	return c.P.FetchHistory(ctx, symbol, r)
}

func (c *Provider) FetchSnapshot(ctx context.Context, symbol string) (provider.CompanySnapshot, error) {
	if c.TTL <= 0 {
		return c.P.FetchSnapshot(ctx, symbol)
	}

	now := c.now()
	c.mu.RLock()
	e, ok := c.items[symbol]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.snap, nil
	}

	ch := c.group.DoChan(symbol, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		snap, err := c.P.FetchSnapshot(fctx, symbol)
		if err != nil {
			return provider.CompanySnapshot{}, err
		}
		c.store(symbol, snap)
		return snap, nil
	})
	select {
	case <-ctx.Done():
		return provider.CompanySnapshot{}, provider.Transport(c.P.Name(), symbol, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return provider.CompanySnapshot{}, res.Err
		}
		return res.Val.(provider.CompanySnapshot), nil
	}
}

func (c *Provider) fetchTimeout() time.Duration {
	if c.FetchTimeout > 0 {
		return c.FetchTimeout
	}
	return DefaultFetchTimeout
}

// Len reports how many entries are held, expired or not.
func (c *Provider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Provider) store(symbol string, snap provider.CompanySnapshot) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[symbol] = entry{expiresAt: now.Add(c.TTL), snap: snap}

	// best-effort cap: expired first, then arbitrary
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		for k, v := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if !now.Before(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if k != symbol {
				delete(c.items, k)
			}
		}
	}
}

func (c *Provider) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
