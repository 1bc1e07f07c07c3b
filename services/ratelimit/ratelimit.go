package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Rayane1997/app-price-tracker/services/cache"
)

const keyPrefix = "domain_last_fetch:"

// DomainLimiter enforces a minimum spacing between consecutive requests to
// the same domain. Last-fetch timestamps live in the shared cache, keyed by
// domain, so the spacing holds even when several workers run concurrently.
// Different domains are never delayed by each other.
type DomainLimiter struct {
	cache     cache.CacheService
	spacing   time.Duration
	mu        sync.RWMutex
	overrides map[string]time.Duration
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

// NewDomainLimiter creates a limiter with the given default spacing
func NewDomainLimiter(cacheSvc cache.CacheService, spacing time.Duration) *DomainLimiter {
	return &DomainLimiter{
		cache:     cacheSvc,
		spacing:   spacing,
		overrides: make(map[string]time.Duration),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// SetSpacing overrides the spacing window for one domain. Stored parser
// configs carry their own rate-limit seconds; those land here at startup.
func (l *DomainLimiter) SetSpacing(domain string, spacing time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[domain] = spacing
}

func (l *DomainLimiter) spacingFor(domain string) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if spacing, ok := l.overrides[domain]; ok {
		return spacing
	}
	return l.spacing
}

// Acquire blocks until a request to domain is allowed, then records the slot.
// Returns early with the context error if ctx is cancelled while waiting.
func (l *DomainLimiter) Acquire(ctx context.Context, domain string) error {
	spacing := l.spacingFor(domain)
	if l.cache == nil || spacing <= 0 {
		return nil
	}

	key := keyPrefix + domain

	if raw, err := l.cache.Get(key); err == nil {
		if lastNanos, parseErr := strconv.ParseInt(string(raw), 10, 64); parseErr == nil {
			elapsed := l.now().Sub(time.Unix(0, lastNanos))
			if wait := spacing - elapsed; wait > 0 {
				if err := l.sleep(ctx, wait); err != nil {
					return err
				}
			}
		}
	}

	stamp := strconv.FormatInt(l.now().UnixNano(), 10)
	return l.cache.Set(key, []byte(stamp), spacing)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
