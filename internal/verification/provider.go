package verification

import (
	"context"
	"errors"
	"sync"
	"time"
)

// GPSTimeout bounds a single device position acquisition.
const GPSTimeout = 10 * time.Second

// PositionCacheTTL is how long an acquired fix may be reused.
const PositionCacheTTL = 60 * time.Second

// ErrPositionUnavailable indicates the device could not produce a fix in
// time or the caller denied access. The verifier treats it as
// "coordinates unavailable" and falls through to the next method.
var ErrPositionUnavailable = errors.New("verification: position unavailable")

// GeolocationProvider acquires the device's current coordinates.
type GeolocationProvider interface {
	Current(ctx context.Context) (Coordinates, error)
}

// CachedProvider wraps a GeolocationProvider with a position cache and a
// per-acquisition timeout.
type CachedProvider struct {
	inner   GeolocationProvider
	timeout time.Duration
	ttl     time.Duration
	nowFn   func() time.Time

	mu        sync.Mutex
	lastFix   Coordinates
	lastFixAt time.Time
}

// NewCachedProvider constructs a CachedProvider with default timeout and
// cache TTL when zero values are given.
func NewCachedProvider(inner GeolocationProvider, timeout, ttl time.Duration) *CachedProvider {
	if timeout <= 0 {
		timeout = GPSTimeout
	}
	if ttl <= 0 {
		ttl = PositionCacheTTL
	}
	return &CachedProvider{
		inner:   inner,
		timeout: timeout,
		ttl:     ttl,
		nowFn:   time.Now,
	}
}

// Current returns a cached fix younger than the TTL, or acquires a new
// one bounded by the timeout.
func (p *CachedProvider) Current(ctx context.Context) (Coordinates, error) {
	if p == nil || p.inner == nil {
		return Coordinates{}, ErrPositionUnavailable
	}
	now := p.nowFn()

	p.mu.Lock()
	if !p.lastFixAt.IsZero() && now.Sub(p.lastFixAt) < p.ttl {
		fix := p.lastFix
		p.mu.Unlock()
		return fix, nil
	}
	p.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fix, errCurrent := p.inner.Current(acquireCtx)
	if errCurrent != nil {
		return Coordinates{}, ErrPositionUnavailable
	}

	p.mu.Lock()
	p.lastFix = fix
	p.lastFixAt = p.nowFn()
	p.mu.Unlock()
	return fix, nil
}
