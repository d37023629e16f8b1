package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// redisRetryDelay is how long order placement sticks to the in-process
// fallback after a Redis failure.
const redisRetryDelay = 30 * time.Second

// SettingsProvider supplies the latest rate limit settings snapshot.
type SettingsProvider func() SettingsConfig

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// backendConfig identifies one Redis backend configuration; a changed
// value means the cached client must be rebuilt.
type backendConfig struct {
	addr     string
	password string
	db       int
	prefix   string
}

// Manager routes order placement checks to the configured backend:
// Redis when the settings enable it and it is reachable, the
// in-process limiter otherwise.
type Manager struct {
	provider       SettingsProvider
	nowFn          func() time.Time
	newRedisClient RedisClientFactory
	fallback       Limiter

	mu      sync.Mutex
	redis   *RedisLimiter
	cfg     backendConfig
	retryAt time.Time
}

// NewManager constructs a Manager with default dependencies when nil.
func NewManager(provider SettingsProvider, nowFn func() time.Time, newRedisClient RedisClientFactory) *Manager {
	if provider == nil {
		provider = LoadSettingsConfig
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if newRedisClient == nil {
		newRedisClient = redis.NewClient
	}
	return &Manager{
		provider:       provider,
		nowFn:          nowFn,
		newRedisClient: newRedisClient,
		fallback:       NewMemoryLimiter(),
	}
}

// Allow checks whether the placement should be allowed using the best
// available backend.
func (m *Manager) Allow(ctx context.Context, key string, limit int) (Result, error) {
	if m == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	now := m.nowFn()
	cfg := m.provider()

	if cfg.RedisEnabled {
		if limiter := m.redisBackend(ctx, cfg, now); limiter != nil {
			result, errAllow := limiter.Allow(ctx, key, limit, now)
			if errAllow == nil {
				return result, nil
			}
			m.deferRedis(errAllow, now)
		}
	}
	return m.fallback.Allow(ctx, key, limit, now)
}

// redisBackend returns a ready Redis limiter for the current settings,
// or nil when Redis is unconfigured, cooling down, or unreachable.
func (m *Manager) redisBackend(ctx context.Context, cfg SettingsConfig, now time.Time) *RedisLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	next := backendConfig{
		addr:     addr,
		password: strings.TrimSpace(cfg.RedisPassword),
		db:       cfg.RedisDB,
		prefix:   strings.TrimSpace(cfg.RedisPrefix),
	}
	if next.db < 0 {
		next.db = 0
	}

	m.mu.Lock()
	if !m.retryAt.IsZero() && now.Before(m.retryAt) {
		m.mu.Unlock()
		return nil
	}
	m.retryAt = time.Time{}
	if m.redis != nil && m.cfg == next {
		limiter := m.redis
		m.mu.Unlock()
		return limiter
	}
	if m.redis != nil {
		_ = m.redis.client.Close()
		m.redis = nil
	}
	m.mu.Unlock()

	client := m.newRedisClient(&redis.Options{
		Addr:     next.addr,
		Password: next.password,
		DB:       next.db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		m.deferRedis(errPing, now)
		return nil
	}

	limiter := NewRedisLimiter(client, next.prefix)
	m.mu.Lock()
	m.redis = limiter
	m.cfg = next
	m.mu.Unlock()
	return limiter
}

// deferRedis starts the retry delay after a Redis failure.
func (m *Manager) deferRedis(err error, now time.Time) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.retryAt.IsZero() && now.Before(m.retryAt) {
		return
	}
	m.retryAt = now.Add(redisRetryDelay)
	log.WithError(err).Warn("ratelimit: redis unavailable, using in-process fallback")
}
