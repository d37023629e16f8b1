package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter counts order placements per key in one-second fixed
// windows. Only the current window is kept: when the second rolls
// over the whole map is replaced, so stale business keys never
// accumulate.
type MemoryLimiter struct {
	mu     sync.Mutex
	window int64
	placed map[string]int
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{placed: make(map[string]int)}
}

// Allow checks whether one more placement fits in the current second.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.window != sec {
		l.window = sec
		l.placed = make(map[string]int)
	}
	count := l.placed[key]
	if count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	l.placed[key] = count + 1
	return Result{Allowed: true, Remaining: limit - count - 1, Reset: reset}, nil
}
