package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_EnforcesPerSecondLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		result, errAllow := limiter.Allow(context.Background(), "b:1", 3, now)
		if errAllow != nil {
			t.Fatalf("Allow: %v", errAllow)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d to pass", i+1)
		}
	}

	result, errAllow := limiter.Allow(context.Background(), "b:1", 3, now)
	if errAllow != nil {
		t.Fatalf("Allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatal("expected fourth request in the window to be blocked")
	}
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Unix(1_700_000_000, 0)

	if result, _ := limiter.Allow(context.Background(), "b:1", 1, now); !result.Allowed {
		t.Fatal("expected first request to pass")
	}
	if result, _ := limiter.Allow(context.Background(), "b:1", 1, now); result.Allowed {
		t.Fatal("expected second request in the same second to be blocked")
	}
	if result, _ := limiter.Allow(context.Background(), "b:1", 1, now.Add(time.Second)); !result.Allowed {
		t.Fatal("expected request in the next second to pass")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Unix(1_700_000_000, 0)

	if result, _ := limiter.Allow(context.Background(), "b:1", 1, now); !result.Allowed {
		t.Fatal("expected first business to pass")
	}
	if result, _ := limiter.Allow(context.Background(), "b:2", 1, now); !result.Allowed {
		t.Fatal("expected second business to have its own window")
	}
}

func TestKeyForDecision(t *testing.T) {
	if key := KeyForDecision(7, Decision{Limit: 5, Scope: ScopeBusiness}); key != "b:7" {
		t.Fatalf("unexpected key: %q", key)
	}
	if key := KeyForDecision(7, Decision{Limit: 0, Scope: ScopeBusiness}); key != "" {
		t.Fatalf("expected empty key for zero limit, got %q", key)
	}
	if key := KeyForDecision(0, Decision{Limit: 5, Scope: ScopeBusiness}); key != "" {
		t.Fatalf("expected empty key for zero business, got %q", key)
	}
}
