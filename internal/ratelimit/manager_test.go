package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestManager_UsesInProcessLimiterWhenRedisDisabled(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	manager := NewManager(
		func() SettingsConfig { return SettingsConfig{Limit: 1} },
		func() time.Time { return now },
		nil,
	)

	if result, errAllow := manager.Allow(context.Background(), "b:1", 1); errAllow != nil || !result.Allowed {
		t.Fatalf("expected first placement to pass, got %+v err=%v", result, errAllow)
	}
	if result, errAllow := manager.Allow(context.Background(), "b:1", 1); errAllow != nil || result.Allowed {
		t.Fatalf("expected second placement in the same second to be blocked, got %+v err=%v", result, errAllow)
	}
}

func TestManager_ZeroLimitAllows(t *testing.T) {
	manager := NewManager(func() SettingsConfig { return SettingsConfig{} }, nil, nil)
	result, errAllow := manager.Allow(context.Background(), "b:1", 0)
	if errAllow != nil || !result.Allowed {
		t.Fatalf("expected zero limit to allow, got %+v err=%v", result, errAllow)
	}
}
