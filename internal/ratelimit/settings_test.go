package ratelimit

import (
	"encoding/json"
	"testing"

	internalsettings "github.com/ordergrid/ordergrid/internal/settings"
)

func TestLoadSettingsConfig_Defaults(t *testing.T) {
	internalsettings.ReplaceDBConfig(nil)
	t.Cleanup(func() { internalsettings.ReplaceDBConfig(nil) })

	cfg := LoadSettingsConfig()
	if cfg.Limit != internalsettings.DefaultRateLimit {
		t.Fatalf("expected default limit %d, got %d", internalsettings.DefaultRateLimit, cfg.Limit)
	}
	if cfg.RedisEnabled {
		t.Fatal("expected redis disabled by default")
	}
	if cfg.RedisPrefix != internalsettings.DefaultRateLimitRedisPrefix {
		t.Fatalf("expected default prefix, got %q", cfg.RedisPrefix)
	}
}

func TestLoadSettingsConfig_ReadsSnapshot(t *testing.T) {
	internalsettings.ReplaceDBConfig(map[string]json.RawMessage{
		internalsettings.RateLimitKey:              json.RawMessage(`"25"`),
		internalsettings.RateLimitRedisEnabledKey:  json.RawMessage(`"yes"`),
		internalsettings.RateLimitRedisAddrKey:     json.RawMessage(`" 127.0.0.1:6379 "`),
		internalsettings.RateLimitRedisPasswordKey: json.RawMessage(`"s3cret"`),
		internalsettings.RateLimitRedisDBKey:       json.RawMessage(`3`),
		internalsettings.RateLimitRedisPrefixKey:   json.RawMessage(`"orders-prod"`),
	})
	t.Cleanup(func() { internalsettings.ReplaceDBConfig(nil) })

	cfg := LoadSettingsConfig()
	if cfg.Limit != 25 {
		t.Fatalf("expected limit 25, got %d", cfg.Limit)
	}
	if !cfg.RedisEnabled {
		t.Fatal("expected redis enabled")
	}
	if cfg.RedisAddr != "127.0.0.1:6379" {
		t.Fatalf("expected trimmed addr, got %q", cfg.RedisAddr)
	}
	if cfg.RedisPassword != "s3cret" || cfg.RedisDB != 3 || cfg.RedisPrefix != "orders-prod" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadSettingsConfig_IgnoresInvalidValues(t *testing.T) {
	internalsettings.ReplaceDBConfig(map[string]json.RawMessage{
		internalsettings.RateLimitKey:             json.RawMessage(`-5`),
		internalsettings.RateLimitRedisEnabledKey: json.RawMessage(`"maybe"`),
		internalsettings.RateLimitRedisPrefixKey:  json.RawMessage(`""`),
	})
	t.Cleanup(func() { internalsettings.ReplaceDBConfig(nil) })

	cfg := LoadSettingsConfig()
	if cfg.Limit != internalsettings.DefaultRateLimit {
		t.Fatalf("expected negative limit ignored, got %d", cfg.Limit)
	}
	if cfg.RedisEnabled {
		t.Fatal("expected unparseable flag to stay disabled")
	}
	if cfg.RedisPrefix != internalsettings.DefaultRateLimitRedisPrefix {
		t.Fatalf("expected empty prefix to fall back, got %q", cfg.RedisPrefix)
	}
}
