package ratelimit

import (
	"encoding/json"
	"strconv"
	"strings"

	internalsettings "github.com/ordergrid/ordergrid/internal/settings"
)

// SettingsConfig captures rate limit settings stored in DB config.
type SettingsConfig struct {
	Limit         int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LoadSettingsConfig loads the current rate limit settings snapshot.
func LoadSettingsConfig() SettingsConfig {
	cfg := SettingsConfig{
		Limit:       internalsettings.DefaultRateLimit,
		RedisPrefix: internalsettings.DefaultRateLimitRedisPrefix,
	}
	if limit, ok := settingInt(internalsettings.RateLimitKey); ok {
		cfg.Limit = limit
	}
	if enabled, ok := settingBool(internalsettings.RateLimitRedisEnabledKey); ok {
		cfg.RedisEnabled = enabled
	}
	if addr, ok := settingString(internalsettings.RateLimitRedisAddrKey); ok {
		cfg.RedisAddr = addr
	}
	if password, ok := settingString(internalsettings.RateLimitRedisPasswordKey); ok {
		cfg.RedisPassword = password
	}
	if db, ok := settingInt(internalsettings.RateLimitRedisDBKey); ok {
		cfg.RedisDB = db
	}
	if prefix, ok := settingString(internalsettings.RateLimitRedisPrefixKey); ok && prefix != "" {
		cfg.RedisPrefix = prefix
	}
	return cfg
}

// DefaultSettingsLimit returns the configured per-business order limit.
func DefaultSettingsLimit() int {
	return LoadSettingsConfig().Limit
}

// settingBool reads a DB config value as a bool. String values such as
// "true", "1", "on", and "yes" are accepted alongside JSON booleans.
func settingBool(key string) (bool, bool) {
	raw, ok := internalsettings.DBConfigValue(key)
	if !ok {
		return false, false
	}
	var b bool
	if errBool := json.Unmarshal(raw, &b); errBool == nil {
		return b, true
	}
	s, okString := settingString(key)
	if !okString {
		return false, false
	}
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}

// settingString reads a DB config value as a trimmed string.
func settingString(key string) (string, bool) {
	raw, ok := internalsettings.DBConfigValue(key)
	if !ok {
		return "", false
	}
	var s string
	if errString := json.Unmarshal(raw, &s); errString != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// settingInt reads a DB config value as a non-negative int. Numeric
// strings are accepted for operators who store everything quoted.
func settingInt(key string) (int, bool) {
	raw, ok := internalsettings.DBConfigValue(key)
	if !ok {
		return 0, false
	}
	var n int
	if errInt := json.Unmarshal(raw, &n); errInt == nil {
		return n, n >= 0
	}
	s, okString := settingString(key)
	if !okString {
		return 0, false
	}
	n, errParse := strconv.Atoi(s)
	if errParse != nil {
		return 0, false
	}
	return n, n >= 0
}
