package config

import (
    "strings"
    "time"
)

// Bucket key strategies understood by the rate limiter.
const (
    KeyByIP           = "ip"
    KeyByOwner        = "owner"
    KeyByRoute        = "route"
    KeyByIPOwner      = "ip_owner"
    KeyByOwnerRoute   = "owner_route"
    KeyByIPOwnerRoute = "ip_owner_route"
)

// RateLimitConfig drives the redis token bucket in front of the chart API.
// Every RefillInterval the bucket regains RefillTokens, up to Capacity.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST
// overrides the capacity and RATE_LIMIT_REFILL_EVERY switches the bucket to
// one token per interval.
func LoadRateLimitConfig() RateLimitConfig {
    rl := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", KeyByOwnerRoute),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
        rl.Capacity = burst
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        rl.RefillTokens, rl.RefillInterval = 1, every
    }
    rl.normalize()
    return rl
}

// normalize clamps the bucket to usable values.  An idle bucket must
// outlive a few refill intervals or it would reset to full too early.
func (rl *RateLimitConfig) normalize() {
    rl.Capacity = max(rl.Capacity, 1)
    rl.RefillTokens = max(rl.RefillTokens, 1)
    if rl.RefillInterval <= 0 {
        rl.RefillInterval = time.Second
    }
    rl.TTL = max(rl.TTL, 5*rl.RefillInterval)

    rl.KeyStrategy = strings.ToLower(rl.KeyStrategy)
    switch rl.KeyStrategy {
    case KeyByIP, KeyByOwner, KeyByRoute, KeyByIPOwner, KeyByOwnerRoute, KeyByIPOwnerRoute:
    default:
        rl.KeyStrategy = KeyByOwnerRoute
    }
}
