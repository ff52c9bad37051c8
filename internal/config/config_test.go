package config

import (
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("STORE_DRIVER", "")
    t.Setenv("CLAIM_GRACE", "")

    cfg, err := FromEnv()
    require.NoError(t, err)
    assert.Equal(t, StoreMemory, cfg.StoreDriver)
    assert.Equal(t, 30*time.Second, cfg.ClaimGrace)
    assert.Equal(t, "logs/seating.log", cfg.AuditLogPath)
}

func TestFromEnv_MySQLNeedsDatabaseSettings(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("STORE_DRIVER", "MySQL")
    t.Setenv("DB_USER", "app")
    t.Setenv("DB_HOST", "")
    t.Setenv("DB_PORT", "")
    t.Setenv("DB_NAME", "seating")

    _, err := FromEnv()
    require.Error(t, err)
    assert.Contains(t, err.Error(), "DB_HOST")
    assert.Contains(t, err.Error(), "DB_PORT")

    t.Setenv("DB_HOST", "db")
    t.Setenv("DB_PORT", "3306")
    cfg, err := FromEnv()
    require.NoError(t, err)
    assert.Equal(t, StoreMySQL, cfg.StoreDriver)
}

func TestFromEnv_Rejections(t *testing.T) {
    tests := []struct {
        name string
        env  map[string]string
    }{
        {"missing secret", map[string]string{"JWT_SECRET": ""}},
        {"unknown driver", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "dynamo"}},
        {"bad port", map[string]string{"JWT_SECRET": "x", "APP_PORT": "http"}},
        {"negative grace", map[string]string{"JWT_SECRET": "x", "CLAIM_GRACE": "-5s"}},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            t.Setenv("STORE_DRIVER", "")
            t.Setenv("APP_PORT", "")
            t.Setenv("CLAIM_GRACE", "")
            for k, v := range tt.env {
                t.Setenv(k, v)
            }
            _, err := FromEnv()
            assert.Error(t, err)
        })
    }
}

func TestLoadRateLimitConfig_Burst(t *testing.T) {
    t.Setenv("RATE_LIMIT_BURST", "5")
    t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    rl := LoadRateLimitConfig()
    assert.Equal(t, 5, rl.Capacity)
    assert.Equal(t, 2*time.Second, rl.RefillInterval)
    assert.Equal(t, 10*time.Second, rl.TTL)
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
    t.Setenv("RATE_LIMIT_BURST", "")
    t.Setenv("RATE_LIMIT_REFILL_EVERY", "")
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "soon")
    t.Setenv("RATE_LIMIT_TTL", "")
    t.Setenv("RATE_LIMIT_KEY_STRATEGY", "by_moon_phase")
    t.Setenv("RATE_LIMIT_ENABLED", "Off")
    t.Setenv("RATE_LIMIT_DEBUG", " yes ")

    rl := LoadRateLimitConfig()
    assert.Equal(t, 1, rl.Capacity)
    assert.Equal(t, 1, rl.RefillTokens)
    assert.Equal(t, time.Second, rl.RefillInterval)
    assert.Equal(t, 10*time.Minute, rl.TTL)
    assert.Equal(t, KeyByOwnerRoute, rl.KeyStrategy)
    assert.False(t, rl.Enabled)
    assert.True(t, rl.Debug)

    t.Setenv("RATE_LIMIT_KEY_STRATEGY", "IP_Owner")
    assert.Equal(t, KeyByIPOwner, LoadRateLimitConfig().KeyStrategy)
}

func TestNewRedisClient(t *testing.T) {
    mr := miniredis.RunT(t)
    t.Setenv("REDIS_HOST", "")
    t.Setenv("REDIS_ADDR", mr.Addr())

    rdb, err := NewRedisClient(LoadRedisConfig())
    require.NoError(t, err)
    require.NoError(t, rdb.Close())

    mr.Close()
    _, err = NewRedisClient(LoadRedisConfig())
    assert.Error(t, err)
}
