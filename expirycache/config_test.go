/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package expirycache

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-cachekit/config"
)

const testCacheConfigYAML = `
cache:
  updateFrequency: 10s
  caches:
    sessions:
      maxSize: 1000
      ejectionPolicy: FIFO
      timeToLive: 30m
      idleTimeout: 5m
    tokens:
      idleTimeout: 1h
      updateFrequency: 15s
`

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), config.DataTypeJSON, cfg)
		require.NoError(t, err)
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("yaml", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(testCacheConfigYAML), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, config.TimeDuration(10*time.Second), cfg.UpdateFrequency)
		require.Equal(t, map[string]CacheConfig{
			"sessions": {
				MaxSize:        1000,
				EjectionPolicy: "FIFO",
				TimeToLive:     config.TimeDuration(30 * time.Minute),
				IdleTimeout:    config.TimeDuration(5 * time.Minute),
			},
			"tokens": {
				IdleTimeout:     config.TimeDuration(time.Hour),
				UpdateFrequency: config.TimeDuration(15 * time.Second),
			},
		}, cfg.Caches)
	})

	t.Run("custom key prefix", func(t *testing.T) {
		cfg := NewConfig(WithKeyPrefix("storage.cache"))
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"storage":{"cache":{"updateFrequency":"1m"}}}`), config.DataTypeJSON, cfg)
		require.NoError(t, err)
		require.Equal(t, config.TimeDuration(time.Minute), cfg.UpdateFrequency)
		require.Equal(t, "storage.cache", cfg.KeyPrefix())
	})

	t.Run("direct yaml unmarshal", func(t *testing.T) {
		var cfg Config
		err := yaml.Unmarshal([]byte("updateFrequency: 45s\ncaches:\n  users:\n    maxSize: 5\n    timeToLive: 2s\n"), &cfg)
		require.NoError(t, err)
		require.Equal(t, config.TimeDuration(45*time.Second), cfg.UpdateFrequency)
		require.Equal(t, CacheConfig{MaxSize: 5, TimeToLive: config.TimeDuration(2 * time.Second)}, cfg.Caches["users"])
	})
}

func TestConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfgData string
		errMsg  string
	}{
		{"zero update frequency", `{"cache":{"updateFrequency":"0s"}}`, "cache.updateFrequency: must be positive"},
		{"invalid update frequency", `{"cache":{"updateFrequency":"often"}}`, "cache.updateFrequency: "},
		{"negative max size", `{"cache":{"caches":{"bad":{"maxSize":-2}}}}`, "cache.caches.bad: maxSize should be >= -1"},
		{"unknown policy", `{"cache":{"caches":{"bad":{"ejectionPolicy":"random"}}}}`, `cache.caches.bad: unknown ejection policy "random"`},
		{"negative time-to-live", `{"cache":{"caches":{"bad":{"timeToLive":"-1s"}}}}`, "negative value is not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.cfgData), config.DataTypeJSON, NewConfig())
			require.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestWithCacheConfig(t *testing.T) {
	r := newTestRegistry(t, nil, RegistryOpts{})

	t.Run("zero values", func(t *testing.T) {
		cache := CreateCache[string, int](r, WithMaxCacheSize(3), WithCacheConfig(CacheConfig{}))
		require.Equal(t, Unbounded, cache.MaxCacheSize())
		require.Equal(t, EjectionPolicyLRU, cache.EjectionPolicy())
		require.Equal(t, NoExpiry, cache.ExpiryTimeToLive())
		require.Equal(t, NoExpiry, cache.ExpiryIdleTime())
		require.Equal(t, DefaultCacheUpdateFrequency, cache.UpdateFrequency())
		require.False(t, cache.ExpiryActive())

		// Zero in config is not a zero limit.
		for i := 0; i < 10; i++ {
			cache.InsertElement(strconv.Itoa(i), i)
		}
		require.Equal(t, 10, cache.Len())
	})

	t.Run("explicit unbounded", func(t *testing.T) {
		cc := CacheConfig{MaxSize: Unbounded}
		require.NoError(t, cc.Validate())
		cache := CreateCache[string, int](r, WithCacheConfig(cc))
		require.Equal(t, Unbounded, cache.MaxCacheSize())
	})

	t.Run("all values", func(t *testing.T) {
		cache := CreateCache[string, int](r, WithName("sessions"), WithCacheConfig(CacheConfig{
			MaxSize:         100,
			EjectionPolicy:  "fifo",
			TimeToLive:      config.TimeDuration(time.Hour),
			IdleTimeout:     config.TimeDuration(time.Minute),
			UpdateFrequency: config.TimeDuration(time.Second),
		}))
		require.Equal(t, "sessions", cache.Name())
		require.Equal(t, 100, cache.MaxCacheSize())
		require.Equal(t, EjectionPolicyFIFO, cache.EjectionPolicy())
		require.Equal(t, time.Hour, cache.ExpiryTimeToLive())
		require.Equal(t, time.Minute, cache.ExpiryIdleTime())
		require.Equal(t, time.Second, cache.UpdateFrequency())
		require.True(t, r.ActiveExpiry())
	})
}
