/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/expirycache"
	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/log/logtest"
	"github.com/acronis/go-cachekit/service"
)

const testAppConfigYAML = `
log:
  level: debug
  format: text
cache:
  updateFrequency: 5s
  caches:
    sessions:
      maxSize: 100
      ejectionPolicy: fifo
      idleTimeout: 10m
    blobs:
      timeToLive: 1h
server:
  address: "127.0.0.1:0"
  timeouts:
    shutdown: 3s
  limits:
    maxBodySize: 1K
profserver:
  enabled: true
  address: "127.0.0.1:0"
`

func writeTestConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadAppConfig(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		cfg, err := loadAppConfig(writeTestConfig(t, testAppConfigYAML))
		require.NoError(t, err)
		require.Equal(t, log.LevelDebug, cfg.Log.Level)
		require.Equal(t, config.TimeDuration(5*time.Second), cfg.Cache.UpdateFrequency)
		require.Len(t, cfg.Cache.Caches, 2)
		require.Equal(t, 100, cfg.Cache.Caches["sessions"].MaxSize)
		require.Equal(t, "127.0.0.1:0", cfg.Server.Address)
		require.Equal(t, config.BytesCount(1024), cfg.Server.Limits.MaxBodySize)
	})

	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := loadAppConfig("")
		require.NoError(t, err)
		require.Equal(t, config.TimeDuration(expirycache.DefaultUpdateFrequency), cfg.Cache.UpdateFrequency)
		require.Empty(t, cfg.Cache.Caches)
		require.Equal(t, ":8080", cfg.Server.Address)
		require.False(t, cfg.Prof.Enabled)
	})

	t.Run("env vars override file", func(t *testing.T) {
		t.Setenv("CACHESRV_SERVER_ADDRESS", "127.0.0.1:18080")
		cfg, err := loadAppConfig(writeTestConfig(t, testAppConfigYAML))
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:18080", cfg.Server.Address)
	})

	t.Run("invalid cache config", func(t *testing.T) {
		_, err := loadAppConfig(writeTestConfig(t, "cache:\n  caches:\n    broken:\n      ejectionPolicy: random\n"))
		require.ErrorContains(t, err, "unknown ejection policy")
	})
}

func TestNewApp(t *testing.T) {
	cfg, err := loadAppConfig(writeTestConfig(t, testAppConfigYAML))
	require.NoError(t, err)

	a := newApp(cfg, logtest.NewLogger())
	defer func() { require.NoError(t, a.registry.Shutdown()) }()

	require.Equal(t, 2, a.registry.Len())
	require.True(t, a.registry.ActiveExpiry())
	require.Equal(t, 5*time.Second, a.registry.UpdateFrequency())
	require.NotNil(t, a.prof)
	require.Len(t, a.unit().(*service.CompositeUnit).Units, 3)

	sessions := a.caches["sessions"]
	require.NotNil(t, sessions)
	require.Equal(t, 100, sessions.MaxCacheSize())
	require.Equal(t, expirycache.EjectionPolicyFIFO, sessions.EjectionPolicy())
	require.Equal(t, 10*time.Minute, sessions.ExpiryIdleTime())
	require.Equal(t, expirycache.NoExpiry, sessions.ExpiryTimeToLive())

	blobs := a.caches["blobs"]
	require.NotNil(t, blobs)
	require.Equal(t, expirycache.Unbounded, blobs.MaxCacheSize())
	require.Equal(t, time.Hour, blobs.ExpiryTimeToLive())

	req := httptest.NewRequest(http.MethodPut, "/api/cache/v1/caches/blobs/entries/k", strings.NewReader("v"))
	resp := httptest.NewRecorder()
	a.server.HTTPServer.Handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
	val, ok := blobs.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), val)
}

func TestRun_InvalidFlags(t *testing.T) {
	require.Error(t, run([]string{"--unknown"}))
	require.ErrorContains(t, run([]string{"--config", filepath.Join(t.TempDir(), "missing.yml")}), "load configuration")
}
