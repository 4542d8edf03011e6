/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/cacheapi"
	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/log/logtest"
	"github.com/acronis/go-cachekit/testutil"
)

func TestProfServer_Start(t *testing.T) {
	addr := testutil.GetLocalAddrWithFreeTCPPort()

	logs := logtest.NewRecorder()
	profServer := New(&Config{Address: addr}, logs)
	fatalErr := make(chan error, 1)
	go profServer.Start(fatalErr)
	require.NoError(t, testutil.WaitListeningServer(addr, time.Second*3))

	resp, err := http.Get(profServer.URL + "/debug/pprof/")
	require.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, respBody)
	require.NotEmpty(t, resp.Header.Get(cacheapi.HeaderRequestID))

	require.NoError(t, profServer.Stop(false))
	testutil.RequireNoErrorInChannel(t, fatalErr)

	_, found := logs.FindEntry("profiling HTTP server closed")
	require.True(t, found)
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), config.DataTypeJSON, cfg)
		require.NoError(t, err)
		require.False(t, cfg.Enabled)
		require.Equal(t, defaultAddress, cfg.Address)
	})

	t.Run("yaml", func(t *testing.T) {
		cfgData := "profserver:\n  enabled: true\n  address: \"127.0.0.1:6060\"\n"
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.True(t, cfg.Enabled)
		require.Equal(t, "127.0.0.1:6060", cfg.Address)
	})

	t.Run("custom key prefix", func(t *testing.T) {
		cfg := NewConfigWithKeyPrefix("debug.pprof")
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"debug":{"pprof":{"enabled":true}}}`), config.DataTypeJSON, cfg)
		require.NoError(t, err)
		require.True(t, cfg.Enabled)
		require.Equal(t, defaultAddress, cfg.Address)
	})

	t.Run("invalid enabled", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"profserver":{"enabled":"sometimes"}}`), config.DataTypeJSON, cfg)
		require.ErrorContains(t, err, "profserver.enabled")
	})
}
