/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/log"
)

func TestRecorder(t *testing.T) {
	recorder := NewRecorder()
	recorder.Warn("cache evicted", log.Int("count", 10), log.String("cache", "sessions"))
	recorder.With(log.String("component", "sweeper")).Info("sweep done")
	recorder.WithLevel(log.LevelWarn).Debug("dropped")

	require.Len(t, recorder.Entries(), 2)

	_, found := recorder.FindEntry("dropped")
	require.False(t, found)

	entry, found := recorder.FindEntry("cache evicted")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)

	countField, found := entry.FindField("count")
	require.True(t, found)
	require.Equal(t, 10, int(countField.Int))

	cacheField, found := entry.FindField("cache")
	require.True(t, found)
	require.Equal(t, "sessions", string(cacheField.Bytes))

	entry, found = recorder.FindEntry("sweep done")
	require.True(t, found)
	_, found = entry.FindField("component")
	require.True(t, found)

	infos := recorder.FindAllEntriesByFilter(func(e RecordedEntry) bool { return e.Level == log.LevelInfo })
	require.Len(t, infos, 1)

	recorder.Reset()
	require.Empty(t, recorder.Entries())
}

func TestNewLoggerWithOpts(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOpts(LoggerOpts{Output: &buf})
	logger.Debugf("expired %d entries", 3)
	require.Contains(t, buf.String(), `"msg":"expired 3 entries"`)
	require.Contains(t, buf.String(), `"level":"debug"`)
}
