/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/require"
)

func TestViperAdapter_GetDuration(t *testing.T) {
	tests := []struct {
		name    string
		val     interface{}
		want    time.Duration
		wantErr bool
	}{
		{"string", "250ms", 250 * time.Millisecond, false},
		{"nanoseconds", 1000, time.Microsecond, false},
		{"unset", nil, 0, false},
		{"garbage", "soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			va := NewViperAdapter()
			if tt.val != nil {
				va.Set("timeout", tt.val)
			}
			got, err := va.GetDuration("timeout")
			if tt.wantErr {
				require.ErrorContains(t, err, "timeout: ")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestViperAdapter_GetBytesCount(t *testing.T) {
	tests := []struct {
		name    string
		val     interface{}
		want    BytesCount
		wantErr bool
	}{
		{"human-readable", "10M", 10 * 1024 * 1024, false},
		{"integer", 2048, 2048, false},
		{"negative", -1, 0, true},
		{"garbage", "lots", 0, true},
		{"unsupported", []int{1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			va := NewViperAdapter()
			va.Set("size", tt.val)
			got, err := va.GetBytesCount("size")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestViperAdapter_GetStringFromSet(t *testing.T) {
	va := NewViperAdapter()
	va.Set("policy", "LRU")

	got, err := va.GetStringFromSet("policy", []string{"lru", "fifo"}, true)
	require.NoError(t, err)
	require.Equal(t, "LRU", got)

	_, err = va.GetStringFromSet("policy", []string{"lru", "fifo"}, false)
	require.ErrorContains(t, err, `policy: unknown value "LRU"`)
}

func TestViperAdapter_UnmarshalKey(t *testing.T) {
	type entry struct {
		Limit int
		TTL   TimeDuration `mapstructure:"ttl"`
	}

	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(`
entries:
  a:
    limit: 3
    ttl: 5s
  b:
    limit: 7
`), DataTypeYAML))

	var got map[string]entry
	err := va.UnmarshalKey("entries", &got, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.TextUnmarshallerHookFunc()
	})
	require.NoError(t, err)
	require.Equal(t, map[string]entry{
		"a": {Limit: 3, TTL: TimeDuration(5 * time.Second)},
		"b": {Limit: 7},
	}, got)
}

func TestKeyPrefixedDataProvider(t *testing.T) {
	va := NewViperAdapter()
	kp := NewKeyPrefixedDataProvider(va, "outer")
	kp.SetDefault("enabled", true)
	kp.Set("count", 3)

	require.True(t, va.IsSet("outer.enabled"))
	require.True(t, kp.IsSet("count"))
	require.False(t, kp.IsSet("missing"))

	enabled, err := kp.GetBool("enabled")
	require.NoError(t, err)
	require.True(t, enabled)

	count, err := kp.GetInt("count")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	require.EqualError(t, kp.WrapKeyErr("count", errTest), "outer.count: test")
}
