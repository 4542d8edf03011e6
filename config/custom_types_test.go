/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var errTest = errors.New("test")

func TestTimeDuration_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		jsonVal string
		yamlVal string
		want    TimeDuration
		wantErr bool
	}{
		{"nanoseconds", `1000000`, "1000000", TimeDuration(time.Millisecond), false},
		{"human-readable", `"4500ms"`, "4500ms", TimeDuration(4500 * time.Millisecond), false},
		{"zero", `"0s"`, "0s", 0, false},
		{"negative integer", `-1`, "-1", 0, true},
		{"negative string", `"-3s"`, "-3s", 0, true},
		{"garbage", `"later"`, "later", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromJSON TimeDuration
			jsonErr := json.Unmarshal([]byte(tt.jsonVal), &fromJSON)

			var fromYAML struct{ D TimeDuration }
			yamlErr := yaml.Unmarshal([]byte("d: "+tt.yamlVal), &fromYAML)

			if tt.wantErr {
				require.Error(t, jsonErr)
				require.Error(t, yamlErr)
				return
			}
			require.NoError(t, jsonErr)
			require.NoError(t, yamlErr)
			require.Equal(t, tt.want, fromJSON)
			require.Equal(t, tt.want, fromYAML.D)
		})
	}
}

func TestTimeDuration_Marshal(t *testing.T) {
	d := TimeDuration(90 * time.Second)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, `"1m30s"`, string(data))

	data, err = yaml.Marshal(d)
	require.NoError(t, err)
	require.Equal(t, "1m30s\n", string(data))

	data, err = d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1m30s", string(data))
}

func TestBytesCount_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    BytesCount
		wantErr bool
	}{
		{"integer", "4096", 4096, false},
		{"human-readable", "20M", 20 * 1024 * 1024, false},
		{"negative", "-1024", 0, true},
		{"garbage", "many", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromText BytesCount
			textErr := fromText.UnmarshalText([]byte(tt.input))

			var fromYAML struct{ Size BytesCount }
			yamlErr := yaml.Unmarshal([]byte("size: "+tt.input), &fromYAML)

			if tt.wantErr {
				require.Error(t, textErr)
				require.Error(t, yamlErr)
				return
			}
			require.NoError(t, textErr)
			require.NoError(t, yamlErr)
			require.Equal(t, tt.want, fromText)
			require.Equal(t, tt.want, fromYAML.Size)
		})
	}
}

func TestBytesCount_Marshal(t *testing.T) {
	b := BytesCount(3 * 1024 * 1024)
	require.Equal(t, "3M", b.String())

	data, err := json.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, `"3M"`, string(data))
}
