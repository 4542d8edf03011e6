/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DataType is a format of configuration data.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// DataTypeFromPath returns the format of a configuration file by its extension (.yml, .yaml or .json).
func DataTypeFromPath(path string) (DataType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return DataTypeYAML, nil
	case ".json":
		return DataTypeJSON, nil
	}
	return "", fmt.Errorf("unsupported configuration file extension %q, should be one of [.yml .yaml .json]", filepath.Ext(path))
}

// DataProvider is a source of configuration values. Keys are dot-separated paths
// (e.g. "cache.caches", "server.timeouts.shutdown").
//
// Typed getters return an error that already contains the key when the value cannot be converted.
// A missing value is not an error, the zero value is returned instead.
type DataProvider interface {
	// UseEnvVars makes env vars <PREFIX>_<KEY> (dots replaced with underscores) override other sources.
	UseEnvVars(prefix string)

	Set(key string, value interface{})
	SetDefault(key string, value interface{})
	SetFromFile(path string, dataType DataType) error
	SetFromReader(reader io.Reader, dataType DataType) error

	IsSet(key string) bool
	Get(key string) interface{}
	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetString(key string) (string, error)
	// GetStringFromSet returns an error if the value is not one of set.
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetDuration(key string) (time.Duration, error)
	// GetBytesCount accepts both integers and human-readable sizes ("64K", "1M").
	GetBytesCount(key string) (BytesCount, error)

	// UnmarshalKey decodes a whole subtree (e.g. a map of per-cache settings) into rawVal.
	UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error

	// WrapKeyErr adds the full key (with any prefix) to err.
	WrapKeyErr(key string, err error) error
}

// DecoderConfigOption tunes mapstructure decoding in UnmarshalKey (e.g. adds decode hooks).
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// WrapKeyErrIfNeeded is WrapKeyErr that keeps nil as nil.
func WrapKeyErrIfNeeded(key string, err error) error {
	if err == nil {
		return nil
	}
	return WrapKeyErr(key, err)
}

// WrapKeyErr returns "<key>: <err>" wrapping err.
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
