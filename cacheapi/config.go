/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapi

import (
	"fmt"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"github.com/acronis/go-cachekit/config"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyAddress            = "address"
	cfgKeyTimeoutsWrite      = "timeouts.write"
	cfgKeyTimeoutsRead       = "timeouts.read"
	cfgKeyTimeoutsReadHeader = "timeouts.readHeader"
	cfgKeyTimeoutsIdle       = "timeouts.idle"
	cfgKeyTimeoutsShutdown   = "timeouts.shutdown"
	cfgKeyLimitsMaxBodySize  = "limits.maxBodySize"
)

const (
	defaultAddress            = ":8080"
	defaultTimeoutsWrite      = time.Minute
	defaultTimeoutsRead       = time.Second * 15
	defaultTimeoutsReadHeader = time.Second * 10
	defaultTimeoutsIdle       = time.Minute
	defaultTimeoutsShutdown   = time.Second * 5
	defaultMaxBodySize        = 1024 * 1024
)

// Config represents a set of configuration parameters for the cache HTTP server.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Address  string         `mapstructure:"address" yaml:"address" json:"address"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits" json:"limits"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// TimeoutsConfig represents a set of configuration parameters for server timeouts.
type TimeoutsConfig struct {
	Write      config.TimeDuration `mapstructure:"write" yaml:"write" json:"write"`
	Read       config.TimeDuration `mapstructure:"read" yaml:"read" json:"read"`
	ReadHeader config.TimeDuration `mapstructure:"readHeader" yaml:"readHeader" json:"readHeader"`
	Idle       config.TimeDuration `mapstructure:"idle" yaml:"idle" json:"idle"`
	Shutdown   config.TimeDuration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// LimitsConfig represents a set of configuration parameters for request limits.
type LimitsConfig struct {
	// MaxBodySize is the max size of a cache entry value accepted by PUT requests.
	MaxBodySize config.BytesCount `mapstructure:"maxBodySize" yaml:"maxBodySize" json:"maxBodySize"`
}

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Address = defaultAddress
	cfg.Timeouts = TimeoutsConfig{
		Write:      config.TimeDuration(defaultTimeoutsWrite),
		Read:       config.TimeDuration(defaultTimeoutsRead),
		ReadHeader: config.TimeDuration(defaultTimeoutsReadHeader),
		Idle:       config.TimeDuration(defaultTimeoutsIdle),
		Shutdown:   config.TimeDuration(defaultTimeoutsShutdown),
	}
	cfg.Limits = LimitsConfig{MaxBodySize: defaultMaxBodySize}
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAddress, defaultAddress)
	dp.SetDefault(cfgKeyTimeoutsWrite, defaultTimeoutsWrite.String())
	dp.SetDefault(cfgKeyTimeoutsRead, defaultTimeoutsRead.String())
	dp.SetDefault(cfgKeyTimeoutsReadHeader, defaultTimeoutsReadHeader.String())
	dp.SetDefault(cfgKeyTimeoutsIdle, defaultTimeoutsIdle.String())
	dp.SetDefault(cfgKeyTimeoutsShutdown, defaultTimeoutsShutdown.String())
	dp.SetDefault(cfgKeyLimitsMaxBodySize, bytefmt.ByteSize(defaultMaxBodySize))
}

// Set sets configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}

	timeouts := []struct {
		key string
		dst *config.TimeDuration
	}{
		{cfgKeyTimeoutsWrite, &c.Timeouts.Write},
		{cfgKeyTimeoutsRead, &c.Timeouts.Read},
		{cfgKeyTimeoutsReadHeader, &c.Timeouts.ReadHeader},
		{cfgKeyTimeoutsIdle, &c.Timeouts.Idle},
		{cfgKeyTimeoutsShutdown, &c.Timeouts.Shutdown},
	}
	for _, t := range timeouts {
		var d time.Duration
		if d, err = dp.GetDuration(t.key); err != nil {
			return err
		}
		if d < 0 {
			return dp.WrapKeyErr(t.key, fmt.Errorf("cannot be negative"))
		}
		*t.dst = config.TimeDuration(d)
	}

	if c.Limits.MaxBodySize, err = dp.GetBytesCount(cfgKeyLimitsMaxBodySize); err != nil {
		return err
	}
	if c.Limits.MaxBodySize == 0 {
		return dp.WrapKeyErr(cfgKeyLimitsMaxBodySize, fmt.Errorf("must be positive"))
	}
	return nil
}
