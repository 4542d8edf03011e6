/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package expirycache

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/acronis/go-cachekit/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyUpdateFrequency = "updateFrequency"
	cfgKeyCaches          = "caches"
)

// Config represents a set of configuration parameters for the Registry and the caches created in it.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// UpdateFrequency is an interval between two wake-ups of the Registry's sweeper.
	UpdateFrequency config.TimeDuration `mapstructure:"updateFrequency" yaml:"updateFrequency" json:"updateFrequency"`

	// Caches contains per-cache settings by cache name.
	// Keep in mind that viper treats keys case-insensitively, so names are lower-cased when loaded by config.Loader.
	Caches map[string]CacheConfig `mapstructure:"caches" yaml:"caches" json:"caches"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// CacheConfig represents settings of a single cache.
// Zero values mean "no limit": TimeToLive and IdleTimeout 0 disable expiry,
// UpdateFrequency 0 keeps DefaultCacheUpdateFrequency.
//
// MaxSize 0 (or Unbounded) is an unbounded cache. Note that this differs from WithMaxCacheSize(0)
// and SetMaxCacheSize(0), where 0 is a real limit and InsertElement keeps the cache empty.
// A config file has no way to express such a limit.
type CacheConfig struct {
	MaxSize         int                 `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	EjectionPolicy  string              `mapstructure:"ejectionPolicy" yaml:"ejectionPolicy" json:"ejectionPolicy"`
	TimeToLive      config.TimeDuration `mapstructure:"timeToLive" yaml:"timeToLive" json:"timeToLive"`
	IdleTimeout     config.TimeDuration `mapstructure:"idleTimeout" yaml:"idleTimeout" json:"idleTimeout"`
	UpdateFrequency config.TimeDuration `mapstructure:"updateFrequency" yaml:"updateFrequency" json:"updateFrequency"`
}

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
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
	cfg.UpdateFrequency = config.TimeDuration(DefaultUpdateFrequency)
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
	dp.SetDefault(cfgKeyUpdateFrequency, DefaultUpdateFrequency.String())
}

// Set sets configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	updateFreq, err := dp.GetDuration(cfgKeyUpdateFrequency)
	if err != nil {
		return err
	}
	if updateFreq <= 0 {
		return dp.WrapKeyErr(cfgKeyUpdateFrequency, fmt.Errorf("must be positive"))
	}
	c.UpdateFrequency = config.TimeDuration(updateFreq)

	var caches map[string]CacheConfig
	if err = dp.UnmarshalKey(cfgKeyCaches, &caches, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}); err != nil {
		return err
	}
	for name, cacheCfg := range caches {
		if err = cacheCfg.Validate(); err != nil {
			return dp.WrapKeyErr(cfgKeyCaches+"."+name, err)
		}
	}
	c.Caches = caches
	return nil
}

// Validate checks that the cache settings are consistent.
func (cc CacheConfig) Validate() error {
	if cc.MaxSize < Unbounded {
		return fmt.Errorf("maxSize should be >= %d", Unbounded)
	}
	if cc.EjectionPolicy != "" {
		if _, err := ParseEjectionPolicy(cc.EjectionPolicy); err != nil {
			return err
		}
	}
	return nil
}

// WithCacheConfig returns a CacheOption that applies settings from CacheConfig.
// It overrides the options that precede it.
func WithCacheConfig(cc CacheConfig) CacheOption {
	return func(o *cacheOptions) {
		o.maxSize = Unbounded
		if cc.MaxSize > 0 {
			o.maxSize = cc.MaxSize
		}
		o.ejectionPolicy = EjectionPolicyLRU
		if policy, err := ParseEjectionPolicy(cc.EjectionPolicy); err == nil {
			o.ejectionPolicy = policy
		}
		o.timeToLive = durationOrNoExpiry(cc.TimeToLive)
		o.idleTimeout = durationOrNoExpiry(cc.IdleTimeout)
		o.updateFrequency = DefaultCacheUpdateFrequency
		if cc.UpdateFrequency > 0 {
			o.updateFrequency = time.Duration(cc.UpdateFrequency)
		}
	}
}

func durationOrNoExpiry(d config.TimeDuration) time.Duration {
	if d <= 0 {
		return NoExpiry
	}
	return time.Duration(d)
}
