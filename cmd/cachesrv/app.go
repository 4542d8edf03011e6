/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"time"

	"github.com/acronis/go-cachekit/cacheapi"
	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/expirycache"
	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/profserver"
	"github.com/acronis/go-cachekit/service"
)

type appConfig struct {
	Log    *log.Config
	Cache  *expirycache.Config
	Server *cacheapi.Config
	Prof   *profserver.Config
}

func newAppConfig() *appConfig {
	return &appConfig{
		Log:    log.NewConfig(),
		Cache:  expirycache.NewConfig(),
		Server: cacheapi.NewConfig(),
		Prof:   profserver.NewConfig(),
	}
}

// loadAppConfig reads the YAML or JSON file at path. Only defaults and env vars are used if path is empty.
func loadAppConfig(path string) (*appConfig, error) {
	cfg := newAppConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)
	if path == "" {
		return cfg, loader.LoadDefaults(cfg.Log, cfg.Cache, cfg.Server, cfg.Prof)
	}
	return cfg, loader.LoadFromFile(path, "", cfg.Log, cfg.Cache, cfg.Server, cfg.Prof)
}

type app struct {
	registry *expirycache.Registry
	caches   cacheapi.Caches
	server   *cacheapi.Server
	prof     *profserver.ProfServer
}

func newApp(cfg *appConfig, logger log.FieldLogger) *app {
	registry := expirycache.NewRegistryWithOpts(logger, expirycache.RegistryOpts{
		UpdateFrequency:     time.Duration(cfg.Cache.UpdateFrequency),
		Metrics:             expirycache.NewPrometheusMetrics(),
		GracefulStopTimeout: time.Duration(cfg.Server.Timeouts.Shutdown),
	})

	caches := make(cacheapi.Caches, len(cfg.Cache.Caches))
	for name, cacheCfg := range cfg.Cache.Caches {
		caches[name] = expirycache.CreateCache[string, []byte](registry,
			expirycache.WithName(name), expirycache.WithCacheConfig(cacheCfg))
	}

	a := &app{
		registry: registry,
		caches:   caches,
		server:   cacheapi.NewServer(cfg.Server, logger, caches, cacheapi.Opts{}),
	}
	if cfg.Prof.Enabled {
		a.prof = profserver.New(cfg.Prof, logger)
	}
	return a
}

// unit returns the server, the registry and the optional profiling server combined into a single service unit.
func (a *app) unit() service.Unit {
	units := []service.Unit{a.server, a.registry}
	if a.prof != nil {
		units = append(units, a.prof)
	}
	return service.NewCompositeUnit(units...)
}
