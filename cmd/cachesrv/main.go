/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Command cachesrv runs a registry of expiring caches and exposes them over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/service"
)

const envVarsPrefix = "CACHESRV"

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("cachesrv", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to the YAML configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAppConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	a := newApp(cfg, logger)
	logger.Info("cache server is starting", log.Int("caches", len(a.caches)))
	return service.New(logger, a.unit()).Start()
}
