/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/service"
)

// Opts represents options for creating Server.
type Opts struct {
	// Listener is a pre-configured listener to use instead of listening on Config.Address.
	Listener net.Listener
	// MetricsHandler serves /metrics. promhttp.Handler() is used if nil.
	MetricsHandler http.Handler
	// MetricsNamespace is a namespace of the HTTP request metrics.
	MetricsNamespace string
}

// Server is the HTTP server of the cache API.
// It implements service.Unit and service.MetricsRegisterer interfaces.
type Server struct {
	HTTPServer      *http.Server
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener       net.Listener
	httpServerDone atomic.Value
	requestMetrics *HTTPRequestMetrics
}

var _ service.Unit = (*Server)(nil)
var _ service.MetricsRegisterer = (*Server)(nil)

// NewServer creates a new Server that exposes caches over HTTP.
func NewServer(cfg *Config, logger log.FieldLogger, caches Caches, opts Opts) *Server {
	requestMetrics := NewHTTPRequestMetrics(HTTPRequestMetricsOpts{Namespace: opts.MetricsNamespace})
	router := NewRouter(logger, RouterOpts{
		Caches:         caches,
		MaxBodySize:    uint64(cfg.Limits.MaxBodySize),
		MetricsHandler: opts.MetricsHandler,
		RequestMetrics: requestMetrics,
	})
	return &Server{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			WriteTimeout:      time.Duration(cfg.Timeouts.Write),
			ReadTimeout:       time.Duration(cfg.Timeouts.Read),
			ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeader),
			IdleTimeout:       time.Duration(cfg.Timeouts.Idle),
			Handler:           router,
		},
		Logger:          logger,
		ShutdownTimeout: time.Duration(cfg.Timeouts.Shutdown),
		listener:        opts.Listener,
		requestMetrics:  requestMetrics,
	}
}

// Start starts the server in a blocking way.
// It's supposed that this method will be called in a separate goroutine.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *Server) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.httpServerDone.Store(done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("idle_timeout", s.HTTPServer.IdleTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	logger.Info("starting cache API HTTP server...")

	var err error
	if s.listener == nil {
		if s.listener, err = net.Listen("tcp", s.HTTPServer.Addr); err != nil {
			logger.Error("cache API HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
	}

	if err = s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("cache API HTTP server closed")
			return
		}
		logger.Error("cache API HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops the server (gracefully or not).
func (s *Server) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing cache API HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("cache API HTTP server closing error", log.Error(err))
			return err
		}
		s.waitDone()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down cache API HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("cache API HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("cache API HTTP server shut down")
	s.waitDone()
	return nil
}

func (s *Server) waitDone() {
	if done, ok := s.httpServerDone.Load().(chan struct{}); ok && done != nil {
		<-done
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (s *Server) MustRegisterMetrics() {
	s.requestMetrics.MustRegister()
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (s *Server) UnregisterMetrics() {
	s.requestMetrics.Unregister()
}
