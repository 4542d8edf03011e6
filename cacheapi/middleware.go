/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"

	"github.com/acronis/go-cachekit/log"
)

// HeaderRequestID is the header with the request ID. It's generated if the client doesn't send it.
const HeaderRequestID = "X-Request-ID"

const recoveryStackSize = 8192

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyLogger
)

// NewContextWithRequestID creates a new context with request id.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// GetRequestIDFromContext extracts request id from the context.
func GetRequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(ctxKeyRequestID).(string)
	return requestID
}

// NewContextWithLogger creates a new context with logger.
func NewContextWithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLoggerFromContext extracts logger from the context. A disabled logger is returned if there is none.
func GetLoggerFromContext(ctx context.Context) log.FieldLogger {
	if logger, ok := ctx.Value(ctxKeyLogger).(log.FieldLogger); ok {
		return logger
	}
	return log.NewDisabledLogger()
}

// RequestID reads X-Request-ID or generates a new one with xid and echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = xid.New().String()
		}
		rw.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(rw, r.WithContext(NewContextWithRequestID(r.Context(), reqID)))
	})
}

// RequestLogging puts a request-scoped logger into the context and logs every finished request.
func RequestLogging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			reqLogger := logger.With(
				log.String("request_id", GetRequestIDFromContext(r.Context())),
				log.String("method", r.Method),
				log.String("uri", r.RequestURI),
			)
			wrw := chimw.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r.WithContext(NewContextWithLogger(r.Context(), reqLogger)))

			status := wrw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqLogger.Info(fmt.Sprintf("response completed in %.3fs", time.Since(startTime).Seconds()),
				log.Int("status", status),
				log.Int("bytes_sent", wrw.BytesWritten()),
				log.DurationIn(time.Since(startTime), time.Millisecond),
			)
		})
	}
}

// recovery turns a panic into a 500 response with the error body.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			logger := GetLoggerFromContext(r.Context())
			if p == http.ErrAbortHandler {
				// Sentinel panic for aborting a handler, http.Server handles it without a stack trace.
				logger.Warn("request has been aborted", log.Error(http.ErrAbortHandler))
				panic(p)
			}
			stack := make([]byte, recoveryStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			logger.Error(fmt.Sprintf("Panic: %+v", p), log.Bytes("stack", stack))
			respondError(rw, http.StatusInternalServerError, NewError(ErrCodeInternalError, "Internal error."), logger)
		}()
		next.ServeHTTP(rw, r)
	})
}

// requestMetrics observes request durations labeled by chi route pattern.
func requestMetrics(collector *HTTPRequestMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			wrw := chimw.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r)

			routePattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				routePattern = rctx.RoutePattern()
			}
			status := wrw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			collector.Durations.WithLabelValues(r.Method, routePattern, strconv.Itoa(status)).
				Observe(time.Since(startTime).Seconds())
		})
	}
}
