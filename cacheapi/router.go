/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-cachekit/expirycache"
	"github.com/acronis/go-cachekit/log"
)

// APIPrefix is a prefix of all cache API routes.
const APIPrefix = "/api/cache/v1"

const contentTypeOctetStream = "application/octet-stream"

// Caches is a set of caches exposed by the API, by name.
type Caches map[string]*expirycache.Cache[string, []byte]

// RouterOpts represents options for creating chi.Router.
type RouterOpts struct {
	Caches Caches
	// MaxBodySize limits the size of a value accepted by PUT. Zero means defaultMaxBodySize.
	MaxBodySize uint64
	// MetricsHandler serves /metrics. promhttp.Handler() is used if nil.
	MetricsHandler http.Handler
	// RequestMetrics are observed for every request if not nil.
	RequestMetrics *HTTPRequestMetrics
}

// CacheInfo describes a single cache in the list response.
type CacheInfo struct {
	Name           string `json:"name"`
	ID             string `json:"id"`
	Size           int    `json:"size"`
	MaxSize        int    `json:"maxSize"`
	EjectionPolicy string `json:"ejectionPolicy"`
}

// CacheListResponse is a body of the cache list response.
type CacheListResponse struct {
	Caches []CacheInfo `json:"caches"`
}

// HealthCheckResponse is a body of the health-check response.
type HealthCheckResponse struct {
	Status string `json:"status"`
}

// NewRouter creates a new chi.Router with the health-check, metrics and cache API routes.
func NewRouter(logger log.FieldLogger, opts RouterOpts) chi.Router {
	maxBodySize := opts.MaxBodySize
	if maxBodySize == 0 {
		maxBodySize = defaultMaxBodySize
	}
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	h := &cacheHandler{caches: opts.Caches, maxBodySize: int64(maxBodySize)}

	router := chi.NewRouter()
	router.Use(RequestID, RequestLogging(logger), recovery)

	router.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		respondJSON(rw, http.StatusOK, HealthCheckResponse{Status: "ok"}, GetLoggerFromContext(r.Context()))
	})
	router.Handle("/metrics", metricsHandler)

	router.Route(APIPrefix, func(r chi.Router) {
		if opts.RequestMetrics != nil {
			r.Use(requestMetrics(opts.RequestMetrics))
		}
		r.Get("/caches", h.listCaches)
		r.Get("/caches/{cache}/entries/{key}", h.getEntry)
		r.Put("/caches/{cache}/entries/{key}", h.putEntry)
		r.Delete("/caches/{cache}/entries/{key}", h.deleteEntry)
	})

	return router
}

type cacheHandler struct {
	caches      Caches
	maxBodySize int64
}

func (h *cacheHandler) listCaches(rw http.ResponseWriter, r *http.Request) {
	resp := CacheListResponse{Caches: make([]CacheInfo, 0, len(h.caches))}
	for name, c := range h.caches {
		resp.Caches = append(resp.Caches, CacheInfo{
			Name:           name,
			ID:             c.ID(),
			Size:           c.Len(),
			MaxSize:        c.MaxCacheSize(),
			EjectionPolicy: c.EjectionPolicy().String(),
		})
	}
	sort.Slice(resp.Caches, func(i, j int) bool { return resp.Caches[i].Name < resp.Caches[j].Name })
	respondJSON(rw, http.StatusOK, resp, GetLoggerFromContext(r.Context()))
}

func (h *cacheHandler) getEntry(rw http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromContext(r.Context())
	c, ok := h.lookupCache(rw, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	val, found := c.Get(key)
	if !found {
		respondError(rw, http.StatusNotFound, NewError(ErrCodeEntryNotFound, fmt.Sprintf("Entry %q is not found.", key)), logger)
		return
	}
	rw.Header().Set("Content-Type", contentTypeOctetStream)
	rw.WriteHeader(http.StatusOK)
	if _, err := rw.Write(val); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

func (h *cacheHandler) putEntry(rw http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromContext(r.Context())
	c, ok := h.lookupCache(rw, r)
	if !ok {
		return
	}
	val, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, h.maxBodySize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(rw, http.StatusRequestEntityTooLarge, NewError(ErrCodeRequestEntityTooLarge,
				fmt.Sprintf("Request body is larger than %d bytes.", maxBytesErr.Limit)), logger)
			return
		}
		logger.Error("error while reading request body", log.Error(err))
		respondError(rw, http.StatusInternalServerError, NewError(ErrCodeInternalError, "Internal error."), logger)
		return
	}
	c.InsertElement(chi.URLParam(r, "key"), val)
	rw.WriteHeader(http.StatusNoContent)
}

func (h *cacheHandler) deleteEntry(rw http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupCache(rw, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if !c.Remove(key) {
		respondError(rw, http.StatusNotFound, NewError(ErrCodeEntryNotFound, fmt.Sprintf("Entry %q is not found.", key)),
			GetLoggerFromContext(r.Context()))
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *cacheHandler) lookupCache(rw http.ResponseWriter, r *http.Request) (*expirycache.Cache[string, []byte], bool) {
	name := chi.URLParam(r, "cache")
	c, ok := h.caches[name]
	if !ok {
		respondError(rw, http.StatusNotFound, NewError(ErrCodeCacheNotFound, fmt.Sprintf("Cache %q is not found.", name)),
			GetLoggerFromContext(r.Context()))
		return nil, false
	}
	return c, true
}
