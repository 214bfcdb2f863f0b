package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/prompt-general/cscx/internal/cache"
	"github.com/prompt-general/cscx/internal/config"
	"github.com/prompt-general/cscx/internal/expansion"
	"github.com/prompt-general/cscx/pkg/models"
)

// OpportunityService is the read surface of the expansion engine
type OpportunityService interface {
	FindOpportunities(ctx context.Context, filters expansion.PortfolioFilters) (*expansion.PortfolioResult, error)
	GetCustomerOpportunity(ctx context.Context, customerID string) (*models.ExpansionOpportunity, error)
}

// CacheStatter reports read-through cache counters
type CacheStatter interface {
	Stats() cache.Stats
}

// Gateway represents the API gateway
type Gateway struct {
	server  *http.Server
	router  *mux.Router
	service OpportunityService
	health  http.Handler
	cache   CacheStatter
	config  config.APIConfig
	metrics *GatewayMetrics
	logger  *zap.Logger
}

// Option customizes the gateway
type Option func(*Gateway)

// WithHealth mounts a health handler at /health
func WithHealth(h http.Handler) Option {
	return func(g *Gateway) { g.health = h }
}

// WithCacheStats exposes cache counters under /api/v1/admin/cache/stats
func WithCacheStats(c CacheStatter) Option {
	return func(g *Gateway) { g.cache = c }
}

// GatewayMetrics represents gateway metrics
type GatewayMetrics struct {
	mu               sync.RWMutex
	RequestsTotal    int64            `json:"requests_total"`
	RequestsFailed   int64            `json:"requests_failed"`
	AverageLatency   time.Duration    `json:"average_latency"`
	RequestsByPath   map[string]int64 `json:"requests_by_path"`
	RequestsByStatus map[int]int64    `json:"requests_by_status"`
	LastRequest      time.Time        `json:"last_request"`
}

// NewGateway creates a new API gateway
func NewGateway(cfg config.APIConfig, service OpportunityService, opts ...Option) *Gateway {
	g := &Gateway{
		router:  mux.NewRouter(),
		service: service,
		config:  cfg,
		metrics: &GatewayMetrics{
			RequestsByPath:   make(map[string]int64),
			RequestsByStatus: make(map[int]int64),
		},
		logger: zap.L().Named("api"),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.setupRoutes()
	g.router.Use(g.metricsMiddleware)

	var handler http.Handler = g.router
	if cfg.EnableCORS {
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: cfg.AllowedMethods,
			AllowedHeaders: cfg.AllowedHeaders,
		}).Handler(handler)
	}
	if cfg.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, cfg.RequestTimeout, `{"success":false,"error":{"code":"TIMEOUT","message":"request timed out"}}`)
	}

	g.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return g
}

func (g *Gateway) setupRoutes() {
	if g.health != nil {
		g.router.Handle("/health", g.health).Methods(http.MethodGet)
	}

	api := g.router.PathPrefix("/api/v1").Subrouter()

	exp := api.PathPrefix("/expansion").Subrouter()
	exp.HandleFunc("/opportunities", g.handleListOpportunities).Methods(http.MethodGet)
	exp.HandleFunc("/customers/{id}/opportunity", g.handleGetCustomerOpportunity).Methods(http.MethodGet)

	api.HandleFunc("/metrics", g.handleMetrics).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/cache/stats", g.handleCacheStats).Methods(http.MethodGet)
}

// Handler returns the fully wrapped HTTP handler
func (g *Gateway) Handler() http.Handler {
	return g.server.Handler
}

// Start starts the API gateway and blocks until it stops
func (g *Gateway) Start() error {
	g.logger.Info("starting API gateway", zap.String("addr", g.server.Addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the API gateway
func (g *Gateway) Stop(ctx context.Context) error {
	g.logger.Info("stopping API gateway")
	return g.server.Shutdown(ctx)
}

// Response types

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type APIMeta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit,omitempty"`
	Offset  int  `json:"offset,omitempty"`
	HasMore bool `json:"has_more,omitempty"`
}

func writeJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message, details string) {
	writeJSONResponse(w, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func writeSuccessResponse(w http.ResponseWriter, data interface{}, meta *APIMeta) {
	writeJSONResponse(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func (g *Gateway) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		g.updateMetrics(path, wrapped.statusCode, time.Since(start))
	})
}

func (g *Gateway) updateMetrics(path string, statusCode int, duration time.Duration) {
	g.metrics.mu.Lock()
	defer g.metrics.mu.Unlock()

	g.metrics.RequestsTotal++
	if statusCode >= http.StatusInternalServerError {
		g.metrics.RequestsFailed++
	}
	g.metrics.RequestsByPath[path]++
	g.metrics.RequestsByStatus[statusCode]++
	g.metrics.LastRequest = time.Now()

	if g.metrics.AverageLatency == 0 {
		g.metrics.AverageLatency = duration
	} else {
		g.metrics.AverageLatency = (g.metrics.AverageLatency + duration) / 2
	}
}

// MetricsSnapshot is a copy of the gateway counters
type MetricsSnapshot struct {
	RequestsTotal    int64            `json:"requests_total"`
	RequestsFailed   int64            `json:"requests_failed"`
	AverageLatency   time.Duration    `json:"average_latency"`
	RequestsByPath   map[string]int64 `json:"requests_by_path"`
	RequestsByStatus map[int]int64    `json:"requests_by_status"`
	LastRequest      time.Time        `json:"last_request"`
}

// GetMetrics returns gateway metrics
func (g *Gateway) GetMetrics() MetricsSnapshot {
	g.metrics.mu.RLock()
	defer g.metrics.mu.RUnlock()

	snap := MetricsSnapshot{
		RequestsTotal:    g.metrics.RequestsTotal,
		RequestsFailed:   g.metrics.RequestsFailed,
		AverageLatency:   g.metrics.AverageLatency,
		RequestsByPath:   make(map[string]int64, len(g.metrics.RequestsByPath)),
		RequestsByStatus: make(map[int]int64, len(g.metrics.RequestsByStatus)),
		LastRequest:      g.metrics.LastRequest,
	}
	for k, v := range g.metrics.RequestsByPath {
		snap.RequestsByPath[k] = v
	}
	for k, v := range g.metrics.RequestsByStatus {
		snap.RequestsByStatus[k] = v
	}
	return snap
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
