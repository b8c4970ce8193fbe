package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/hwnotify/internal/metrics"
	"github.com/hitoshi/hwnotify/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger   *slog.Logger
	Reporter StatusReporter
	Gatherer prometheus.Gatherer
}

// NewRouter は/healthと/metricsを提供するchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))

	healthHandler := NewHealthHandler(deps.Reporter)
	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	return r
}
