// metrics.go — Prometheus HTTP метрики Publication Module.
// Регистрирует метрики: pm_http_requests_total, pm_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Publication Module",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Publication Module в секундах",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath приводит путь к шаблону для меток метрик:
// /api/v1/publications/<uuid> → /api/v1/publications/{id},
// /media/public/... → /media/public/{path}.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/media/public/"):
		return "/media/public/{path}"
	case strings.HasPrefix(path, "/media/signed/"):
		return "/media/signed/{path}"
	}

	const publicationsPrefix = "/api/v1/publications/"
	if rest, ok := strings.CutPrefix(path, publicationsPrefix); ok && rest != "" {
		if _, err := uuid.Parse(rest); err == nil {
			return publicationsPrefix + "{id}"
		}
		return publicationsPrefix + "{invalid}"
	}
	return path
}
