// Пакет server — HTTP-сервер Publication Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/publication-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/publication-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/publication-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/publication-module/internal/config"
	"github.com/bigkaa/goartstore/publication-module/internal/storage/filestore"
)

// Routes — обработчики и middleware, из которых собирается маршрутизатор.
type Routes struct {
	// API — реализация openapi.ServerInterface
	API openapi.ServerInterface
	// Health — /health/live, /health/ready, /metrics
	Health *handlers.HealthHandler
	// Media — отдача изображений; nil — маршруты /media не регистрируются
	Media *handlers.MediaHandler
	// Auth — аутентификация /api/v1 (JWT или заголовок владельца)
	Auth func(http.Handler) http.Handler
	// RateLimit — ограничение частоты запросов; nil — без ограничения
	RateLimit *middleware.RateLimiter
	// Validator — проверка запросов по контракту; nil — без проверки
	Validator *openapi.Validator
	// MaxBodyBytes — предельный размер тела запроса; 0 — без ограничения
	MaxBodyBytes int64
}

// Server — HTTP-сервер Publication Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, routes Routes) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, routes),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршрутизатор. Health, metrics и медиа доступны
// без аутентификации: их опрашивают Kubernetes и внешние платформы.
func NewRouter(logger *slog.Logger, routes Routes) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	if routes.Health != nil {
		router.Get("/health/live", routes.Health.HealthLive)
		router.Get("/health/ready", routes.Health.HealthReady)
		router.Get("/metrics", routes.Health.GetMetrics)
	}

	if routes.Media != nil {
		router.Get(filestore.PublicRoutePrefix+"*", routes.Media.ServePublic)
		router.Get(filestore.SignedRoutePrefix+"*", routes.Media.ServeSigned)
	}

	router.Group(func(r chi.Router) {
		if routes.MaxBodyBytes > 0 {
			r.Use(limitBody(routes.MaxBodyBytes))
		}
		if routes.Auth != nil {
			r.Use(routes.Auth)
		}
		if routes.RateLimit != nil {
			r.Use(routes.RateLimit.Middleware())
		}
		if routes.Validator != nil {
			r.Use(routes.Validator.Middleware())
		}
		openapi.RegisterHandlers(r, routes.API)
	})

	return router
}

// limitBody ограничивает размер тела запроса.
// Превышение проявляется ошибкой чтения тела в обработчике.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
