// ratelimit.go — ограничение частоты запросов на владельца и операцию
// (token bucket). Лимитеры хранятся в LRU и вытесняются по TTL простоя.
package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	apierrors "github.com/bigkaa/goartstore/publication-module/internal/api/errors"
)

const (
	// rateLimiterCacheSize — максимальное количество лимитеров в памяти.
	rateLimiterCacheSize = 10000
	// rateLimiterTTL — время жизни лимитера без обращений.
	rateLimiterTTL = 10 * time.Minute
)

// RateLimiter — лимитер запросов по ключу owner:operation.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
	logger   *slog.Logger
}

// NewRateLimiter создаёт лимитер: rps запросов в секунду, burst — размер всплеска.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](rateLimiterCacheSize, nil, rateLimiterTTL),
		rps:      rate.Limit(rps),
		burst:    burst,
		logger:   logger.With(slog.String("component", "rate_limiter")),
	}
}

// limiter возвращает лимитер ключа, создавая его при первом обращении.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.rps, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

// Allow проверяет лимит для владельца и операции.
// Возвращает false и время до следующей попытки при превышении.
func (rl *RateLimiter) Allow(ownerID, operation string) (bool, time.Duration) {
	r := rl.limiter(ownerID + ":" + operation).Reserve()
	if !r.OK() {
		return false, time.Second
	}
	delay := r.Delay()
	if delay > 0 {
		r.Cancel()
		return false, delay
	}
	return true, 0
}

// Middleware возвращает middleware ограничения частоты.
// Должен использоваться ПОСЛЕ middleware аутентификации.
// Операция — метод и нормализованный путь запроса.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := OwnerFromContext(r.Context())
			operation := r.Method + " " + normalizePath(r.URL.Path)

			ok, retryAfter := rl.Allow(owner, operation)
			if !ok {
				rl.logger.Warn("Превышен лимит запросов",
					slog.String("owner_id", owner),
					slog.String("operation", operation),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				apierrors.RateLimited(w, "Слишком много запросов, повторите позже")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
