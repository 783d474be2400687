// logging.go — журнал HTTP-запросов и сквозной идентификатор запроса.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader — заголовок идентификатора запроса.
const RequestIDHeader = "X-Request-ID"

// ContextKeyRequestID — идентификатор запроса в контексте.
const ContextKeyRequestID contextKey = "request_id"

// maxRequestIDLen — входящий идентификатор длиннее заменяется новым.
const maxRequestIDLen = 128

// responseWriter запоминает статус и объём ответа для журнала.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap нужен http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestIDFromContext возвращает идентификатор запроса или "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// requestID берёт идентификатор вызывающей стороны (API Gateway)
// или выдаёт новый.
func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" && len(id) <= maxRequestIDLen {
		return id
	}
	return uuid.NewString()
}

// RequestLogger пишет строку журнала на каждый запрос и проставляет
// X-Request-ID в контекст и ответ. Уровень: 5xx — ERROR, 4xx — WARN.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := requestID(r)
			w.Header().Set(RequestIDHeader, id)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), ContextKeyRequestID, id)))

			level := slog.LevelInfo
			switch {
			case rw.statusCode >= 500:
				level = slog.LevelError
			case rw.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "HTTP запрос",
				slog.String("request_id", id),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", rw.written),
			)
		})
	}
}
