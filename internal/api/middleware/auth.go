// auth.go — аутентификация владельца публикаций.
// JWTAuth проверяет Bearer JWT через JWKS Identity Provider (RS256),
// владелец — claim sub. HeaderAuth доверяет заголовку X-Owner-ID и
// используется только при PM_AUTH_ENABLED=false.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/goartstore/publication-module/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyOwner — идентификатор владельца в контексте запроса.
const ContextKeyOwner contextKey = "owner_id"

// OwnerHeader — заголовок с владельцем в режиме без аутентификации.
const OwnerHeader = "X-Owner-ID"

// jwksRefreshInterval — интервал фонового обновления ключей JWKS.
const jwksRefreshInterval = 15 * time.Minute

// JWTAuth — middleware JWT-аутентификации через JWKS.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	issuer    string
	jwtLeeway time.Duration
	logger    *slog.Logger
}

// NewJWTAuth создаёт JWT middleware с ключами из jwksURL.
// issuer — ожидаемый iss (пустой — не проверяется).
func NewJWTAuth(jwksURL, issuer string, jwtLeeway time.Duration, httpClient *http.Client, logger *slog.Logger) (*JWTAuth, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:      k,
		issuer:    issuer,
		jwtLeeway: jwtLeeway,
		logger:    logger.With(slog.String("component", "jwt_auth")),
	}, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:   kf,
		issuer: issuer,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware JWT-аутентификации.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}
			tokenString = strings.TrimSpace(tokenString)
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			claims := &jwt.RegisteredClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, claims, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				if err != nil {
					j.logger.Debug("JWT валидация не пройдена",
						slog.String("error", err.Error()),
						slog.String("remote_addr", r.RemoteAddr),
					)
				}
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			if claims.Subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), claims.Subject)))
		})
	}
}

// HeaderAuth возвращает middleware, берущий владельца из X-Owner-ID.
// Только для локальной разработки.
func HeaderAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
			if owner == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок "+OwnerHeader)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// --- Context helpers ---

// WithOwner помещает идентификатор владельца в контекст.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ContextKeyOwner, ownerID)
}

// OwnerFromContext извлекает идентификатор владельца.
// Возвращает пустую строку, если владелец не определён.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ContextKeyOwner).(string)
	return owner
}
