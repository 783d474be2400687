package channelclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	// tokenCacheSize — сколько access token держится в кэше одновременно.
	tokenCacheSize = 1024
	// tokenCacheTTL — верхняя граница жизни записи независимо от expires_in.
	tokenCacheTTL = time.Hour
	// refreshMargin — токен обновляется заранее, до фактического истечения.
	refreshMargin = 30 * time.Second
)

// tokenResponse — ответ token endpoint на refresh_token grant.
type tokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // структура токена OAuth2
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// cachedToken — access token в кэше.
type cachedToken struct {
	accessToken string
	expiry      time.Time
}

// TokenRefresher получает access token по refresh token владельца.
// Токены кэшируются и обновляются за 30 секунд до истечения.
type TokenRefresher struct {
	tokenURL     string
	clientID     string
	clientSecret string

	httpClient *http.Client
	logger     *slog.Logger

	// cache — ключ SHA-256 от refresh token
	cache *expirable.LRU[string, cachedToken]
	// inflight объединяет параллельные обмены одного refresh token
	inflight singleflight.Group
}

// NewTokenRefresher создаёт TokenRefresher для token endpoint платформы.
func NewTokenRefresher(tokenURL, clientID, clientSecret string, httpClient *http.Client, logger *slog.Logger) *TokenRefresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &TokenRefresher{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "token_refresher")),
		cache:        expirable.NewLRU[string, cachedToken](tokenCacheSize, nil, tokenCacheTTL),
	}
}

// AccessToken возвращает действующий access token для refresh token.
func (r *TokenRefresher) AccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", fmt.Errorf("пустой refresh token")
	}

	key := cacheKey(refreshToken)
	if t, ok := r.cache.Get(key); ok && time.Now().Add(refreshMargin).Before(t.expiry) {
		return t.accessToken, nil
	}

	v, err, _ := r.inflight.Do(key, func() (any, error) {
		token, err := r.requestToken(ctx, refreshToken)
		if err != nil {
			r.cache.Remove(key)
			return "", err
		}

		expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
		r.cache.Add(key, cachedToken{accessToken: token.AccessToken, expiry: expiry})
		r.logger.Debug("Access token обновлён", slog.Time("expires_at", expiry))
		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// requestToken выполняет refresh_token grant.
func (r *TokenRefresher) requestToken(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {r.clientID},
		"client_secret": {r.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос токена: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("token endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("декодирование токена: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint не вернул access_token")
	}

	return &token, nil
}

func cacheKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}
