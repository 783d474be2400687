// Пакет channelclient — HTTP-клиенты внешних платформ публикации.
//
// Client — JSON-клиент одной платформы с авторизацией Bearer-токеном
// владельца. Формат полезной нагрузки и путь ресурса задаёт стратегия
// канала (пакет publisher), клиент отвечает только за транспорт и
// нормализацию ответа.
//
// TokenRefresher — получение access token по refresh token
// (OAuth2 refresh_token grant) с кэшированием до истечения.
package channelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody — сколько байт тела ответа с ошибкой сохраняется в APIError.
const maxErrorBody = 2048

// APIError — платформа вернула статус вне диапазона 2xx.
type APIError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s вернул статус %d: %s", e.Platform, e.StatusCode, e.Body)
}

// PublishRequest — запрос публикации на платформу.
type PublishRequest struct {
	// AccessToken — расшифрованный токен доступа владельца
	AccessToken string
	// Path — путь ресурса относительно базового URL платформы
	Path string
	// Payload — тело запроса, сериализуется в JSON
	Payload any
}

// PublishResult — нормализованный ответ платформы.
type PublishResult struct {
	ID  string
	URL string
}

// publishResponse — поля ответа, из которых извлекаются ID и URL.
// Платформы называют их по-разному.
type publishResponse struct {
	ID        string `json:"id"`
	PostID    string `json:"post_id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Permalink string `json:"permalink"`
	SearchURL string `json:"searchUrl"`
}

// Client — HTTP-клиент одной платформы публикации.
type Client struct {
	platform   string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент платформы.
// platform — имя для логов и ошибок, baseURL — базовый URL API.
func New(platform, baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		platform:   platform,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger: logger.With(
			slog.String("component", "channel_client"),
			slog.String("platform", platform),
		),
	}
}

// Publish отправляет публикацию на платформу.
// Успешный ответ без идентификатора объекта считается ошибкой.
func (c *Client) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.AccessToken == "" {
		return nil, fmt.Errorf("%s: пустой токен доступа", c.platform)
	}

	data, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("сериализация тела запроса: %w", err)
	}

	reqURL := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("запрос к %s: %w", c.platform, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Ответ платформы",
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Platform: c.platform, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("декодирование ответа %s: %w", c.platform, err)
	}
	result := &PublishResult{
		ID:  firstNonEmpty(parsed.ID, parsed.PostID, parsed.Name),
		URL: firstNonEmpty(parsed.URL, parsed.Permalink, parsed.SearchURL),
	}

	if result.ID == "" {
		return nil, fmt.Errorf("%s не вернул идентификатор публикации", c.platform)
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
