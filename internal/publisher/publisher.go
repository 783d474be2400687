// Пакет publisher — реестр стратегий публикации по каналам.
//
// Каждая стратегия реализует интерфейс Publisher: проверка привязки
// владельца к каналу (Validate) и публикация (Execute). Registry.Dispatch
// загружает привязку, вызывает стратегию и нормализует результат в
// model.Outcome. Ошибка или паника стратегии превращается в неуспешный
// результат этого канала и не затрагивает остальные каналы.
package publisher

import (
	"context"
	"fmt"

	"github.com/bigkaa/goartstore/publication-module/internal/channelclient"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// Input — данные публикации для стратегии.
type Input struct {
	PublicationID string
	OwnerID       string
	Title         string
	Body          string
	CTA           string
	Hashtags      []string
	// ImageURLs — внешне доступные URL изображений (не более model.MaxImages)
	ImageURLs []string
	// StoredImages — URL изображений, сохранённые в публикации
	StoredImages []string
	// Binding — привязка владельца к каналу, nil если её нет.
	// Заполняется Registry.Dispatch.
	Binding *model.ChannelBinding
}

// Message возвращает каноническое сообщение публикации.
func (in Input) Message() string {
	return model.CanonicalMessage(in.Title, in.Body, in.CTA)
}

// Success — результат успешной публикации.
type Success struct {
	ExternalID  string
	ExternalURL string
	Diagnostics map[string]any
}

// Failure — типизированная ошибка стратегии.
type Failure struct {
	Kind        model.ErrorKind
	Message     string
	Diagnostics map[string]any
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func fail(kind model.ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Publisher — стратегия публикации в один канал.
type Publisher interface {
	// Channel возвращает канал, который обслуживает стратегия.
	Channel() model.Channel
	// Validate проверяет, что привязка и данные позволяют публикацию.
	// nil — можно вызывать Execute.
	Validate(in Input) *Failure
	// Execute выполняет публикацию. Ошибка типа *Failure сохраняет свой вид,
	// остальные ошибки считаются publish_failed.
	Execute(ctx context.Context, in Input) (*Success, error)
}

// --- Зависимости стратегий ---

// PlatformClient — клиент внешней платформы.
type PlatformClient interface {
	Publish(ctx context.Context, req channelclient.PublishRequest) (*channelclient.PublishResult, error)
}

// TokenSource — получение access token по refresh token.
type TokenSource interface {
	AccessToken(ctx context.Context, refreshToken string) (string, error)
}

// Decrypter — расшифровка токенов из привязки канала.
type Decrypter interface {
	Decrypt(encrypted string) (string, bool)
}

// ArticleStore — сохранение статей внутренних сайтов.
type ArticleStore interface {
	Create(ctx context.Context, a *model.SiteArticle) error
}
