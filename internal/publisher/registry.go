package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/bigkaa/goartstore/publication-module/internal/channelclient"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
	"github.com/bigkaa/goartstore/publication-module/internal/repository"
)

// BindingSource — источник привязок владельцев к каналам.
type BindingSource interface {
	Get(ctx context.Context, ownerID string, channel model.Channel) (*model.ChannelBinding, error)
}

// Registry — реестр стратегий по каналам.
type Registry struct {
	publishers map[model.Channel]Publisher
	bindings   BindingSource
	logger     *slog.Logger
}

// NewRegistry создаёт реестр со стратегиями publishers.
// Канал без зарегистрированной стратегии получает unsupported_channel.
func NewRegistry(bindings BindingSource, logger *slog.Logger, publishers ...Publisher) *Registry {
	r := &Registry{
		publishers: make(map[model.Channel]Publisher, len(publishers)),
		bindings:   bindings,
		logger:     logger.With(slog.String("component", "publisher_registry")),
	}
	for _, p := range publishers {
		r.Register(p)
	}
	return r
}

// Register добавляет или заменяет стратегию канала.
func (r *Registry) Register(p Publisher) {
	r.publishers[p.Channel()] = p
}

// Channels возвращает каналы с зарегистрированными стратегиями
// в каноническом порядке.
func (r *Registry) Channels() []model.Channel {
	result := make([]model.Channel, 0, len(r.publishers))
	for _, ch := range model.AllChannels() {
		if _, ok := r.publishers[ch]; ok {
			result = append(result, ch)
		}
	}
	return result
}

// Dispatch публикует в канал и возвращает нормализованный результат.
// Никогда не паникует и не возвращает ошибку: любой сбой стратегии
// становится неуспешным результатом.
func (r *Registry) Dispatch(ctx context.Context, channel model.Channel, in Input) (out model.Outcome) {
	start := time.Now()
	logger := r.logger.With(
		slog.String("channel", string(channel)),
		slog.String("publication_id", in.PublicationID),
	)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Паника в стратегии канала",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			out = model.Failed(model.ErrKindInternal, fmt.Sprintf("внутренняя ошибка стратегии: %v", rec))
		}
		observeDispatch(channel, out, time.Since(start))
	}()

	p, ok := r.publishers[channel]
	if !ok {
		logger.Warn("Канал не поддерживается")
		return model.Failed(model.ErrKindUnsupportedChannel, fmt.Sprintf("канал %q не поддерживается", channel))
	}

	binding, err := r.bindings.Get(ctx, in.OwnerID, channel)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		binding = nil
	case err != nil:
		logger.Error("Ошибка загрузки привязки канала", slog.String("error", err.Error()))
		return model.Failed(model.ErrKindInternal, "не удалось загрузить настройки канала")
	}
	in.Binding = binding

	if f := p.Validate(in); f != nil {
		logger.Info("Канал не готов к публикации",
			slog.String("error", string(f.Kind)),
			slog.String("message", f.Message),
		)
		return failureOutcome(f)
	}

	res, err := p.Execute(ctx, in)
	if err != nil {
		out = classify(err)
		logger.Warn("Ошибка публикации в канал",
			slog.String("error", string(out.Error)),
			slog.String("message", out.Message),
		)
		return out
	}

	logger.Info("Публикация в канал выполнена",
		slog.String("external_id", res.ExternalID),
		slog.Duration("duration", time.Since(start)),
	)
	out = model.Succeeded(res.ExternalID, res.ExternalURL)
	out.Diagnostics = res.Diagnostics
	return out
}

// classify приводит ошибку стратегии к результату канала.
func classify(err error) model.Outcome {
	var f *Failure
	if errors.As(err, &f) {
		return failureOutcome(f)
	}

	out := model.Failed(model.ErrKindPublishFailed, err.Error())
	var apiErr *channelclient.APIError
	if errors.As(err, &apiErr) {
		out.Diagnostics = map[string]any{
			"platform":    apiErr.Platform,
			"status_code": apiErr.StatusCode,
			"body":        apiErr.Body,
		}
	}
	return out
}

func failureOutcome(f *Failure) model.Outcome {
	out := model.Failed(f.Kind, f.Message)
	out.Diagnostics = f.Diagnostics
	return out
}
