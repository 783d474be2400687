// publication.go — сервис публикации: приём изображений, сохранение
// публикации, создание доставок, вызов стратегий каналов, фиксация
// статусов доставок и запись события в журнал.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/delivery"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
	"github.com/bigkaa/goartstore/publication-module/internal/media"
	"github.com/bigkaa/goartstore/publication-module/internal/publisher"
	"github.com/bigkaa/goartstore/publication-module/internal/repository"
)

// --- Зависимости ---

// Ingester — этап приёма изображений.
type Ingester interface {
	Ingest(ctx context.Context, ownerID string, images []model.ImageInput) (model.IngestionResult, error)
}

// Dispatcher — реестр стратегий каналов.
type Dispatcher interface {
	Dispatch(ctx context.Context, channel model.Channel, in publisher.Input) model.Outcome
}

// PublicationReader — чтение сохранённых публикаций.
type PublicationReader interface {
	GetByID(ctx context.Context, ownerID, id string) (*model.Publication, error)
	GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*model.Publication, error)
}

// DeliveryStore — переходы статусов и чтение доставок.
type DeliveryStore interface {
	ApplyTransition(ctx context.Context, publicationID, ownerID string, channel model.Channel, t delivery.Transition) (*model.Delivery, error)
	ListByPublication(ctx context.Context, ownerID, publicationID string) ([]*model.Delivery, error)
}

// EventAppender — журнал событий публикаций.
type EventAppender interface {
	Append(ctx context.Context, e *model.Event) error
}

// --- Входные и выходные данные ---

// PublishRequest — запрос на публикацию.
type PublishRequest struct {
	OwnerID  string
	Channels []string
	Title    string
	Content  string
	CTA      string
	Hashtags []string
	Idea     string
	Images   []model.ImageInput
	// IdempotencyKey — ключ из заголовка Idempotency-Key (опционально)
	IdempotencyKey string
}

// PublishResult — итог публикации.
type PublishResult struct {
	Publication *model.Publication
	Deliveries  []*model.Delivery
	// PublishableURLs — внешне доступные URL изображений
	PublishableURLs []string
	UploadErrors    []model.Diagnostic
	Results         map[model.Channel]model.Outcome
	// Replayed — результат повторного запроса с тем же ключом идемпотентности
	Replayed bool
}

// PublicationView — публикация вместе с доставками.
type PublicationView struct {
	Publication *model.Publication
	Deliveries  []*model.Delivery
}

// PublicationService — оркестратор публикации по каналам.
type PublicationService struct {
	ingester    Ingester
	writer      repository.PublicationWriter
	pubs        PublicationReader
	deliveries  DeliveryStore
	dispatcher  Dispatcher
	events      EventAppender
	idempotency *IdempotencyCache
	now         func() time.Time
	logger      *slog.Logger
}

// NewPublicationService создаёт сервис публикации.
// idempotency может быть nil — тогда ключи ищутся только в БД.
func NewPublicationService(
	ingester Ingester,
	writer repository.PublicationWriter,
	pubs PublicationReader,
	deliveries DeliveryStore,
	dispatcher Dispatcher,
	events EventAppender,
	idempotency *IdempotencyCache,
	logger *slog.Logger,
) *PublicationService {
	return &PublicationService{
		ingester:    ingester,
		writer:      writer,
		pubs:        pubs,
		deliveries:  deliveries,
		dispatcher:  dispatcher,
		events:      events,
		idempotency: idempotency,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With(slog.String("component", "publication_service")),
	}
}

// Publish выполняет публикацию за один проход:
//  1. валидация каналов и текста (до любых побочных эффектов);
//  2. повтор по ключу идемпотентности;
//  3. приём изображений;
//  4. публикация и доставки queued в одной транзакции;
//  5. последовательный вызов стратегий и переход каждой доставки;
//  6. событие publication.published.
//
// Ошибки каналов не делают запрос неуспешным: они попадают в Results
// и в last_error доставки.
func (s *PublicationService) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	channels, err := validateRequest(req)
	if err != nil {
		publicationsTotal.WithLabelValues(resultInvalid).Inc()
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		replay, err := s.lookupIdempotent(ctx, req.OwnerID, key)
		if err != nil {
			publicationsTotal.WithLabelValues(resultError).Inc()
			return nil, err
		}
		if replay != nil {
			publicationsTotal.WithLabelValues(resultReplayed).Inc()
			return replay, nil
		}
	}

	ingest, err := s.ingester.Ingest(ctx, req.OwnerID, req.Images)
	if err != nil {
		if errors.Is(err, media.ErrAllImagesFailed) {
			publicationsTotal.WithLabelValues(resultUploadFailed).Inc()
			s.logger.Warn("Ни одно изображение не загружено",
				slog.String("owner_id", req.OwnerID),
				slog.Int("images", len(req.Images)),
			)
			return nil, &UploadFailedError{Diagnostics: ingest.Diagnostics}
		}
		publicationsTotal.WithLabelValues(resultError).Inc()
		return nil, fmt.Errorf("приём изображений: %w", err)
	}

	pub := &model.Publication{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		Title:     strings.TrimSpace(req.Title),
		Body:      strings.TrimSpace(req.Content),
		CTA:       strings.TrimSpace(req.CTA),
		Hashtags:  model.NormalizeHashtags(req.Hashtags),
		Images:    ingest.StoredURLs(),
		Idea:      req.Idea,
		CreatedAt: s.now(),
	}
	if key != "" {
		pub.IdempotencyKey = &key
	}

	created, err := s.writer.CreateWithDeliveries(ctx, pub, channels)
	if err != nil {
		if key != "" && errors.Is(err, repository.ErrConflict) {
			// Параллельный запрос с тем же ключом успел создать публикацию
			if replay, lookupErr := s.lookupIdempotent(ctx, req.OwnerID, key); lookupErr == nil && replay != nil {
				publicationsTotal.WithLabelValues(resultReplayed).Inc()
				return replay, nil
			}
		}
		publicationsTotal.WithLabelValues(resultError).Inc()
		return nil, fmt.Errorf("сохранение публикации: %w", err)
	}
	if key != "" && s.idempotency != nil {
		s.idempotency.Set(req.OwnerID, key, pub.ID)
	}

	logger := s.logger.With(
		slog.String("publication_id", pub.ID),
		slog.String("owner_id", pub.OwnerID),
	)
	logger.Info("Публикация создана",
		slog.Int("channels", len(channels)),
		slog.Int("images", len(pub.Images)),
		slog.Int("upload_errors", len(ingest.Diagnostics)),
	)

	byChannel := make(map[model.Channel]*model.Delivery, len(created))
	for _, d := range created {
		byChannel[d.Channel] = d
	}

	in := publisher.Input{
		PublicationID: pub.ID,
		OwnerID:       pub.OwnerID,
		Title:         pub.Title,
		Body:          pub.Body,
		CTA:           pub.CTA,
		Hashtags:      pub.Hashtags,
		ImageURLs:     ingest.FetchableURLs(),
		StoredImages:  pub.Images,
	}

	// После фиксации доставок проход доводится до конца и при отключении
	// клиента: каждая доставка должна получить delivered или failed.
	// Время внешних вызовов ограничено таймаутом HTTP-клиента канала.
	fanoutCtx := context.WithoutCancel(ctx)

	results := make(map[model.Channel]model.Outcome, len(channels))
	deliveries := make([]*model.Delivery, 0, len(channels))
	for _, ch := range channels {
		out := s.dispatcher.Dispatch(fanoutCtx, ch, in)
		if out.OK && out.ExternalID == "" {
			out = model.Failed(model.ErrKindPublishFailed, "платформа не вернула идентификатор публикации")
		}
		d := s.settle(fanoutCtx, logger, pub, byChannel[ch], ch, out)

		results[ch] = out
		if d != nil {
			deliveries = append(deliveries, d)
		}
	}

	s.appendEvent(fanoutCtx, logger, req, pub, channels, ingest.Diagnostics, results)

	publicationsTotal.WithLabelValues(resultPublished).Inc()
	return &PublishResult{
		Publication:     pub,
		Deliveries:      deliveries,
		PublishableURLs: in.ImageURLs,
		UploadErrors:    ingest.Diagnostics,
		Results:         results,
	}, nil
}

// settle фиксирует итог канала в доставке. Отклонённый переход
// (доставка уже не queued) только логируется.
func (s *PublicationService) settle(
	ctx context.Context,
	logger *slog.Logger,
	pub *model.Publication,
	queued *model.Delivery,
	ch model.Channel,
	out model.Outcome,
) *model.Delivery {
	t := delivery.FromOutcome(out, s.now())
	deliveriesTotal.WithLabelValues(string(ch), string(t.To)).Inc()

	d, err := s.deliveries.ApplyTransition(ctx, pub.ID, pub.OwnerID, ch, t)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, repository.ErrTransitionRejected) {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "Не удалось обновить статус доставки",
			slog.String("channel", string(ch)),
			slog.String("status", string(t.To)),
			slog.String("error", err.Error()),
		)
		if queued == nil {
			return nil
		}
		// Возвращаем ожидаемое состояние, чтобы ответ отражал итог канала
		fallback := *queued
		if applyErr := delivery.Apply(&fallback, t); applyErr != nil {
			return queued
		}
		return &fallback
	}
	return d
}

// appendEvent записывает событие publication.published.
// Ошибка журнала не влияет на результат запроса.
func (s *PublicationService) appendEvent(
	ctx context.Context,
	logger *slog.Logger,
	req PublishRequest,
	pub *model.Publication,
	channels []model.Channel,
	diagnostics []model.Diagnostic,
	results map[model.Channel]model.Outcome,
) {
	uploadErrors := diagnostics
	if uploadErrors == nil {
		uploadErrors = []model.Diagnostic{}
	}

	event := &model.Event{
		OwnerID:       pub.OwnerID,
		PublicationID: pub.ID,
		Kind:          model.EventPublicationPublished,
		Payload: model.PublishedPayload{
			Idea:     req.Idea,
			Channels: channels,
			Post: model.PostSnapshot{
				Title:    pub.Title,
				Content:  pub.Body,
				CTA:      pub.CTA,
				Hashtags: pub.Hashtags,
			},
			Images:       pub.Images,
			UploadErrors: uploadErrors,
			Results:      results,
		},
		CreatedAt: s.now(),
	}
	if err := s.events.Append(ctx, event); err != nil {
		logger.Error("Не удалось записать событие публикации",
			slog.String("error", err.Error()),
		)
	}
}

// Get возвращает публикацию владельца с доставками.
func (s *PublicationService) Get(ctx context.Context, ownerID, id string) (*PublicationView, error) {
	pub, err := s.pubs.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение публикации: %w", err)
	}

	deliveries, err := s.deliveries.ListByPublication(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("получение доставок: %w", err)
	}
	return &PublicationView{Publication: pub, Deliveries: deliveries}, nil
}

// lookupIdempotent ищет публикацию по ключу: сначала в кэше, затем в БД.
// nil без ошибки — ключ ещё не использовался.
func (s *PublicationService) lookupIdempotent(ctx context.Context, ownerID, key string) (*PublishResult, error) {
	var (
		pub *model.Publication
		err error
	)
	if s.idempotency != nil {
		if id, ok := s.idempotency.Get(ownerID, key); ok {
			pub, err = s.pubs.GetByID(ctx, ownerID, id)
		}
	}
	if pub == nil {
		pub, err = s.pubs.GetByIdempotencyKey(ctx, ownerID, key)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("поиск по ключу идемпотентности: %w", err)
	}
	if s.idempotency != nil {
		s.idempotency.Set(ownerID, key, pub.ID)
	}

	deliveries, err := s.deliveries.ListByPublication(ctx, ownerID, pub.ID)
	if err != nil {
		return nil, fmt.Errorf("получение доставок: %w", err)
	}

	results := make(map[model.Channel]model.Outcome, len(deliveries))
	for _, d := range deliveries {
		results[d.Channel] = OutcomeFromDelivery(d)
	}

	s.logger.Info("Повтор запроса по ключу идемпотентности",
		slog.String("publication_id", pub.ID),
		slog.String("owner_id", ownerID),
	)
	return &PublishResult{
		Publication:     pub,
		Deliveries:      deliveries,
		PublishableURLs: pub.Images,
		UploadErrors:    []model.Diagnostic{},
		Results:         results,
		Replayed:        true,
	}, nil
}

// OutcomeFromDelivery восстанавливает результат канала по сохранённой доставке.
// last_error хранится в виде "<вид>: <сообщение>".
func OutcomeFromDelivery(d *model.Delivery) model.Outcome {
	switch d.Status {
	case model.DeliveryDelivered:
		return model.Succeeded(deref(d.ExternalID), deref(d.ExternalURL))
	case model.DeliveryFailed:
		kind, message, found := strings.Cut(deref(d.LastError), ": ")
		if !found {
			message = ""
		}
		if kind == "" {
			kind = string(model.ErrKindInternal)
		}
		return model.Failed(model.ErrorKind(kind), message)
	default:
		return model.Failed(model.ErrKindInternal, "доставка не завершена")
	}
}

// validateRequest проверяет запрос и возвращает каналы без повторов
// в порядке запроса.
func validateRequest(req PublishRequest) ([]model.Channel, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, validationError("не определён владелец")
	}

	parsed := make([]model.Channel, 0, len(req.Channels))
	for _, raw := range req.Channels {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		ch, err := model.ParseChannel(raw)
		if err != nil {
			return nil, validationError("%v", err)
		}
		parsed = append(parsed, ch)
	}
	channels := model.DedupChannels(parsed)
	if len(channels) == 0 {
		return nil, validationError("не выбран ни один канал")
	}

	if strings.TrimSpace(req.Content) == "" {
		return nil, validationError("текст публикации не может быть пустым")
	}
	return channels, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
