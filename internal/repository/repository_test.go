package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goartstore/publication-module/internal/config"
	"github.com/bigkaa/goartstore/publication-module/internal/database"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/delivery"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер и применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("publications_test"),
		postgres.WithUsername("artstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	cfg := &config.Config{
		DBHost:     host,
		DBPort:     port.Int(),
		DBName:     "publications_test",
		DBUser:     "artstore",
		DBPassword: "test-password",
		DBSSLMode:  "disable",
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

func newPublication(ownerID string) *model.Publication {
	return &model.Publication{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		Title:    "Promo",
		Body:     "10% off",
		CTA:      "Book now",
		Hashtags: []string{"promo", "sale"},
		Images:   []string{"https://media.example.com/a.jpg"},
		Idea:     "осенняя акция",
	}
}

// --- PublicationWriter ---

func TestPublicationWriter_CreateWithDeliveries(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	writer := NewPublicationWriter(NewTxRunner(pool))

	p := newPublication("owner-1")
	channels := []model.Channel{model.ChannelSocialPage, model.ChannelInternalSiteA, model.ChannelSocialPhoto}

	deliveries, err := writer.CreateWithDeliveries(ctx, p, channels)
	if err != nil {
		t.Fatalf("CreateWithDeliveries() ошибка: %v", err)
	}
	if p.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}
	if len(deliveries) != len(channels) {
		t.Fatalf("создано %d доставок, ожидается %d", len(deliveries), len(channels))
	}
	for _, d := range deliveries {
		if d.Status != model.DeliveryQueued {
			t.Errorf("доставка %s: статус %s, ожидается queued", d.Channel, d.Status)
		}
		if d.PublicationID != p.ID || d.OwnerID != "owner-1" {
			t.Errorf("доставка %s привязана к %s/%s", d.Channel, d.PublicationID, d.OwnerID)
		}
	}

	got, err := NewPublicationRepository(pool).GetByID(ctx, "owner-1", p.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Body != p.Body || len(got.Hashtags) != 2 || got.Hashtags[0] != "promo" {
		t.Errorf("GetByID() = %+v", got)
	}

	// Чужой владелец не видит публикацию
	if _, err := NewPublicationRepository(pool).GetByID(ctx, "owner-2", p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() чужого владельца: ошибка %v, ожидается ErrNotFound", err)
	}
}

func TestPublicationWriter_FanoutFailureRollsBack(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	writer := NewPublicationWriter(NewTxRunner(pool))

	p := newPublication("owner-1")
	// Повтор канала нарушает UNIQUE (publication_id, channel)
	_, err := writer.CreateWithDeliveries(ctx, p, []model.Channel{model.ChannelSocialPage, model.ChannelSocialPage})
	if err == nil {
		t.Fatal("CreateWithDeliveries() с повтором канала должен вернуть ошибку")
	}

	if _, err := NewPublicationRepository(pool).GetByID(ctx, "owner-1", p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("публикация должна быть откатана, GetByID() ошибка: %v", err)
	}
}

func TestPublicationRepository_IdempotencyKey(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewPublicationRepository(pool)

	key := "req-123"
	p := newPublication("owner-1")
	p.IdempotencyKey = &key
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	got, err := repo.GetByIdempotencyKey(ctx, "owner-1", key)
	if err != nil {
		t.Fatalf("GetByIdempotencyKey() ошибка: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("GetByIdempotencyKey() ID = %s, ожидается %s", got.ID, p.ID)
	}

	dup := newPublication("owner-1")
	dup.IdempotencyKey = &key
	err = repo.Create(ctx, dup)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("повторный ключ: ошибка %v, ожидается ErrConflict", err)
	} else if !strings.Contains(err.Error(), "uq_publications_owner_idempotency_key") {
		t.Errorf("в ошибке нет имени ограничения: %v", err)
	}

	// Тот же ключ у другого владельца допустим
	other := newPublication("owner-2")
	other.IdempotencyKey = &key
	if err := repo.Create(ctx, other); err != nil {
		t.Errorf("ключ другого владельца: ошибка %v", err)
	}
}

// --- DeliveryRepository ---

func TestDeliveryRepository_ApplyTransition(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	writer := NewPublicationWriter(NewTxRunner(pool))
	repo := NewDeliveryRepository(pool)

	p := newPublication("owner-1")
	if _, err := writer.CreateWithDeliveries(ctx, p,
		[]model.Channel{model.ChannelSocialPage, model.ChannelSocialPhoto}); err != nil {
		t.Fatalf("CreateWithDeliveries() ошибка: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	d, err := repo.ApplyTransition(ctx, p.ID, "owner-1", model.ChannelSocialPage,
		delivery.Transition{To: model.DeliveryDelivered, ExternalID: "fb-1", ExternalURL: "https://social/p/1", At: now})
	if err != nil {
		t.Fatalf("ApplyTransition(delivered) ошибка: %v", err)
	}
	if d.Status != model.DeliveryDelivered || d.ExternalID == nil || *d.ExternalID != "fb-1" {
		t.Errorf("доставка после delivered: %+v", d)
	}
	if d.DeliveredAt == nil || !d.DeliveredAt.Equal(now) {
		t.Errorf("DeliveredAt = %v, ожидается %v", d.DeliveredAt, now)
	}

	// Конечный статус не перезаписывается
	_, err = repo.ApplyTransition(ctx, p.ID, "owner-1", model.ChannelSocialPage,
		delivery.Transition{To: model.DeliveryFailed, LastError: "publish_failed", At: now})
	if !errors.Is(err, ErrTransitionRejected) {
		t.Errorf("повторный переход: ошибка %v, ожидается ErrTransitionRejected", err)
	}

	// Чужой владелец не может изменить доставку
	_, err = repo.ApplyTransition(ctx, p.ID, "owner-2", model.ChannelSocialPhoto,
		delivery.Transition{To: model.DeliveryFailed, LastError: "publish_failed", At: now})
	if !errors.Is(err, ErrTransitionRejected) {
		t.Errorf("переход чужим владельцем: ошибка %v, ожидается ErrTransitionRejected", err)
	}

	d, err = repo.ApplyTransition(ctx, p.ID, "owner-1", model.ChannelSocialPhoto,
		delivery.Transition{To: model.DeliveryFailed, LastError: "missing_image: нет изображений", At: now})
	if err != nil {
		t.Fatalf("ApplyTransition(failed) ошибка: %v", err)
	}
	if d.LastError == nil || *d.LastError != "missing_image: нет изображений" || d.ExternalID != nil {
		t.Errorf("доставка после failed: %+v", d)
	}

	list, err := repo.ListByPublication(ctx, "owner-1", p.ID)
	if err != nil {
		t.Fatalf("ListByPublication() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByPublication() вернул %d доставок, ожидается 2", len(list))
	}
	for _, d := range list {
		if d.Status == model.DeliveryQueued {
			t.Errorf("доставка %s осталась в queued", d.Channel)
		}
	}
}

func TestDeliveryRepository_RejectsQueuedTarget(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewDeliveryRepository(pool)

	_, err := repo.ApplyTransition(context.Background(), uuid.New().String(), "owner-1", model.ChannelSocialPage,
		delivery.Transition{To: model.DeliveryQueued})
	var te *delivery.TransitionError
	if !errors.As(err, &te) {
		t.Errorf("переход в queued: ошибка %v, ожидается TransitionError", err)
	}
}

// --- ChannelBindingRepository ---

func TestChannelBindingRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewChannelBindingRepository(pool)

	if _, err := repo.Get(ctx, "owner-1", model.ChannelSocialPage); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() отсутствующей привязки: ошибка %v, ожидается ErrNotFound", err)
	}

	b := &model.ChannelBinding{
		OwnerID:          "owner-1",
		Channel:          model.ChannelSocialPage,
		ConnectionStatus: "connected",
		ResourceID:       "page-1",
		AccessTokenEnc:   "enc-token",
	}
	if err := repo.Upsert(ctx, b); err != nil {
		t.Fatalf("Upsert() ошибка: %v", err)
	}

	b.ResourceID = "page-2"
	if err := repo.Upsert(ctx, b); err != nil {
		t.Fatalf("повторный Upsert() ошибка: %v", err)
	}

	got, err := repo.Get(ctx, "owner-1", model.ChannelSocialPage)
	if err != nil {
		t.Fatalf("Get() ошибка: %v", err)
	}
	if got.ResourceID != "page-2" || got.AccessTokenEnc != "enc-token" {
		t.Errorf("Get() = %+v", got)
	}
}

// --- SiteArticleRepository и EventLogRepository ---

func TestSiteArticleAndEventLog(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	p := newPublication("owner-1")
	if err := NewPublicationRepository(pool).Create(ctx, p); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	articles := NewSiteArticleRepository(pool)
	a := &model.SiteArticle{
		ID:            uuid.New().String(),
		PublicationID: p.ID,
		OwnerID:       "owner-1",
		Channel:       model.ChannelInternalSiteA,
		Slug:          "promo",
		Title:         p.Title,
		Body:          p.Body,
		URL:           "https://site.example.com/promo-abcd",
	}
	if err := articles.Create(ctx, a); err != nil {
		t.Fatalf("SiteArticle Create() ошибка: %v", err)
	}
	a.ID = uuid.New().String()
	if err := articles.Create(ctx, a); !errors.Is(err, ErrConflict) {
		t.Errorf("повторная статья: ошибка %v, ожидается ErrConflict", err)
	}

	got, err := articles.GetByPublication(ctx, "owner-1", p.ID, model.ChannelInternalSiteA)
	if err != nil {
		t.Fatalf("GetByPublication() ошибка: %v", err)
	}
	if got.Slug != "promo" || len(got.Hashtags) != 0 {
		t.Errorf("GetByPublication() = %+v", got)
	}

	events := NewEventLogRepository(pool)
	e := &model.Event{
		OwnerID:       "owner-1",
		PublicationID: p.ID,
		Kind:          model.EventPublicationPublished,
		Payload:       map[string]any{"channels": []string{"internal_site_a"}},
	}
	if err := events.Append(ctx, e); err != nil {
		t.Fatalf("Append() ошибка: %v", err)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Errorf("Append() не заполнил ID/CreatedAt: %+v", e)
	}

	list, err := events.ListByPublication(ctx, "owner-1", p.ID)
	if err != nil {
		t.Fatalf("ListByPublication() ошибка: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListByPublication() вернул %d событий, ожидается 1", len(list))
	}
	var payload map[string][]string
	if err := json.Unmarshal(list[0].Payload.(json.RawMessage), &payload); err != nil {
		t.Fatalf("разбор payload: %v", err)
	}
	if payload["channels"][0] != "internal_site_a" {
		t.Errorf("payload = %v", payload)
	}
}
