package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/delivery"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// DeliveryRepository — доступ к таблице deliveries.
type DeliveryRepository interface {
	// CreateQueued создаёт по одной доставке в статусе queued на каждый канал.
	CreateQueued(ctx context.Context, publicationID, ownerID string, channels []model.Channel) ([]*model.Delivery, error)
	// ApplyTransition переводит доставку из queued в конечный статус.
	// Строка выбирается по (publication_id, owner_id, channel), а не по ID доставки.
	// Если доставка не в queued — ErrTransitionRejected.
	ApplyTransition(ctx context.Context, publicationID, ownerID string, channel model.Channel, t delivery.Transition) (*model.Delivery, error)
	// ListByPublication возвращает доставки публикации владельца.
	ListByPublication(ctx context.Context, ownerID, publicationID string) ([]*model.Delivery, error)
}

type deliveryRepo struct {
	db DBTX
}

// NewDeliveryRepository создаёт репозиторий доставок.
func NewDeliveryRepository(db DBTX) DeliveryRepository {
	return &deliveryRepo{db: db}
}

var deliveryColumns = []string{
	"id", "publication_id", "owner_id", "channel", "status",
	"external_id", "external_url", "last_error", "delivered_at", "created_at", "updated_at",
}

func scanDelivery(row pgx.Row) (*model.Delivery, error) {
	d := &model.Delivery{}
	err := row.Scan(
		&d.ID, &d.PublicationID, &d.OwnerID, &d.Channel, &d.Status,
		&d.ExternalID, &d.ExternalURL, &d.LastError, &d.DeliveredAt, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

func (r *deliveryRepo) CreateQueued(ctx context.Context, publicationID, ownerID string, channels []model.Channel) ([]*model.Delivery, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("ошибка создания доставок: пустой список каналов")
	}

	ins := psql.Insert("deliveries").
		Columns("id", "publication_id", "owner_id", "channel", "status").
		Suffix("RETURNING " + strings.Join(deliveryColumns, ", "))
	for _, ch := range channels {
		ins = ins.Values(uuid.New().String(), publicationID, ownerID, string(ch), string(model.DeliveryQueued))
	}

	query, args, err := ins.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса доставок: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания доставок: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Delivery, 0, len(channels))
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования доставки: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: доставка в канал уже существует", ErrConflict)
		}
		return nil, fmt.Errorf("ошибка создания доставок: %w", err)
	}
	return result, nil
}

func (r *deliveryRepo) ApplyTransition(
	ctx context.Context,
	publicationID, ownerID string,
	channel model.Channel,
	t delivery.Transition,
) (*model.Delivery, error) {
	if !delivery.CanTransition(model.DeliveryQueued, t.To) {
		return nil, &delivery.TransitionError{From: model.DeliveryQueued, To: t.To}
	}

	at := t.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	set := map[string]any{
		"status":     string(t.To),
		"updated_at": at,
	}
	switch t.To {
	case model.DeliveryDelivered:
		set["external_id"] = t.ExternalID
		set["external_url"] = nullIfEmpty(t.ExternalURL)
		set["delivered_at"] = at
		set["last_error"] = nil
	case model.DeliveryFailed:
		set["last_error"] = t.LastError
	}

	query, args, err := psql.Update("deliveries").
		SetMap(set).
		Where(sq.Eq{
			"publication_id": publicationID,
			"owner_id":       ownerID,
			"channel":        string(channel),
			"status":         string(model.DeliveryQueued),
		}).
		Suffix("RETURNING " + strings.Join(deliveryColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса перехода: %w", err)
	}

	d, err := scanDelivery(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransitionRejected
		}
		return nil, fmt.Errorf("ошибка обновления доставки: %w", err)
	}
	return d, nil
}

func (r *deliveryRepo) ListByPublication(ctx context.Context, ownerID, publicationID string) ([]*model.Delivery, error) {
	query, args, err := psql.Select(deliveryColumns...).
		From("deliveries").
		Where(sq.Eq{"publication_id": publicationID, "owner_id": ownerID}).
		OrderBy("created_at", "channel").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса доставок: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения доставок: %w", err)
	}
	defer rows.Close()

	var result []*model.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования доставки: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
