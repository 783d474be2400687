package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// EventLogRepository — журнал событий публикации (таблица publication_events).
type EventLogRepository interface {
	// Append добавляет событие. ID генерируется, если не задан.
	Append(ctx context.Context, e *model.Event) error
	// ListByPublication возвращает события публикации в порядке добавления.
	// Payload возвращается как json.RawMessage.
	ListByPublication(ctx context.Context, ownerID, publicationID string) ([]*model.Event, error)
}

type eventLogRepo struct {
	db DBTX
}

// NewEventLogRepository создаёт репозиторий журнала событий.
func NewEventLogRepository(db DBTX) EventLogRepository {
	return &eventLogRepo{db: db}
}

func (r *eventLogRepo) Append(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	query := `
		INSERT INTO publication_events (id, owner_id, publication_id, kind, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	var publicationID any
	if e.PublicationID != "" {
		publicationID = e.PublicationID
	}

	if err := r.db.QueryRow(ctx, query,
		e.ID, e.OwnerID, publicationID, e.Kind, string(payload),
	).Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("ошибка записи события: %w", err)
	}
	return nil
}

func (r *eventLogRepo) ListByPublication(ctx context.Context, ownerID, publicationID string) ([]*model.Event, error) {
	query := `
		SELECT id, owner_id, publication_id, kind, payload, created_at
		FROM publication_events
		WHERE owner_id = $1 AND publication_id = $2
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, ownerID, publicationID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения событий: %w", err)
	}
	defer rows.Close()

	var result []*model.Event
	for rows.Next() {
		e := &model.Event{}
		var payload []byte
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.PublicationID, &e.Kind, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования события: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		result = append(result, e)
	}
	return result, rows.Err()
}
