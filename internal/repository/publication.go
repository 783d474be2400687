package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// PublicationRepository — доступ к таблице publications.
// Публикации неизменяемы: операций обновления и удаления нет.
type PublicationRepository interface {
	// Create вставляет публикацию с заранее сгенерированным ID.
	Create(ctx context.Context, p *model.Publication) error
	// GetByID возвращает публикацию владельца по ID.
	GetByID(ctx context.Context, ownerID, id string) (*model.Publication, error)
	// GetByIdempotencyKey возвращает публикацию владельца по ключу идемпотентности.
	GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*model.Publication, error)
}

type publicationRepo struct {
	db DBTX
}

// NewPublicationRepository создаёт репозиторий публикаций.
func NewPublicationRepository(db DBTX) PublicationRepository {
	return &publicationRepo{db: db}
}

const publicationColumns = `id, owner_id, title, body, cta, hashtags, images, idea, idempotency_key, created_at`

func (r *publicationRepo) Create(ctx context.Context, p *model.Publication) error {
	query := `
		INSERT INTO publications (id, owner_id, title, body, cta, hashtags, images, idea, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.Title, p.Body, p.CTA,
		nonNil(p.Hashtags), nonNil(p.Images), p.Idea, p.IdempotencyKey,
	).Scan(&p.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			return fmt.Errorf("%w: публикация уже существует (%s)", ErrConflict, constraint)
		}
		return fmt.Errorf("ошибка создания публикации: %w", err)
	}
	return nil
}

func (r *publicationRepo) GetByID(ctx context.Context, ownerID, id string) (*model.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE id = $1 AND owner_id = $2`
	return r.getOne(ctx, query, id, ownerID)
}

func (r *publicationRepo) GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*model.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE owner_id = $1 AND idempotency_key = $2`
	return r.getOne(ctx, query, ownerID, key)
}

func (r *publicationRepo) getOne(ctx context.Context, query string, args ...any) (*model.Publication, error) {
	p := &model.Publication{}
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Body, &p.CTA,
		&p.Hashtags, &p.Images, &p.Idea, &p.IdempotencyKey, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения публикации: %w", err)
	}
	return p, nil
}

// nonNil заменяет nil-срез пустым, чтобы в TEXT[] NOT NULL попал '{}'.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
