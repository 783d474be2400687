package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// SiteArticleRepository — доступ к таблице site_articles.
type SiteArticleRepository interface {
	// Create сохраняет статью внутреннего сайта.
	Create(ctx context.Context, a *model.SiteArticle) error
	// GetByPublication возвращает статью публикации в указанном канале.
	GetByPublication(ctx context.Context, ownerID, publicationID string, channel model.Channel) (*model.SiteArticle, error)
}

type siteArticleRepo struct {
	db DBTX
}

// NewSiteArticleRepository создаёт репозиторий статей внутренних сайтов.
func NewSiteArticleRepository(db DBTX) SiteArticleRepository {
	return &siteArticleRepo{db: db}
}

func (r *siteArticleRepo) Create(ctx context.Context, a *model.SiteArticle) error {
	query := `
		INSERT INTO site_articles (id, publication_id, owner_id, channel, slug,
			title, body, cta, hashtags, images, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.PublicationID, a.OwnerID, string(a.Channel), a.Slug,
		a.Title, a.Body, a.CTA, nonNil(a.Hashtags), nonNil(a.Images), a.URL,
	).Scan(&a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: статья публикации в канале %s уже существует", ErrConflict, a.Channel)
		}
		return fmt.Errorf("ошибка создания статьи: %w", err)
	}
	return nil
}

func (r *siteArticleRepo) GetByPublication(ctx context.Context, ownerID, publicationID string, channel model.Channel) (*model.SiteArticle, error) {
	query := `
		SELECT id, publication_id, owner_id, channel, slug, title, body, cta,
			hashtags, images, url, created_at
		FROM site_articles
		WHERE owner_id = $1 AND publication_id = $2 AND channel = $3`

	a := &model.SiteArticle{}
	err := r.db.QueryRow(ctx, query, ownerID, publicationID, string(channel)).Scan(
		&a.ID, &a.PublicationID, &a.OwnerID, &a.Channel, &a.Slug, &a.Title, &a.Body, &a.CTA,
		&a.Hashtags, &a.Images, &a.URL, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения статьи: %w", err)
	}
	return a, nil
}
