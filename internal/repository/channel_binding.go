package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// ChannelBindingRepository — доступ к таблице channel_bindings.
type ChannelBindingRepository interface {
	// Get возвращает привязку владельца к каналу или ErrNotFound.
	Get(ctx context.Context, ownerID string, channel model.Channel) (*model.ChannelBinding, error)
	// Upsert создаёт или обновляет привязку (используется модулем интеграций и тестами).
	Upsert(ctx context.Context, b *model.ChannelBinding) error
}

type channelBindingRepo struct {
	db DBTX
}

// NewChannelBindingRepository создаёт репозиторий привязок каналов.
func NewChannelBindingRepository(db DBTX) ChannelBindingRepository {
	return &channelBindingRepo{db: db}
}

func (r *channelBindingRepo) Get(ctx context.Context, ownerID string, channel model.Channel) (*model.ChannelBinding, error) {
	query := `
		SELECT owner_id, channel, site_url, ownership, connection_status,
			resource_id, location_id, access_token_enc, refresh_token_enc, updated_at
		FROM channel_bindings
		WHERE owner_id = $1 AND channel = $2`

	b := &model.ChannelBinding{}
	err := r.db.QueryRow(ctx, query, ownerID, string(channel)).Scan(
		&b.OwnerID, &b.Channel, &b.SiteURL, &b.Ownership, &b.ConnectionStatus,
		&b.ResourceID, &b.LocationID, &b.AccessTokenEnc, &b.RefreshTokenEnc, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения привязки канала: %w", err)
	}
	return b, nil
}

func (r *channelBindingRepo) Upsert(ctx context.Context, b *model.ChannelBinding) error {
	query := `
		INSERT INTO channel_bindings (owner_id, channel, site_url, ownership, connection_status,
			resource_id, location_id, access_token_enc, refresh_token_enc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, channel) DO UPDATE SET
			site_url = EXCLUDED.site_url,
			ownership = EXCLUDED.ownership,
			connection_status = EXCLUDED.connection_status,
			resource_id = EXCLUDED.resource_id,
			location_id = EXCLUDED.location_id,
			access_token_enc = EXCLUDED.access_token_enc,
			refresh_token_enc = EXCLUDED.refresh_token_enc,
			updated_at = NOW()
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		b.OwnerID, string(b.Channel), b.SiteURL, b.Ownership, b.ConnectionStatus,
		b.ResourceID, b.LocationID, b.AccessTokenEnc, b.RefreshTokenEnc,
	).Scan(&b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения привязки канала: %w", err)
	}
	return nil
}
