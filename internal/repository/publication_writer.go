package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// PublicationWriter создаёт публикацию и её доставки атомарно.
// Если создание доставок не удалось, публикация не сохраняется.
type PublicationWriter interface {
	CreateWithDeliveries(ctx context.Context, p *model.Publication, channels []model.Channel) ([]*model.Delivery, error)
}

type publicationWriter struct {
	tx *TxRunner
}

// NewPublicationWriter создаёт транзакционный писатель публикаций.
func NewPublicationWriter(tx *TxRunner) PublicationWriter {
	return &publicationWriter{tx: tx}
}

func (w *publicationWriter) CreateWithDeliveries(
	ctx context.Context,
	p *model.Publication,
	channels []model.Channel,
) ([]*model.Delivery, error) {
	var deliveries []*model.Delivery

	err := w.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := NewPublicationRepository(tx).Create(ctx, p); err != nil {
			return err
		}

		created, err := NewDeliveryRepository(tx).CreateQueued(ctx, p.ID, p.OwnerID, channels)
		if err != nil {
			return fmt.Errorf("ошибка создания доставок публикации: %w", err)
		}
		deliveries = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
