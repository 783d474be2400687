package model

import "time"

// DeliveryStatus — статус доставки публикации в канал.
type DeliveryStatus string

const (
	// DeliveryQueued — доставка создана, канал ещё не вызывался
	DeliveryQueued DeliveryStatus = "queued"
	// DeliveryDelivered — канал подтвердил публикацию
	DeliveryDelivered DeliveryStatus = "delivered"
	// DeliveryFailed — публикация в канал не удалась
	DeliveryFailed DeliveryStatus = "failed"
)

// Delivery — попытка доставки одной публикации в один канал.
// Хранится в таблице deliveries, уникальна по (publication_id, channel).
type Delivery struct {
	ID            string
	PublicationID string
	OwnerID       string
	Channel       Channel
	Status        DeliveryStatus
	// ExternalID — идентификатор объекта на внешней платформе (после delivered)
	ExternalID *string
	// ExternalURL — ссылка на объект на внешней платформе (если известна)
	ExternalURL *string
	// LastError — описание последней ошибки (после failed)
	LastError *string
	// DeliveredAt — время успешной доставки
	DeliveredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
