package model

import "time"

// Ownership — отношение владельца к сайту, привязанному к каналу.
const (
	OwnershipNone    = "none"
	OwnershipOwned   = "owned"
	OwnershipManaged = "managed"
)

// ChannelBinding — настройки подключения владельца к каналу.
// Хранится в таблице channel_bindings, модулем только читается.
type ChannelBinding struct {
	OwnerID string
	Channel Channel
	// SiteURL — базовый URL сайта (для внутренних сайтов)
	SiteURL string
	// Ownership — none, owned, managed
	Ownership string
	// ConnectionStatus — состояние подключения (connected, disconnected, ...)
	ConnectionStatus string
	// ResourceID — идентификатор страницы/аккаунта на платформе
	ResourceID string
	// LocationID — идентификатор точки (для business_listing)
	LocationID string
	// AccessTokenEnc — зашифрованный токен доступа
	AccessTokenEnc string
	// RefreshTokenEnc — зашифрованный refresh-токен
	RefreshTokenEnc string
	UpdatedAt       time.Time
}
