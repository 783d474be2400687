// Пакет model — доменные модели Publication Module.
package model

import (
	"fmt"
	"strings"
)

// Channel — идентификатор канала распространения публикации.
type Channel string

const (
	// ChannelInternalSiteA — собственный сайт владельца
	ChannelInternalSiteA Channel = "internal_site_a"
	// ChannelInternalSiteB — партнёрский сайт
	ChannelInternalSiteB Channel = "internal_site_b"
	// ChannelBusinessListing — карточка организации в каталоге
	ChannelBusinessListing Channel = "business_listing"
	// ChannelSocialPage — страница в социальной сети
	ChannelSocialPage Channel = "social_page"
	// ChannelSocialPhoto — фото-ориентированная социальная сеть (требует изображение)
	ChannelSocialPhoto Channel = "social_photo"
	// ChannelProfessionalNetwork — профессиональная сеть
	ChannelProfessionalNetwork Channel = "professional_network"
)

// AllChannels возвращает все известные каналы в каноническом порядке.
func AllChannels() []Channel {
	return []Channel{
		ChannelInternalSiteA,
		ChannelInternalSiteB,
		ChannelBusinessListing,
		ChannelSocialPage,
		ChannelSocialPhoto,
		ChannelProfessionalNetwork,
	}
}

// Valid проверяет, является ли канал известным.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInternalSiteA, ChannelInternalSiteB, ChannelBusinessListing,
		ChannelSocialPage, ChannelSocialPhoto, ChannelProfessionalNetwork:
		return true
	default:
		return false
	}
}

// ParseChannel преобразует строку в Channel.
// Возвращает ошибку для неизвестных значений.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.TrimSpace(s))
	if !c.Valid() {
		return "", fmt.Errorf("неизвестный канал: %q", s)
	}
	return c, nil
}

// DedupChannels убирает повторы и пустые значения, сохраняя порядок первого вхождения.
func DedupChannels(channels []Channel) []Channel {
	seen := make(map[Channel]bool, len(channels))
	result := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		result = append(result, c)
	}
	return result
}
