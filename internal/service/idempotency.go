package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// IdempotencyCache — LRU-кэш соответствия ключа идемпотентности
// идентификатору публикации. Промах не означает отсутствия ключа:
// источник истины — колонка publications.idempotency_key.
type IdempotencyCache struct {
	cache *expirable.LRU[string, string]
}

// NewIdempotencyCache создаёт кэш на maxSize записей со временем жизни ttl.
func NewIdempotencyCache(maxSize int, ttl time.Duration) *IdempotencyCache {
	return &IdempotencyCache{cache: expirable.NewLRU[string, string](maxSize, nil, ttl)}
}

// Get возвращает ID публикации для ключа владельца.
func (c *IdempotencyCache) Get(ownerID, key string) (string, bool) {
	id, ok := c.cache.Get(cacheKey(ownerID, key))
	if ok {
		idempotencyHitsTotal.Inc()
		return id, true
	}
	idempotencyMissesTotal.Inc()
	return "", false
}

// Set запоминает ID публикации для ключа владельца.
func (c *IdempotencyCache) Set(ownerID, key, publicationID string) {
	c.cache.Add(cacheKey(ownerID, key), publicationID)
}

func cacheKey(ownerID, key string) string {
	return ownerID + ":" + key
}
