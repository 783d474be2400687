package model

import (
	"strings"
	"time"
)

// Ограничения публикации.
const (
	// MaxHashtags — максимальное количество хэштегов
	MaxHashtags = 6
	// MaxImages — максимальное количество изображений на публикацию
	MaxImages = 5
)

// Publication — каноническая запись публикации.
// Хранится в таблице publications, после создания не изменяется.
type Publication struct {
	// ID — UUID публикации (генерируется до вставки)
	ID string
	// OwnerID — идентификатор владельца (sub из JWT)
	OwnerID string
	// Title — заголовок (может быть пустым)
	Title string
	// Body — основной текст (не пустой после trim)
	Body string
	// CTA — призыв к действию (может быть пустым)
	CTA string
	// Hashtags — хэштеги без '#', не более MaxHashtags
	Hashtags []string
	// Images — постоянные URL успешно загруженных изображений
	Images []string
	// Idea — исходная идея/бриф (произвольный текст)
	Idea string
	// IdempotencyKey — ключ идемпотентности запроса (опционально)
	IdempotencyKey *string
	// CreatedAt — время создания
	CreatedAt time.Time
}

// NormalizeHashtags убирает пробелы и ведущие '#', отбрасывает пустые
// значения и обрезает список до MaxHashtags. Порядок сохраняется,
// дубликаты не удаляются.
func NormalizeHashtags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimLeft(strings.TrimSpace(tag), "#")
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		result = append(result, tag)
		if len(result) == MaxHashtags {
			break
		}
	}
	return result
}

// CanonicalMessage собирает текст публикации для каналов с единым сообщением:
// заголовок, текст и призыв к действию через пустую строку.
// Пустые заголовок и призыв пропускаются.
func CanonicalMessage(title, body, cta string) string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(title); t != "" {
		parts = append(parts, t)
	}
	parts = append(parts, strings.TrimSpace(body))
	if c := strings.TrimSpace(cta); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, "\n\n")
}
