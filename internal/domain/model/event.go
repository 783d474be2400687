package model

import "time"

// EventPublicationPublished — вид события завершения публикации.
const EventPublicationPublished = "publication.published"

// Event — запись журнала событий (таблица publication_events).
type Event struct {
	ID            string
	OwnerID       string
	PublicationID string
	Kind          string
	// Payload — произвольные данные события, сериализуются в JSONB
	Payload   any
	CreatedAt time.Time
}

// PublishedPayload — данные события publication.published.
type PublishedPayload struct {
	Idea         string              `json:"idea"`
	Channels     []Channel           `json:"channels"`
	Post         PostSnapshot        `json:"post"`
	Images       []string            `json:"images"`
	UploadErrors []Diagnostic        `json:"upload_errors"`
	Results      map[Channel]Outcome `json:"results"`
}

// PostSnapshot — содержимое поста в событии.
type PostSnapshot struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	CTA      string   `json:"cta"`
	Hashtags []string `json:"hashtags"`
}
