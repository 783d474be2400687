package model

import "time"

// SiteArticle — статья, размещённая на внутреннем сайте (internal_site_a/b).
// Хранится в таблице site_articles.
type SiteArticle struct {
	ID            string
	PublicationID string
	OwnerID       string
	Channel       Channel
	Slug          string
	Title         string
	Body          string
	CTA           string
	Hashtags      []string
	Images        []string
	URL           string
	CreatedAt     time.Time
}
