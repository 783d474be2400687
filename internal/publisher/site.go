package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// SitePublisher размещает публикацию статьей на внутреннем сайте.
// internal_site_a — собственный сайт владельца (нужны site_url и ownership),
// internal_site_b — партнёрский сайт (нужен site_url).
type SitePublisher struct {
	channel          model.Channel
	requireOwnership bool
	articles         ArticleStore
}

// NewOwnedSitePublisher создаёт стратегию internal_site_a.
func NewOwnedSitePublisher(articles ArticleStore) *SitePublisher {
	return &SitePublisher{channel: model.ChannelInternalSiteA, requireOwnership: true, articles: articles}
}

// NewPartnerSitePublisher создаёт стратегию internal_site_b.
func NewPartnerSitePublisher(articles ArticleStore) *SitePublisher {
	return &SitePublisher{channel: model.ChannelInternalSiteB, articles: articles}
}

func (p *SitePublisher) Channel() model.Channel {
	return p.channel
}

func (p *SitePublisher) Validate(in Input) *Failure {
	if in.Binding == nil || strings.TrimSpace(in.Binding.SiteURL) == "" {
		return fail(model.ErrKindNotConfigured, "для канала %s не задан адрес сайта", p.channel)
	}
	if p.requireOwnership {
		ownership := strings.TrimSpace(in.Binding.Ownership)
		if ownership == "" || ownership == model.OwnershipNone {
			return fail(model.ErrKindNotConfigured, "владелец не подтвердил права на сайт")
		}
	}
	return nil
}

func (p *SitePublisher) Execute(ctx context.Context, in Input) (*Success, error) {
	source := in.Title
	if strings.TrimSpace(source) == "" {
		source = TruncateRunes(PlainText(in.Body), maxSlugRunes)
	}

	id := uuid.New().String()
	slug := Slugify(source)
	siteURL := strings.TrimRight(strings.TrimSpace(in.Binding.SiteURL), "/")

	article := &model.SiteArticle{
		ID:            id,
		PublicationID: in.PublicationID,
		OwnerID:       in.OwnerID,
		Channel:       p.channel,
		Slug:          slug,
		Title:         in.Title,
		Body:          in.Body,
		CTA:           in.CTA,
		Hashtags:      in.Hashtags,
		Images:        in.StoredImages,
		URL:           fmt.Sprintf("%s/%s-%s", siteURL, slug, id[:8]),
	}
	if err := p.articles.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("сохранение статьи: %w", err)
	}

	return &Success{ExternalID: article.ID, ExternalURL: article.URL}, nil
}
