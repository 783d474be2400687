package publisher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bigkaa/goartstore/publication-module/internal/channelclient"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

const (
	// maxListingSummary — предельная длина текста записи в каталоге (в символах)
	maxListingSummary = 1498
	// listingLocale — язык записи в каталоге
	listingLocale = "en-US"
)

// listingPost — тело запроса создания записи в каталоге организаций.
type listingPost struct {
	LanguageCode string         `json:"languageCode"`
	Summary      string         `json:"summary"`
	TopicType    string         `json:"topicType"`
	Media        []listingMedia `json:"media,omitempty"`
}

type listingMedia struct {
	MediaFormat string `json:"mediaFormat"`
	SourceURL   string `json:"sourceUrl"`
}

// BusinessListingPublisher публикует запись в карточке организации.
// Токен доступа получается по refresh token из привязки.
type BusinessListingPublisher struct {
	client    PlatformClient
	tokens    TokenSource
	decrypter Decrypter
}

// NewBusinessListingPublisher создаёт стратегию business_listing.
func NewBusinessListingPublisher(client PlatformClient, tokens TokenSource, decrypter Decrypter) *BusinessListingPublisher {
	return &BusinessListingPublisher{client: client, tokens: tokens, decrypter: decrypter}
}

func (p *BusinessListingPublisher) Channel() model.Channel {
	return model.ChannelBusinessListing
}

func (p *BusinessListingPublisher) Validate(in Input) *Failure {
	b := in.Binding
	if b == nil || strings.TrimSpace(b.ResourceID) == "" || strings.TrimSpace(b.LocationID) == "" {
		return fail(model.ErrKindNotConfigured, "не заданы аккаунт или точка в каталоге организаций")
	}
	if _, ok := p.decrypter.Decrypt(b.RefreshTokenEnc); !ok {
		return fail(model.ErrKindNotConfigured, "отсутствует refresh token каталога организаций")
	}
	return nil
}

func (p *BusinessListingPublisher) Execute(ctx context.Context, in Input) (*Success, error) {
	refreshToken, ok := p.decrypter.Decrypt(in.Binding.RefreshTokenEnc)
	if !ok {
		return nil, fail(model.ErrKindNotConfigured, "отсутствует refresh token каталога организаций")
	}

	accessToken, err := p.tokens.AccessToken(ctx, refreshToken)
	if err != nil {
		return nil, fail(model.ErrKindTokenRefreshFailed, "не удалось обновить токен: %v", err)
	}

	post := listingPost{
		LanguageCode: listingLocale,
		Summary:      TruncateRunes(PlainText(in.Message()), maxListingSummary),
		TopicType:    "STANDARD",
	}
	for _, u := range in.ImageURLs {
		post.Media = append(post.Media, listingMedia{MediaFormat: "PHOTO", SourceURL: u})
	}

	res, err := p.client.Publish(ctx, channelclient.PublishRequest{
		AccessToken: accessToken,
		Path: fmt.Sprintf("accounts/%s/locations/%s/localPosts",
			url.PathEscape(in.Binding.ResourceID), url.PathEscape(in.Binding.LocationID)),
		Payload: post,
	})
	if err != nil {
		return nil, err
	}

	return &Success{ExternalID: res.ID, ExternalURL: res.URL}, nil
}
