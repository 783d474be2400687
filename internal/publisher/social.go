package publisher

import (
	"context"
	"net/url"
	"strings"

	"github.com/bigkaa/goartstore/publication-module/internal/channelclient"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// payloadBuilder строит путь ресурса и тело запроса для платформы.
type payloadBuilder func(resourceID string, in Input) (path string, payload any)

// SocialPublisher публикует каноническое сообщение в социальную сеть
// с токеном доступа из привязки. Хэштеги передаются отдельным полем.
type SocialPublisher struct {
	channel      model.Channel
	requireImage bool
	client       PlatformClient
	decrypter    Decrypter
	build        payloadBuilder
}

// NewSocialPagePublisher создаёт стратегию social_page.
func NewSocialPagePublisher(client PlatformClient, decrypter Decrypter) *SocialPublisher {
	return &SocialPublisher{
		channel:   model.ChannelSocialPage,
		client:    client,
		decrypter: decrypter,
		build: func(resourceID string, in Input) (string, any) {
			return url.PathEscape(resourceID) + "/feed", map[string]any{
				"message":    in.Message(),
				"hashtags":   nonNilStrings(in.Hashtags),
				"image_urls": nonNilStrings(in.ImageURLs),
			}
		},
	}
}

// NewSocialPhotoPublisher создаёт стратегию social_photo.
// Публикация без изображения невозможна.
func NewSocialPhotoPublisher(client PlatformClient, decrypter Decrypter) *SocialPublisher {
	return &SocialPublisher{
		channel:      model.ChannelSocialPhoto,
		requireImage: true,
		client:       client,
		decrypter:    decrypter,
		build: func(resourceID string, in Input) (string, any) {
			return url.PathEscape(resourceID) + "/media", map[string]any{
				"caption":    in.Message(),
				"hashtags":   nonNilStrings(in.Hashtags),
				"image_url":  in.ImageURLs[0],
				"image_urls": in.ImageURLs,
			}
		},
	}
}

// NewProfessionalNetworkPublisher создаёт стратегию professional_network.
func NewProfessionalNetworkPublisher(client PlatformClient, decrypter Decrypter) *SocialPublisher {
	return &SocialPublisher{
		channel:   model.ChannelProfessionalNetwork,
		client:    client,
		decrypter: decrypter,
		build: func(resourceID string, in Input) (string, any) {
			return "posts", map[string]any{
				"author":     resourceID,
				"commentary": in.Message(),
				"visibility": "PUBLIC",
				"hashtags":   nonNilStrings(in.Hashtags),
				"image_urls": nonNilStrings(in.ImageURLs),
			}
		},
	}
}

func (p *SocialPublisher) Channel() model.Channel {
	return p.channel
}

func (p *SocialPublisher) Validate(in Input) *Failure {
	b := in.Binding
	if b == nil || strings.TrimSpace(b.ResourceID) == "" {
		return fail(model.ErrKindNotConfigured, "канал %s не подключён", p.channel)
	}
	if _, ok := p.decrypter.Decrypt(b.AccessTokenEnc); !ok {
		return fail(model.ErrKindNotConfigured, "токен доступа канала %s отсутствует или повреждён", p.channel)
	}
	if p.requireImage && len(in.ImageURLs) == 0 {
		return fail(model.ErrKindMissingImage, "для канала %s нужно хотя бы одно изображение", p.channel)
	}
	return nil
}

func (p *SocialPublisher) Execute(ctx context.Context, in Input) (*Success, error) {
	accessToken, ok := p.decrypter.Decrypt(in.Binding.AccessTokenEnc)
	if !ok {
		return nil, fail(model.ErrKindNotConfigured, "токен доступа канала %s отсутствует или повреждён", p.channel)
	}

	path, payload := p.build(in.Binding.ResourceID, in)
	res, err := p.client.Publish(ctx, channelclient.PublishRequest{
		AccessToken: accessToken,
		Path:        path,
		Payload:     payload,
	})
	if err != nil {
		return nil, err
	}

	return &Success{ExternalID: res.ID, ExternalURL: res.URL}, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
