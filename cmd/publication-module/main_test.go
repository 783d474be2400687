package main

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/publication-module/internal/config"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

type noBindings struct{}

func (noBindings) Get(context.Context, string, model.Channel) (*model.ChannelBinding, error) {
	return nil, nil
}

type noArticles struct{}

func (noArticles) Create(context.Context, *model.SiteArticle) error { return nil }

type plainDecrypter struct{}

func (plainDecrypter) Decrypt(s string) (string, bool) { return s, true }

func TestBuildRegistry_OnlyConfiguredPlatforms(t *testing.T) {
	cfg := &config.Config{
		SocialPageAPIURL:      "https://social.test",
		BusinessListingAPIURL: "https://listing.test",
		ChannelHTTPTimeout:    time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	channels := buildRegistry(cfg, noBindings{}, noArticles{}, plainDecrypter{}, logger).Channels()

	for _, want := range []model.Channel{
		model.ChannelInternalSiteA,
		model.ChannelInternalSiteB,
		model.ChannelSocialPage,
		model.ChannelBusinessListing,
	} {
		if !slices.Contains(channels, want) {
			t.Errorf("канал %s не зарегистрирован: %v", want, channels)
		}
	}
	for _, absent := range []model.Channel{model.ChannelSocialPhoto, model.ChannelProfessionalNetwork} {
		if slices.Contains(channels, absent) {
			t.Errorf("канал %s без URL API не должен регистрироваться", absent)
		}
	}
}
