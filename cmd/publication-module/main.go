// Точка входа Publication Module — публикация контента в несколько каналов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// собирает хранилище медиа, клиенты платформ, реестр стратегий и сервис
// публикации, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"slices"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/publication-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/publication-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/publication-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/publication-module/internal/channelclient"
	"github.com/bigkaa/goartstore/publication-module/internal/config"
	"github.com/bigkaa/goartstore/publication-module/internal/database"
	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
	"github.com/bigkaa/goartstore/publication-module/internal/media"
	"github.com/bigkaa/goartstore/publication-module/internal/publisher"
	"github.com/bigkaa/goartstore/publication-module/internal/repository"
	"github.com/bigkaa/goartstore/publication-module/internal/server"
	"github.com/bigkaa/goartstore/publication-module/internal/service"
	"github.com/bigkaa/goartstore/publication-module/internal/storage/filestore"
	"github.com/bigkaa/goartstore/publication-module/internal/tokencipher"
)

// requestOverhead — запас на JSON-обёртку запроса сверх изображений.
const requestOverhead = 1 << 20

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Publication Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("PM_DEPHEALTH_GROUP") == "" {
		logger.Warn("PM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	txRunner := repository.NewTxRunner(pool)
	pubRepo := repository.NewPublicationRepository(pool)
	deliveryRepo := repository.NewDeliveryRepository(pool)
	bindingRepo := repository.NewChannelBindingRepository(pool)
	articleRepo := repository.NewSiteArticleRepository(pool)
	eventRepo := repository.NewEventLogRepository(pool)

	// 6. Шифрование токенов привязок
	cipher, err := tokencipher.New(cfg.TokenEncryptionKey)
	if err != nil {
		logger.Error("Ошибка инициализации шифрования токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Хранилище медиа и приём изображений
	store, err := filestore.New(cfg.MediaDir, cfg.MediaPublicBaseURL, cfg.MediaSigningKey)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища медиа", slog.String("error", err.Error()))
		os.Exit(1)
	}
	ingester := media.NewIngester(store, cfg.MediaSignedURLTTL, cfg.MediaMaxImageBytes, logger)

	// 8. Реестр стратегий каналов
	registry := buildRegistry(cfg, bindingRepo, articleRepo, cipher, logger)
	logger.Info("Реестр каналов собран",
		slog.Int("channels", len(registry.Channels())),
	)

	// 9. Сервис публикации
	var idempotency *service.IdempotencyCache
	if cfg.IdempotencyCacheSize > 0 {
		idempotency = service.NewIdempotencyCache(cfg.IdempotencyCacheSize, cfg.IdempotencyCacheTTL)
	}
	publicationSvc := service.NewPublicationService(
		ingester,
		repository.NewPublicationWriter(txRunner),
		pubRepo,
		deliveryRepo,
		registry,
		eventRepo,
		idempotency,
		logger,
	)

	// 10. Аутентификация
	var auth func(http.Handler) http.Handler
	if cfg.AuthEnabled {
		jwtAuth, jwtErr := middleware.NewJWTAuth(cfg.JWTJWKSURL, cfg.JWTIssuer, cfg.JWTLeeway, nil, logger)
		if jwtErr != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", jwtErr.Error()))
			os.Exit(1)
		}
		auth = jwtAuth.Middleware()
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		auth = middleware.HeaderAuth()
		logger.Warn("Аутентификация отключена, владелец берётся из заголовка",
			slog.String("header", middleware.OwnerHeader),
		)
	}

	// 11. Проверка запросов по OpenAPI-контракту
	doc, err := openapi.Load()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := openapi.NewValidator(doc, logger)
	if err != nil {
		logger.Error("Ошибка создания валидатора запросов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. topologymetrics — мониторинг зависимостей
	jwksURL := ""
	if cfg.AuthEnabled {
		jwksURL = cfg.JWTJWKSURL
	}
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "publication-module",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PGConnURL:     cfg.DatabaseURL("postgres"),
		JWKSURL:       jwksURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. HTTP-сервер
	srv := server.New(cfg, logger, server.Routes{
		API:          handlers.NewAPIHandler(publicationSvc, logger),
		Health:       handlers.NewHealthHandler(database.NewReadinessChecker(pool), store),
		Media:        handlers.NewMediaHandler(store, logger),
		Auth:         auth,
		RateLimit:    middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		Validator:    validator,
		MaxBodyBytes: int64(cfg.MediaMaxImageBytes)*model.MaxImages*4/3 + requestOverhead,
	})

	// 14. Запуск сервера (блокирующий вызов с graceful shutdown)
	runErr := srv.Run()

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	logger.Info("Publication Module остановлен")
}

// buildRegistry регистрирует стратегии. Внутренние сайты доступны всегда,
// внешние платформы — только при заданном URL API.
func buildRegistry(
	cfg *config.Config,
	bindings publisher.BindingSource,
	articles publisher.ArticleStore,
	decrypter publisher.Decrypter,
	logger *slog.Logger,
) *publisher.Registry {
	httpClient := &http.Client{Timeout: cfg.ChannelHTTPTimeout}

	registry := publisher.NewRegistry(bindings, logger,
		publisher.NewOwnedSitePublisher(articles),
		publisher.NewPartnerSitePublisher(articles),
	)

	if cfg.SocialPageAPIURL != "" {
		client := channelclient.New(string(model.ChannelSocialPage), cfg.SocialPageAPIURL, httpClient, logger)
		registry.Register(publisher.NewSocialPagePublisher(client, decrypter))
	}
	if cfg.SocialPhotoAPIURL != "" {
		client := channelclient.New(string(model.ChannelSocialPhoto), cfg.SocialPhotoAPIURL, httpClient, logger)
		registry.Register(publisher.NewSocialPhotoPublisher(client, decrypter))
	}
	if cfg.ProfessionalNetworkAPIURL != "" {
		client := channelclient.New(string(model.ChannelProfessionalNetwork), cfg.ProfessionalNetworkAPIURL, httpClient, logger)
		registry.Register(publisher.NewProfessionalNetworkPublisher(client, decrypter))
	}
	if cfg.BusinessListingAPIURL != "" {
		client := channelclient.New(string(model.ChannelBusinessListing), cfg.BusinessListingAPIURL, httpClient, logger)
		tokens := channelclient.NewTokenRefresher(
			cfg.BusinessListingTokenURL,
			cfg.BusinessListingClientID,
			cfg.BusinessListingClientSecret,
			httpClient,
			logger,
		)
		registry.Register(publisher.NewBusinessListingPublisher(client, tokens, decrypter))
	}

	for _, ch := range model.AllChannels() {
		if !slices.Contains(registry.Channels(), ch) {
			logger.Warn("Канал не настроен, публикация вернёт unsupported_channel",
				slog.String("channel", string(ch)),
			)
		}
	}

	return registry
}
