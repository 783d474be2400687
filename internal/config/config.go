// Пакет config — загрузка и валидация конфигурации Publication Module
// из переменных окружения (префикс PM_) и опционального YAML-файла.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Publication Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8010-8019)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут чтения HTTP-запроса
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-ответа
	HTTPWriteTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Аутентификация (JWT, RS256 через JWKS) ---

	// Включена ли проверка JWT. При false владелец берётся из X-Owner-ID (dev-режим).
	AuthEnabled bool
	// URL JWKS endpoint
	JWTJWKSURL string
	// Ожидаемый issuer (опционально)
	JWTIssuer string
	// Допуск по времени при проверке exp/nbf
	JWTLeeway time.Duration

	// --- Rate limiting ---

	// Запросов в секунду на пару владелец+операция
	RateLimitRPS float64
	// Размер burst
	RateLimitBurst int

	// --- Медиа ---

	// Каталог хранения загруженных изображений
	MediaDir string
	// Внешний базовый URL сервиса для публичных ссылок на медиа
	MediaPublicBaseURL string
	// Ключ HMAC для подписанных ссылок
	MediaSigningKey string
	// Срок действия подписанной ссылки
	MediaSignedURLTTL time.Duration
	// Максимальный размер одного изображения после декодирования
	MediaMaxImageBytes int

	// --- Шифрование токенов каналов ---

	// Ключ AES-256 для расшифровки токенов доступа (base64 или произвольная строка)
	TokenEncryptionKey string

	// --- Каналы ---

	// URL API платформ. Пустое значение — канал не регистрируется.
	SocialPageAPIURL            string
	SocialPhotoAPIURL           string
	ProfessionalNetworkAPIURL   string
	BusinessListingAPIURL       string
	BusinessListingTokenURL     string
	BusinessListingClientID     string
	BusinessListingClientSecret string
	// Таймаут одного HTTP-вызова к внешней платформе
	ChannelHTTPTimeout time.Duration

	// --- Идемпотентность ---

	// Размер LRU-кэша ключей идемпотентности
	IdempotencyCacheSize int
	// TTL записи кэша ключей идемпотентности
	IdempotencyCacheTTL time.Duration

	// --- Мониторинг зависимостей ---

	// Группа в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения (и файла PM_CONFIG_FILE,
// если он задан), валидирует обязательные поля и возвращает Config или ошибку.
// Переменные окружения имеют приоритет над значениями из файла.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PM")
	v.AutomaticEnv()

	if path := os.Getenv("PM_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("PM_CONFIG_FILE: ошибка чтения файла %q: %w", path, err)
		}
	}

	l := &loader{v: v}
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = l.getInt("PORT", 8010)
	if err != nil {
		return nil, err
	}
	if cfg.Port < 8010 || cfg.Port > 8019 {
		return nil, fmt.Errorf("PM_PORT: значение %d вне допустимого диапазона 8010-8019", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(l.getDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = l.getDefault("LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	if cfg.HTTPReadTimeout, err = l.getDuration("HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	// Публикация в несколько каналов последовательно — запись ответа может быть долгой
	if cfg.HTTPWriteTimeout, err = l.getDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = l.getRequired("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.DBPort, err = l.getInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.DBName, err = l.getRequired("DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = l.getRequired("DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = l.getRequired("DB_PASSWORD"); err != nil {
		return nil, err
	}

	cfg.DBSSLMode = l.getDefault("DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Аутентификация ---

	if cfg.AuthEnabled, err = l.getBool("AUTH_ENABLED", true); err != nil {
		return nil, err
	}
	cfg.JWTJWKSURL = strings.TrimSpace(l.getDefault("JWT_JWKS_URL", ""))
	if cfg.AuthEnabled && cfg.JWTJWKSURL == "" {
		return nil, fmt.Errorf("PM_JWT_JWKS_URL: обязателен при PM_AUTH_ENABLED=true")
	}
	cfg.JWTIssuer = l.getDefault("JWT_ISSUER", "")
	if cfg.JWTLeeway, err = l.getDuration("JWT_LEEWAY", 5*time.Second); err != nil {
		return nil, err
	}

	// --- Rate limiting ---

	if cfg.RateLimitRPS, err = l.getFloat("RATE_LIMIT_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("PM_RATE_LIMIT_RPS: значение %v должно быть больше 0", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst, err = l.getInt("RATE_LIMIT_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("PM_RATE_LIMIT_BURST: значение %d должно быть не меньше 1", cfg.RateLimitBurst)
	}

	// --- Медиа ---

	cfg.MediaDir = l.getDefault("MEDIA_DIR", "/var/lib/publication-module/media")
	if cfg.MediaPublicBaseURL, err = l.getRequired("MEDIA_PUBLIC_BASE_URL"); err != nil {
		return nil, err
	}
	cfg.MediaPublicBaseURL = strings.TrimRight(cfg.MediaPublicBaseURL, "/")
	if cfg.MediaSigningKey, err = l.getRequired("MEDIA_SIGNING_KEY"); err != nil {
		return nil, err
	}
	if cfg.MediaSignedURLTTL, err = l.getDuration("MEDIA_SIGNED_URL_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MediaMaxImageBytes, err = l.getInt("MEDIA_MAX_IMAGE_BYTES", 10<<20); err != nil {
		return nil, err
	}
	if cfg.MediaMaxImageBytes < 1 {
		return nil, fmt.Errorf("PM_MEDIA_MAX_IMAGE_BYTES: значение %d должно быть больше 0", cfg.MediaMaxImageBytes)
	}

	// --- Шифрование токенов ---

	if cfg.TokenEncryptionKey, err = l.getRequired("TOKEN_ENCRYPTION_KEY"); err != nil {
		return nil, err
	}

	// --- Каналы ---

	cfg.SocialPageAPIURL = trimURL(l.getDefault("SOCIAL_PAGE_API_URL", ""))
	cfg.SocialPhotoAPIURL = trimURL(l.getDefault("SOCIAL_PHOTO_API_URL", ""))
	cfg.ProfessionalNetworkAPIURL = trimURL(l.getDefault("PROFESSIONAL_NETWORK_API_URL", ""))
	cfg.BusinessListingAPIURL = trimURL(l.getDefault("BUSINESS_LISTING_API_URL", ""))
	cfg.BusinessListingTokenURL = l.getDefault("BUSINESS_LISTING_TOKEN_URL", "")
	cfg.BusinessListingClientID = l.getDefault("BUSINESS_LISTING_CLIENT_ID", "")
	cfg.BusinessListingClientSecret = l.getDefault("BUSINESS_LISTING_CLIENT_SECRET", "")
	if cfg.BusinessListingAPIURL != "" && cfg.BusinessListingTokenURL == "" {
		return nil, fmt.Errorf("PM_BUSINESS_LISTING_TOKEN_URL: обязателен при заданном PM_BUSINESS_LISTING_API_URL")
	}
	if cfg.ChannelHTTPTimeout, err = l.getDuration("CHANNEL_HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	// --- Идемпотентность ---

	if cfg.IdempotencyCacheSize, err = l.getInt("IDEMPOTENCY_CACHE_SIZE", 10000); err != nil {
		return nil, err
	}
	if cfg.IdempotencyCacheSize < 1 {
		return nil, fmt.Errorf("PM_IDEMPOTENCY_CACHE_SIZE: значение %d должно быть больше 0", cfg.IdempotencyCacheSize)
	}
	if cfg.IdempotencyCacheTTL, err = l.getDuration("IDEMPOTENCY_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	// --- Мониторинг зависимостей ---

	cfg.DephealthGroup = l.getDefault("DEPHEALTH_GROUP", "artstore")
	if cfg.DephealthCheckInterval, err = l.getDuration("DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	// --- Graceful shutdown ---

	if cfg.ShutdownTimeout, err = l.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для golang-migrate и меток dephealth).
func (c *Config) DatabaseURL(scheme string) string {
	return fmt.Sprintf(
		"%s://%s:%s@%s:%d/%s?sslmode=%s",
		scheme, c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loader читает значения из viper. Ключ передаётся без префикса,
// в сообщениях об ошибках — полное имя переменной окружения.
type loader struct {
	v *viper.Viper
}

func envName(key string) string {
	return "PM_" + key
}

func (l *loader) raw(key string) string {
	return strings.TrimSpace(l.v.GetString(strings.ToLower(key)))
}

// getRequired возвращает значение или ошибку, если оно не задано.
func (l *loader) getRequired(key string) (string, error) {
	val := l.raw(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", envName(key))
	}
	return val, nil
}

// getDefault возвращает значение или значение по умолчанию.
func (l *loader) getDefault(key, defaultVal string) string {
	val := l.raw(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (l *loader) getInt(key string, defaultVal int) (int, error) {
	val := l.raw(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: некорректное целое число: %q", envName(key), val)
	}
	return n, nil
}

func (l *loader) getFloat(key string, defaultVal float64) (float64, error) {
	val := l.raw(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: некорректное число: %q", envName(key), val)
	}
	return f, nil
}

func (l *loader) getBool(key string, defaultVal bool) (bool, error) {
	val := l.raw(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: некорректное булево значение: %q", envName(key), val)
	}
	return b, nil
}

// getDuration возвращает time.Duration или значение по умолчанию.
func (l *loader) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := l.raw(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", envName(key), val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

func trimURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}
