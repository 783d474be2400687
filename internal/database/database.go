// Пакет database — пул PostgreSQL модуля публикаций, схема
// publications/deliveries/events и readiness с учётом зависших доставок.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/goartstore/publication-module/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Параметры подключения при старте: PostgreSQL в кластере может
// подниматься позже сервиса.
const (
	connectAttempts  = 5
	connectBaseDelay = time.Second
)

// Connect создаёт пул подключений к PostgreSQL с application_name сервиса
// и ждёт доступности базы, повторяя ping с удвоением задержки.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "publication-module"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	delay := connectBaseDelay
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("PostgreSQL недоступен после %d попыток: %w", attempt, err)
		}
		logger.Warn("PostgreSQL недоступен, повтор",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	logger.Info("Пул PostgreSQL готов",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)

	return pool, nil
}

// Migrate доводит схему публикаций до последней версии.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("миграции публикаций: источник: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL("pgx5"))
	if err != nil {
		return fmt.Errorf("миграции публикаций: инициализация: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("миграции публикаций: применение: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Схема публикаций актуальна",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// StaleQueuedAfter — через сколько доставка в queued считается зависшей.
// Проход публикации укладывается в таймауты внешних вызовов, дольше
// queued держится только после сбоя процесса.
const StaleQueuedAfter = 10 * time.Minute

// ReadinessChecker — готовность хранилища публикаций для /health/ready:
// ping PostgreSQL и поиск зависших доставок.
type ReadinessChecker struct {
	pool       *pgxpool.Pool
	staleAfter time.Duration
}

// NewReadinessChecker создаёт проверку готовности хранилища публикаций.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool, staleAfter: StaleQueuedAfter}
}

// CheckReady возвращает "fail", если PostgreSQL недоступен или схема
// не применена, и "degraded", если есть доставки, зависшие в queued.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}

	var stale int64
	err := c.pool.QueryRow(ctx,
		`SELECT count(*) FROM deliveries
		 WHERE status = 'queued' AND created_at < NOW() - make_interval(secs => $1)`,
		c.staleAfter.Seconds(),
	).Scan(&stale)
	if err != nil {
		return "fail", fmt.Sprintf("таблица доставок недоступна: %v", err)
	}
	if stale > 0 {
		return "degraded", fmt.Sprintf("доставок в queued дольше %s: %d", c.staleAfter, stale)
	}
	return "ok", "подключение активно"
}
