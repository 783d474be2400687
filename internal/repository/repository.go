// Пакет repository — хранение публикаций, доставок, привязок каналов,
// статей внутренних сайтов и журнала событий в PostgreSQL.
// Простые запросы — SQL через pgx, запросы с условной сборкой — squirrel.
package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrTransitionRejected — доставка не в статусе queued, переход отклонён.
	ErrTransitionRejected = errors.New("переход статуса доставки отклонён")
)

// psql — построитель запросов squirrel с плейсхолдерами PostgreSQL ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DBTX — общий интерфейс *pgxpool.Pool и pgx.Tx для репозиториев.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner выполняет запись публикации и её доставок одной транзакцией.
type TxRunner struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewTxRunner создаёт TxRunner с уровнем изоляции READ COMMITTED:
// конкурирующие вставки с одним ключом идемпотентности разрешает
// уникальный индекс, а не сериализация.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// RunInTx выполняет fn в транзакции: ошибка fn откатывает её, иначе commit.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, r.pool, r.opts, fn)
	if err != nil {
		return fmt.Errorf("транзакция публикации: %w", err)
	}
	return nil
}

// uniqueConstraint возвращает имя нарушенного ограничения уникальности.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности.
func isUniqueViolation(err error) bool {
	_, ok := uniqueConstraint(err)
	return ok
}
