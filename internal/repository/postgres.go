// Package repository содержит реализацию хранения платёжных намерений
// и возвратов в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrIntentNotFound возвращается, если платёжное намерение не найдено.
var (
	ErrIntentNotFound = errors.New("payment intent not found")
	// ErrIntentExists возвращается при попытке повторно сохранить намерение.
	ErrIntentExists = errors.New("payment intent already exists")
)

// PostgresRepository предоставляет доступ к хранилищу расчётов в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateIntent сохраняет новое платёжное намерение.
func (r *PostgresRepository) CreateIntent(ctx context.Context, intent *model.PaymentIntent) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO payment_intents
			 (id, order_id, amount, currency, gateway, status, provider_id, provider_payment_id,
			  client_secret, customer_email, customer_name, customer_phone, metadata,
			  fee, total, needs_reconciliation, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			intent.ID, intent.OrderID, intent.AmountCents, intent.Currency, intent.Gateway,
			string(intent.Status), intent.ProviderID, intent.ProviderPaymentID,
			intent.ClientSecret, intent.CustomerEmail, intent.CustomerName, intent.CustomerPhone,
			intent.Metadata, intent.FeeCents, intent.TotalCents, intent.NeedsReconciliation,
			intent.CreatedAt, intent.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: %s", ErrIntentExists, intent.ID)
			}
			return fmt.Errorf("insert intent: %w", err)
		}
		return nil
	})
}

// GetIntent возвращает платёжное намерение по идентификатору.
func (r *PostgresRepository) GetIntent(ctx context.Context, id string) (*model.PaymentIntent, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, order_id, amount, currency, gateway, status, provider_id, provider_payment_id,
		        client_secret, customer_email, customer_name, customer_phone, metadata,
		        fee, total, needs_reconciliation, created_at, updated_at
		 FROM payment_intents WHERE id = $1`,
		id,
	)

	var intent model.PaymentIntent
	var status string
	err := row.Scan(&intent.ID, &intent.OrderID, &intent.AmountCents, &intent.Currency,
		&intent.Gateway, &status, &intent.ProviderID, &intent.ProviderPaymentID,
		&intent.ClientSecret, &intent.CustomerEmail, &intent.CustomerName, &intent.CustomerPhone,
		&intent.Metadata, &intent.FeeCents, &intent.TotalCents, &intent.NeedsReconciliation,
		&intent.CreatedAt, &intent.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("get intent: %w", err)
	}

	intent.Status = model.IntentStatus(status)
	return &intent, nil
}

// UpdateIntentStatus атомарно переводит намерение из статуса from в to.
// Возвращает false, если намерение уже не в статусе from.
func (r *PostgresRepository) UpdateIntentStatus(ctx context.Context, id string, from, to model.IntentStatus) (bool, error) {
	var moved bool
	err := r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE payment_intents SET status = $1, updated_at = now()
			 WHERE id = $2 AND status = $3`,
			string(to), id, string(from),
		)
		if err != nil {
			return fmt.Errorf("update intent status: %w", err)
		}
		moved = cmdTag.RowsAffected() == 1
		return nil
	})
	return moved, err
}

// MarkIntentSucceeded фиксирует успешное подтверждение намерения.
// Переход выполняется только из статуса PROCESSING, конечные статусы
// не перезаписываются.
func (r *PostgresRepository) MarkIntentSucceeded(ctx context.Context, id, providerPaymentID string, feeCents, totalCents int64) (bool, error) {
	var moved bool
	err := r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE payment_intents
			 SET status = $1, provider_payment_id = $2, fee = $3, total = $4, updated_at = now()
			 WHERE id = $5 AND status = $6`,
			string(model.IntentStatusSucceeded), providerPaymentID, feeCents, totalCents,
			id, string(model.IntentStatusProcessing),
		)
		if err != nil {
			return fmt.Errorf("mark intent succeeded: %w", err)
		}
		moved = cmdTag.RowsAffected() == 1
		return nil
	})
	return moved, err
}

// MarkIntentFailed переводит намерение в FAILED. Успешные намерения
// не затрагиваются: регресса из SUCCEEDED нет.
func (r *PostgresRepository) MarkIntentFailed(ctx context.Context, id, providerPaymentID string, needsReconciliation bool) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE payment_intents
			 SET status = $1,
			     provider_payment_id = CASE WHEN $2 <> '' THEN $2 ELSE provider_payment_id END,
			     needs_reconciliation = $3,
			     updated_at = now()
			 WHERE id = $4 AND status NOT IN ($5, $6)`,
			string(model.IntentStatusFailed), providerPaymentID, needsReconciliation,
			id, string(model.IntentStatusSucceeded), string(model.IntentStatusCancelled),
		)
		if err != nil {
			return fmt.Errorf("mark intent failed: %w", err)
		}
		return nil
	})
}

// CreateRefund сохраняет возврат по платёжному намерению.
func (r *PostgresRepository) CreateRefund(ctx context.Context, refund *model.Refund) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO refunds (id, intent_id, amount, reason, status, provider_refund_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			refund.ID, refund.IntentID, refund.AmountCents, refund.Reason,
			string(refund.Status), refund.ProviderRefundID, refund.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert refund: %w", err)
		}
		return nil
	})
}

// SumRefunded возвращает сумму успешных возвратов по намерению.
func (r *PostgresRepository) SumRefunded(ctx context.Context, intentID string) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refunds
		 WHERE intent_id = $1 AND status = $2`,
		intentID, string(model.RefundStatusSucceeded),
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum refunded: %w", err)
	}
	return sum, nil
}

// GetRefundsByIntent возвращает возвраты по намерению.
func (r *PostgresRepository) GetRefundsByIntent(ctx context.Context, intentID string) ([]model.Refund, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, intent_id, amount, reason, status, provider_refund_id, created_at
		 FROM refunds WHERE intent_id = $1 ORDER BY created_at`,
		intentID,
	)
	if err != nil {
		return nil, fmt.Errorf("select refunds: %w", err)
	}
	defer rows.Close()

	var refunds []model.Refund
	for rows.Next() {
		var (
			refund model.Refund
			status string
		)
		if err := rows.Scan(&refund.ID, &refund.IntentID, &refund.AmountCents,
			&refund.Reason, &status, &refund.ProviderRefundID, &refund.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan refund: %w", err)
		}
		refund.Status = model.RefundStatus(status)
		refunds = append(refunds, refund)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refunds: %w", err)
	}

	return refunds, nil
}

// IntentsForReconciliation возвращает неуспешные намерения, помеченные
// для ручной сверки.
func (r *PostgresRepository) IntentsForReconciliation(ctx context.Context, limit int) ([]model.PaymentIntent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, amount, currency, gateway, status, provider_id, provider_payment_id,
		        client_secret, customer_email, customer_name, customer_phone, metadata,
		        fee, total, needs_reconciliation, created_at, updated_at
		 FROM payment_intents
		 WHERE needs_reconciliation = TRUE
		 ORDER BY updated_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select intents for reconciliation: %w", err)
	}
	defer rows.Close()

	var intents []model.PaymentIntent
	for rows.Next() {
		var (
			intent model.PaymentIntent
			status string
		)
		if err := rows.Scan(&intent.ID, &intent.OrderID, &intent.AmountCents, &intent.Currency,
			&intent.Gateway, &status, &intent.ProviderID, &intent.ProviderPaymentID,
			&intent.ClientSecret, &intent.CustomerEmail, &intent.CustomerName, &intent.CustomerPhone,
			&intent.Metadata, &intent.FeeCents, &intent.TotalCents, &intent.NeedsReconciliation,
			&intent.CreatedAt, &intent.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		intent.Status = model.IntentStatus(status)
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intents: %w", err)
	}

	return intents, nil
}

// ResolveReconciliation снимает с намерения флаг ручной сверки.
func (r *PostgresRepository) ResolveReconciliation(ctx context.Context, id string) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE payment_intents SET needs_reconciliation = FALSE, updated_at = now()
			 WHERE id = $1`,
			id,
		)
		if err != nil {
			return fmt.Errorf("resolve reconciliation: %w", err)
		}
		return nil
	})
}
