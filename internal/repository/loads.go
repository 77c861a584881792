package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/entity"
)

// LoadRepository is the canonical load store, partitioned by account.
type LoadRepository interface {
	ListByAccount(ctx context.Context, account string) ([]entity.Load, error)
	// UpsertBatch persists the batch atomically: either every row lands or
	// none do. Rows must already be deduplicated by load_id.
	UpsertBatch(ctx context.Context, account string, loads []entity.Load) error
	DeleteByAccount(ctx context.Context, account string) (int64, error)
}

type loadRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewLoadRepository(pool *pgxpool.Pool, logger *slog.Logger) LoadRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &loadRepository{pool: pool, logger: logger}
}

func (r *loadRepository) ListByAccount(ctx context.Context, account string) ([]entity.Load, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT doc FROM loads WHERE account_id = $1 ORDER BY created_at, load_id`,
		account)
	if err != nil {
		r.logger.Error("failed to list loads", "account", account, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []entity.Load
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		var l entity.Load
		if err := json.Unmarshal(doc, &l); err != nil {
			return nil, fmt.Errorf("decode load doc: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return out, nil
}

func (r *loadRepository) UpsertBatch(ctx context.Context, account string, loads []entity.Load) error {
	if len(loads) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			r.logger.Warn("load upsert rollback error", "error", rbErr)
		}
	}()

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, l := range loads {
		doc, mErr := json.Marshal(l)
		if mErr != nil {
			return fmt.Errorf("encode load doc: %w", mErr)
		}
		batch.Queue(`
			INSERT INTO loads (id, account_id, load_id, broker_name, broker_email, rate_total, miles, doc, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			ON CONFLICT (account_id, load_id) DO UPDATE SET
				broker_name  = EXCLUDED.broker_name,
				broker_email = EXCLUDED.broker_email,
				rate_total   = EXCLUDED.rate_total,
				miles        = EXCLUDED.miles,
				doc          = EXCLUDED.doc,
				updated_at   = EXCLUDED.updated_at`,
			uuid.New(), account, l.LoadID, l.Broker.Name, l.Broker.Email,
			l.RateTotal, l.Miles, doc, now)
	}

	br := tx.SendBatch(ctx, batch)
	for range loads {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			r.logger.Error("load batch upsert failed", "account", account, "error", err)
			return common.WrapError(common.ErrDatabase, err.Error())
		}
	}
	if err := br.Close(); err != nil {
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if err := tx.Commit(ctx); err != nil {
		return common.WrapError(common.ErrDatabase, err.Error())
	}

	r.logger.Info("loads upserted", "account", account, "rows", len(loads))
	return nil
}

func (r *loadRepository) DeleteByAccount(ctx context.Context, account string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM loads WHERE account_id = $1`, account)
	if err != nil {
		r.logger.Error("failed to clear loads", "account", account, "error", err)
		return 0, common.WrapError(common.ErrDatabase, err.Error())
	}
	r.logger.Info("loads cleared", "account", account, "rows", tag.RowsAffected())
	return tag.RowsAffected(), nil
}
