package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/entity"
)

// InteractionRepository stores user-authored CRM log entries per broker.
type InteractionRepository interface {
	ListByBroker(ctx context.Context, account string, brokerID uuid.UUID) ([]entity.BrokerInteraction, error)
	Create(ctx context.Context, in entity.BrokerInteraction) (*entity.BrokerInteraction, error)
	Delete(ctx context.Context, account string, id uuid.UUID) error
}

type interactionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewInteractionRepository(pool *pgxpool.Pool, logger *slog.Logger) InteractionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &interactionRepository{pool: pool, logger: logger}
}

func (r *interactionRepository) ListByBroker(ctx context.Context, account string, brokerID uuid.UUID) ([]entity.BrokerInteraction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, broker_id, account_id, kind, summary, occurred_at, created_at
		FROM broker_interactions
		WHERE account_id = $1 AND broker_id = $2
		ORDER BY occurred_at DESC`,
		account, brokerID)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []entity.BrokerInteraction
	for rows.Next() {
		var it entity.BrokerInteraction
		if err := rows.Scan(&it.ID, &it.BrokerID, &it.AccountID, &it.Kind,
			&it.Summary, &it.OccurredAt, &it.CreatedAt); err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *interactionRepository) Create(ctx context.Context, in entity.BrokerInteraction) (*entity.BrokerInteraction, error) {
	in.ID = uuid.New()
	in.CreatedAt = time.Now().UTC()
	if in.OccurredAt.IsZero() {
		in.OccurredAt = in.CreatedAt
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO broker_interactions (id, broker_id, account_id, kind, summary, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		in.ID, in.BrokerID, in.AccountID, in.Kind, in.Summary, in.OccurredAt, in.CreatedAt)
	if err != nil {
		r.logger.Error("interaction insert failed", "broker_id", in.BrokerID, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return &in, nil
}

func (r *interactionRepository) Delete(ctx context.Context, account string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM broker_interactions WHERE account_id = $1 AND id = $2`, account, id)
	if err != nil {
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
