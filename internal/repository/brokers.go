package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/entity"
)

// BrokerUserFields carries a manual CRM edit. Nil pointers leave the column
// untouched (field-scoped update).
type BrokerUserFields struct {
	Status *string
	Notes  *string
	Phone  *string
	Name   *string
}

// BrokerRepository is the derived broker registry, partitioned by account.
// UpsertAggregates writes only aggregate columns; status and notes are
// user-owned and reachable only through UpdateUserFields.
type BrokerRepository interface {
	ListByAccount(ctx context.Context, account string) ([]entity.Broker, error)
	GetByID(ctx context.Context, account string, id uuid.UUID) (*entity.Broker, error)
	UpsertAggregates(ctx context.Context, b entity.Broker) (created bool, err error)
	UpdateUserFields(ctx context.Context, account string, id uuid.UUID, fields BrokerUserFields) (*entity.Broker, error)
	DeleteByAccount(ctx context.Context, account string) (int64, error)
}

type brokerRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewBrokerRepository(pool *pgxpool.Pool, logger *slog.Logger) BrokerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &brokerRepository{pool: pool, logger: logger}
}

const brokerColumns = `id, account_id, name, email, phone, first_load_date, last_load_date,
	total_loads, total_revenue, avg_rate, avg_rpm, status, notes, created_at, updated_at`

func scanBroker(row pgx.Row) (*entity.Broker, error) {
	var b entity.Broker
	err := row.Scan(&b.ID, &b.AccountID, &b.Name, &b.Email, &b.Phone,
		&b.FirstLoadDate, &b.LastLoadDate, &b.TotalLoads, &b.TotalRevenue,
		&b.AvgRate, &b.AvgRPM, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *brokerRepository) ListByAccount(ctx context.Context, account string) ([]entity.Broker, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+brokerColumns+` FROM brokers WHERE account_id = $1 ORDER BY total_revenue DESC, email`,
		account)
	if err != nil {
		r.logger.Error("failed to list brokers", "account", account, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []entity.Broker
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return out, nil
}

func (r *brokerRepository) GetByID(ctx context.Context, account string, id uuid.UUID) (*entity.Broker, error) {
	b, err := scanBroker(r.pool.QueryRow(ctx,
		`SELECT `+brokerColumns+` FROM brokers WHERE account_id = $1 AND id = $2`,
		account, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return b, nil
}

// UpsertAggregates inserts or refreshes one broker's derived fields.
// The conflict clause is deliberately field-scoped: status and notes never
// appear in it, so re-syncs cannot clobber manual CRM edits. Name and phone
// only overwrite when the new value is non-empty.
func (r *brokerRepository) UpsertAggregates(ctx context.Context, b entity.Broker) (bool, error) {
	now := time.Now().UTC()
	var created bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO brokers (id, account_id, name, email, phone, first_load_date, last_load_date,
			total_loads, total_revenue, avg_rate, avg_rpm, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'prospect', '', $12, $12)
		ON CONFLICT (account_id, email) DO UPDATE SET
			name            = CASE WHEN EXCLUDED.name  <> '' THEN EXCLUDED.name  ELSE brokers.name  END,
			phone           = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE brokers.phone END,
			first_load_date = EXCLUDED.first_load_date,
			last_load_date  = EXCLUDED.last_load_date,
			total_loads     = EXCLUDED.total_loads,
			total_revenue   = EXCLUDED.total_revenue,
			avg_rate        = EXCLUDED.avg_rate,
			avg_rpm         = EXCLUDED.avg_rpm,
			updated_at      = EXCLUDED.updated_at
		RETURNING (xmax = 0)`,
		uuid.New(), b.AccountID, b.Name, b.Email, b.Phone, b.FirstLoadDate, b.LastLoadDate,
		b.TotalLoads, b.TotalRevenue, b.AvgRate, b.AvgRPM, now).Scan(&created)
	if err != nil {
		r.logger.Error("broker upsert failed", "account", b.AccountID, "email", b.Email, "error", err)
		return false, common.WrapError(common.ErrDatabase, err.Error())
	}
	return created, nil
}

func (r *brokerRepository) UpdateUserFields(ctx context.Context, account string, id uuid.UUID, fields BrokerUserFields) (*entity.Broker, error) {
	b, err := scanBroker(r.pool.QueryRow(ctx, `
		UPDATE brokers SET
			status     = COALESCE($3, status),
			notes      = COALESCE($4, notes),
			phone      = COALESCE($5, phone),
			name       = COALESCE($6, name),
			updated_at = now()
		WHERE account_id = $1 AND id = $2
		RETURNING `+brokerColumns,
		account, id, fields.Status, fields.Notes, fields.Phone, fields.Name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("broker update failed", "account", account, "id", id, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return b, nil
}

func (r *brokerRepository) DeleteByAccount(ctx context.Context, account string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM brokers WHERE account_id = $1`, account)
	if err != nil {
		return 0, common.WrapError(common.ErrDatabase, err.Error())
	}
	return tag.RowsAffected(), nil
}
