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

// TaskUpdate carries a partial task edit; nil fields are untouched.
type TaskUpdate struct {
	Title    *string
	Priority *string
	DueDate  *string
	Status   *string
}

// TaskRepository stores user-authored follow-up tasks.
type TaskRepository interface {
	ListByAccount(ctx context.Context, account string) ([]entity.BrokerTask, error)
	Create(ctx context.Context, t entity.BrokerTask) (*entity.BrokerTask, error)
	Update(ctx context.Context, account string, id uuid.UUID, upd TaskUpdate) (*entity.BrokerTask, error)
	Delete(ctx context.Context, account string, id uuid.UUID) error
}

type taskRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewTaskRepository(pool *pgxpool.Pool, logger *slog.Logger) TaskRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &taskRepository{pool: pool, logger: logger}
}

const taskColumns = `id, broker_id, account_id, title, priority, due_date, status, created_at, updated_at`

func scanTask(row pgx.Row) (*entity.BrokerTask, error) {
	var t entity.BrokerTask
	err := row.Scan(&t.ID, &t.BrokerID, &t.AccountID, &t.Title, &t.Priority,
		&t.DueDate, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepository) ListByAccount(ctx context.Context, account string) ([]entity.BrokerTask, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM broker_tasks WHERE account_id = $1 ORDER BY due_date NULLS LAST, created_at`,
		account)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []entity.BrokerTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, t entity.BrokerTask) (*entity.BrokerTask, error) {
	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if t.Status == "" {
		t.Status = "pending"
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO broker_tasks (id, broker_id, account_id, title, priority, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.BrokerID, t.AccountID, t.Title, t.Priority, t.DueDate, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		r.logger.Error("task insert failed", "broker_id", t.BrokerID, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return &t, nil
}

func (r *taskRepository) Update(ctx context.Context, account string, id uuid.UUID, upd TaskUpdate) (*entity.BrokerTask, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE broker_tasks SET
			title      = COALESCE($3, title),
			priority   = COALESCE($4, priority),
			due_date   = COALESCE($5, due_date),
			status     = COALESCE($6, status),
			updated_at = now()
		WHERE account_id = $1 AND id = $2
		RETURNING `+taskColumns,
		account, id, upd.Title, upd.Priority, upd.DueDate, upd.Status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return t, nil
}

func (r *taskRepository) Delete(ctx context.Context, account string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM broker_tasks WHERE account_id = $1 AND id = $2`, account, id)
	if err != nil {
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
