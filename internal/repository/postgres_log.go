package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moon4656/skyboot-core/internal/domain"
)

// PostgresLoginLogStore implements LoginLogStore on PostgreSQL.
// tb_loginlog is append-only; nothing here updates or deletes.
type PostgresLoginLogStore struct {
	pool *pgxpool.Pool
}

// NewPostgresLoginLogStore creates a new PostgresLoginLogStore
func NewPostgresLoginLogStore(pool *pgxpool.Pool) *PostgresLoginLogStore {
	return &PostgresLoginLogStore{pool: pool}
}

// Append inserts one login attempt record
func (r *PostgresLoginLogStore) Append(ctx context.Context, entry *domain.LoginLogEntry) error {
	query := `
		INSERT INTO tb_loginlog (log_id, user_id, source_ip, connect_method, error_flag, error_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.LogID,
		entry.UserID,
		entry.SourceIP,
		entry.ConnectMethod,
		entry.ErrorFlag,
		entry.ErrorCode,
		entry.CreatedAt,
	)
	return err
}

// PostgresAPIUsageLogStore implements APIUsageLogStore on PostgreSQL
type PostgresAPIUsageLogStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAPIUsageLogStore creates a new PostgresAPIUsageLogStore
func NewPostgresAPIUsageLogStore(pool *pgxpool.Pool) *PostgresAPIUsageLogStore {
	return &PostgresAPIUsageLogStore{pool: pool}
}

// Append inserts one API usage record
func (r *PostgresAPIUsageLogStore) Append(ctx context.Context, entry *domain.APIUsageLogEntry) error {
	query := `
		INSERT INTO tb_apiusagelog (log_id, user_id, endpoint, method, source_ip, response_status, response_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.LogID,
		entry.UserID,
		entry.Endpoint,
		entry.Method,
		entry.SourceIP,
		entry.ResponseStatus,
		entry.ResponseTimeMS,
		entry.CreatedAt,
	)
	return err
}
