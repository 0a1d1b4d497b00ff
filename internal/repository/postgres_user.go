package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moon4656/skyboot-core/internal/domain"
)

// PostgresUserStore implements UserStore on PostgreSQL
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a new PostgresUserStore
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

const userColumns = `user_id, display_name, email, group_id, org_id, status_code,
	password_hash, lock_count, lock_last_time, password_changed_time, created_at, updated_at`

func (r *PostgresUserStore) scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.UserID,
		&user.DisplayName,
		&user.Email,
		&user.GroupID,
		&user.OrgID,
		&user.StatusCode,
		&user.PasswordHash,
		&user.LockCount,
		&user.LockLastTime,
		&user.PasswordChangedTime,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetByUserID retrieves a user by primary key
func (r *PostgresUserStore) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM tb_userinfo WHERE user_id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, userID))
}

// GetByEmail retrieves a user by email address
func (r *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM tb_userinfo WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// IncrementLock atomically bumps lock_count. Concurrent attempts on the same
// user serialize on the row; no update is lost. With threshold > 0 the same
// statement flips the status to LOCKED once the new count exceeds it.
func (r *PostgresUserStore) IncrementLock(ctx context.Context, userID string, threshold int) (int, error) {
	query := `
		UPDATE tb_userinfo
		SET lock_count = lock_count + 1,
		    lock_last_time = now(),
		    status_code = CASE
		        WHEN $2 > 0 AND lock_count + 1 > $2 THEN 'L'
		        ELSE status_code
		    END
		WHERE user_id = $1
		RETURNING lock_count
	`
	var count int
	err := r.pool.QueryRow(ctx, query, userID, threshold).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// ResetLock zeroes lock_count
func (r *PostgresUserStore) ResetLock(ctx context.Context, userID string) error {
	query := `UPDATE tb_userinfo SET lock_count = 0 WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// UpdatePassword stores a new hash and touches password_changed_time
func (r *PostgresUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `
		UPDATE tb_userinfo
		SET password_hash = $2, password_changed_time = now(), updated_at = now()
		WHERE user_id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID, passwordHash)
	return err
}

// TouchPasswordChanged updates password_changed_time only
func (r *PostgresUserStore) TouchPasswordChanged(ctx context.Context, userID string) error {
	query := `UPDATE tb_userinfo SET password_changed_time = now() WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
