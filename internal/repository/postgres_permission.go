package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moon4656/skyboot-core/internal/domain"
)

// PostgresPermissionStore implements PermissionStore on PostgreSQL
type PostgresPermissionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPermissionStore creates a new PostgresPermissionStore
func NewPostgresPermissionStore(pool *pgxpool.Pool) *PostgresPermissionStore {
	return &PostgresPermissionStore{pool: pool}
}

// PermissionsFor returns the active grants of an author code
func (r *PostgresPermissionStore) PermissionsFor(ctx context.Context, authorCode string) ([]domain.MenuPermission, error) {
	query := `
		SELECT author_code, menu_no, can_read, can_write, can_delete, use_at
		FROM tb_authormenu
		WHERE author_code = $1 AND use_at = true
		ORDER BY menu_no
	`
	rows, err := r.pool.Query(ctx, query, authorCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []domain.MenuPermission
	for rows.Next() {
		var p domain.MenuPermission
		if err := rows.Scan(&p.AuthorCode, &p.MenuNo, &p.CanRead, &p.CanWrite, &p.CanDelete, &p.Active); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// Check reports whether authorCode may perform kind on menuNo
func (r *PostgresPermissionStore) Check(ctx context.Context, authorCode, menuNo string, kind domain.PermissionKind) (bool, error) {
	var column string
	switch kind {
	case domain.PermRead:
		column = "can_read"
	case domain.PermWrite:
		column = "can_write"
	case domain.PermDelete:
		column = "can_delete"
	default:
		return false, nil
	}

	// column name is chosen from a fixed set above, never from input
	query := `
		SELECT COALESCE(bool_or(` + column + `), false)
		FROM tb_authormenu
		WHERE author_code = $1 AND menu_no = $2 AND use_at = true
	`
	var allowed bool
	if err := r.pool.QueryRow(ctx, query, authorCode, menuNo).Scan(&allowed); err != nil {
		return false, err
	}
	return allowed, nil
}
