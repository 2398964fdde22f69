package access

import (
	"context"
	"database/sql"
	"fmt"

	id "landledger/pkg/domain"
)

// PostgresStore persists role grants. The (role, account) primary key makes
// Grant idempotent under concurrency: exactly one insert wins, the rest are
// no-ops.
//
// Schema:
//
//	CREATE TABLE role_grants (
//	    role       TEXT NOT NULL,
//	    account    TEXT NOT NULL,
//	    granted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (role, account)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Grant(ctx context.Context, role id.Role, account id.Account) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO role_grants (role, account)
		VALUES ($1, $2)
		ON CONFLICT (role, account) DO NOTHING
	`, string(role), string(account))
	if err != nil {
		return false, fmt.Errorf("insert role grant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grant rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, role id.Role, account id.Account) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM role_grants WHERE role = $1 AND account = $2
	`, string(role), string(account))
	if err != nil {
		return false, fmt.Errorf("delete role grant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) HasRole(ctx context.Context, role id.Role, account id.Account) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM role_grants WHERE role = $1 AND account = $2)
	`, string(role), string(account)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query role grant: %w", err)
	}
	return exists, nil
}
