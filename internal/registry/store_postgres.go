package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"landledger/internal/ledger"
	id "landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

// PostgresStore persists parcels. The land_id primary key gives Create its
// first-writer-wins semantics; Execute serializes transitions on a row lock
// so concurrent pipeline updates cannot interleave.
//
// Schema:
//
//	CREATE TABLE parcels (
//	    land_id        TEXT PRIMARY KEY,
//	    owner_account  TEXT NOT NULL,
//	    title          TEXT NOT NULL,
//	    area           BIGINT NOT NULL,
//	    address        TEXT NOT NULL DEFAULT '',
//	    coordinates    TEXT NOT NULL DEFAULT '',
//	    description    TEXT NOT NULL DEFAULT '',
//	    status         TEXT NOT NULL,
//	    certificate_id BIGINT NOT NULL DEFAULT 0,
//	    registered_at  TIMESTAMPTZ NOT NULL,
//	    updated_at     TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX parcels_owner_idx ON parcels (owner_account);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const parcelColumns = `land_id, owner_account, title, area, address, coordinates, description, status, certificate_id, registered_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, parcel *Parcel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parcels (`+parcelColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		string(parcel.LandID), string(parcel.Owner),
		parcel.Metadata.Title, parcel.Metadata.Area, parcel.Metadata.Address,
		parcel.Metadata.Coordinates, parcel.Metadata.Description,
		string(parcel.Status), uint64(parcel.CertificateID),
		parcel.RegisteredAt, parcel.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert parcel: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, landID id.LandID) (*Parcel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+parcelColumns+` FROM parcels WHERE land_id = $1
	`, string(landID))
	return scanParcel(row)
}

// Execute loads the row FOR UPDATE inside a transaction, applies the
// validate/mutate pair, and writes the result back.
func (s *PostgresStore) Execute(ctx context.Context, landID id.LandID, validate func(*Parcel) error, mutate func(*Parcel)) (*Parcel, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin parcel tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `
		SELECT `+parcelColumns+` FROM parcels WHERE land_id = $1 FOR UPDATE
	`, string(landID))
	parcel, err := scanParcel(row)
	if err != nil {
		return nil, err
	}

	if err := validate(parcel); err != nil {
		return nil, err
	}
	mutate(parcel)

	_, err = tx.ExecContext(ctx, `
		UPDATE parcels
		SET owner_account = $2, status = $3, certificate_id = $4, updated_at = $5
		WHERE land_id = $1
	`, string(parcel.LandID), string(parcel.Owner), string(parcel.Status),
		uint64(parcel.CertificateID), parcel.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update parcel: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit parcel tx: %w", err)
	}
	return parcel, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.Account) ([]*Parcel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+parcelColumns+` FROM parcels WHERE owner_account = $1 ORDER BY land_id
	`, string(owner))
	if err != nil {
		return nil, fmt.Errorf("list parcels: %w", err)
	}
	defer rows.Close()

	var out []*Parcel
	for rows.Next() {
		parcel, err := scanParcel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, parcel)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parcels`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count parcels: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParcel(row rowScanner) (*Parcel, error) {
	var (
		parcel        Parcel
		landID        string
		owner         string
		status        string
		certificateID uint64
		meta          ledger.Metadata
	)
	err := row.Scan(
		&landID, &owner,
		&meta.Title, &meta.Area, &meta.Address, &meta.Coordinates, &meta.Description,
		&status, &certificateID,
		&parcel.RegisteredAt, &parcel.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan parcel: %w", err)
	}
	parcel.LandID = id.LandID(landID)
	parcel.Owner = id.Account(owner)
	meta.LandID = parcel.LandID
	parcel.Metadata = meta
	parcel.Status = ParcelStatus(status)
	parcel.CertificateID = id.CertificateID(certificateID)
	return &parcel, nil
}
