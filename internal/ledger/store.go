package ledger

import (
	"context"

	id "landledger/pkg/domain"
)

// Store owns certificates and the landId → certificateId index that enforces
// at-most-one-certificate-per-parcel.
type Store interface {
	// Create persists a new certificate. Returns sentinel.ErrConflict when
	// the parcel already has one.
	Create(ctx context.Context, certificate *Certificate) error
	// Find returns the certificate or sentinel.ErrNotFound.
	Find(ctx context.Context, certificateID id.CertificateID) (*Certificate, error)
	// CertificateIDByLand returns the parcel's certificate id, or zero with
	// sentinel.ErrNotFound when the parcel is not tokenized.
	CertificateIDByLand(ctx context.Context, landID id.LandID) (id.CertificateID, error)
	// Execute atomically validates and mutates a certificate under the
	// store lock.
	Execute(ctx context.Context, certificateID id.CertificateID, validate func(*Certificate) error, mutate func(*Certificate)) (*Certificate, error)
}
