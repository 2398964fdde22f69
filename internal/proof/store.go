package proof

import (
	"context"

	id "landledger/pkg/domain"
)

// Store owns proofs, keyed by hash, with a one-proof-per-parcel index. There
// is deliberately no delete operation: a proof hash, once submitted, is
// burned for the lifetime of the system.
type Store interface {
	// Create persists a new proof. Returns sentinel.ErrConflict when the
	// hash was ever used before or the parcel already has a proof.
	Create(ctx context.Context, proof *Proof) error
	// Find returns the proof or sentinel.ErrNotFound.
	Find(ctx context.Context, hash id.ProofHash) (*Proof, error)
	// FindByLand returns the parcel's proof or sentinel.ErrNotFound.
	FindByLand(ctx context.Context, landID id.LandID) (*Proof, error)
	// Execute atomically validates and mutates a proof under the store lock.
	Execute(ctx context.Context, hash id.ProofHash, validate func(*Proof) error, mutate func(*Proof)) (*Proof, error)
}
