package verification

import (
	"context"

	id "landledger/pkg/domain"
)

// Store owns verification requests, the outstanding-document-hash index, and
// the per-parcel verified flag. The hash index spans all parcels: a document
// hash attached to any outstanding request cannot be attached to another,
// which blocks replaying one notarized document across unrelated parcels.
type Store interface {
	// Create persists a new request. Returns sentinel.ErrConflict when the
	// document hash is already attached to an outstanding request.
	Create(ctx context.Context, request *Request) error
	// Find returns the request or sentinel.ErrNotFound.
	Find(ctx context.Context, requestID id.RequestID) (*Request, error)
	// Execute atomically validates and mutates a request under the store
	// lock, returning the updated copy.
	Execute(ctx context.Context, requestID id.RequestID, validate func(*Request) error, mutate func(*Request)) (*Request, error)
	// Delete removes the request entirely and frees its document hash for
	// reuse. Returns sentinel.ErrNotFound for unknown ids.
	Delete(ctx context.Context, requestID id.RequestID) error
	// MarkLandVerified permanently flips the parcel-level verified flag.
	MarkLandVerified(ctx context.Context, landID id.LandID) error
	// IsLandVerified reports the parcel-level verified flag.
	IsLandVerified(ctx context.Context, landID id.LandID) (bool, error)
}
