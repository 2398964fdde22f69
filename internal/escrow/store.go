package escrow

import (
	"context"

	id "landledger/pkg/domain"
)

// Store owns transfer requests and the certificateId → active-transfer index.
// The index admits at most one non-terminal request per certificate and is
// maintained by the store itself, inside the same critical section as the
// status change: Execute clears the entry when a mutation lands in a
// terminal status and restores it when a compensation moves the request back
// out of one.
type Store interface {
	// Create persists a new request and claims the active slot for its
	// certificate. Returns sentinel.ErrConflict when another non-terminal
	// request already references the certificate.
	Create(ctx context.Context, request *TransferRequest) error
	// Find returns the request or sentinel.ErrNotFound.
	Find(ctx context.Context, transferID id.TransferID) (*TransferRequest, error)
	// Execute atomically validates and mutates a request under the store
	// lock, then reconciles the active index with the resulting status. A
	// mutation that would move the request back out of a terminal status
	// fails with sentinel.ErrConflict when another request holds the
	// certificate's active slot; the record is left untouched.
	Execute(ctx context.Context, transferID id.TransferID, validate func(*TransferRequest) error, mutate func(*TransferRequest)) (*TransferRequest, error)
	// ActiveTransferID returns the non-terminal request id for the
	// certificate, zero when there is none.
	ActiveTransferID(ctx context.Context, certificateID id.CertificateID) (id.TransferID, error)
	// SumEscrow returns the total escrow amount across all requests. Used
	// to check the held-balance invariant.
	SumEscrow(ctx context.Context) (uint64, error)
}
