package escrow

import (
	"time"

	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

// Status is the transfer state machine position.
//
// Pending → EscrowFunded → Approved → Completed
//
//	Pending|EscrowFunded → Cancelled
//
// Completed and Cancelled are terminal. Approved cannot be cancelled: once
// both parties have signaled, the only way forward is completion — unwinding
// after mutual approval is a renegotiation outside this state machine.
type Status string

const (
	StatusPending      Status = "pending"
	StatusEscrowFunded Status = "escrow_funded"
	StatusApproved     Status = "approved"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TransferRequest couples a certificate move to an escrowed deposit.
//
// EscrowAmount is the single source of truth for "are funds currently held":
// it is non-zero exactly while the system holds the buyer's deposit, and is
// zeroed in the same state commit that releases the funds — before the
// external credit fires, so a reentrant call can never observe held funds on
// a settled request.
type TransferRequest struct {
	ID            id.TransferID
	CertificateID id.CertificateID
	Seller        id.Account
	Buyer         id.Account
	Price         uint64
	EscrowAmount  uint64
	Status        Status
	Notes         string
	CancelReason  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   time.Time
}

// CanFund checks the Pending → EscrowFunded transition: only the named buyer
// may fund, and only with the exact price.
func (t *TransferRequest) CanFund(caller id.Account, amount uint64) error {
	if t.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, "transfer is not awaiting escrow funding")
	}
	if caller != t.Buyer {
		return dErrors.New(dErrors.CodeUnauthorized, "only the named buyer may fund the escrow")
	}
	if amount != t.Price {
		return dErrors.New(dErrors.CodeBadRequest, "escrow amount must equal the price exactly")
	}
	return nil
}

// ApplyFunding records the held deposit. Call CanFund first.
func (t *TransferRequest) ApplyFunding(now time.Time) {
	t.Status = StatusEscrowFunded
	t.EscrowAmount = t.Price
	t.UpdatedAt = now
}

// CanApprove checks the EscrowFunded → Approved transition: seller only.
func (t *TransferRequest) CanApprove(caller id.Account) error {
	if t.Status != StatusEscrowFunded {
		return dErrors.New(dErrors.CodeInvalidState, "transfer escrow is not funded")
	}
	if caller != t.Seller {
		return dErrors.New(dErrors.CodeUnauthorized, "only the seller may approve the transfer")
	}
	return nil
}

// ApplyApproval is a pure status flip; funds stay held.
func (t *TransferRequest) ApplyApproval(now time.Time) {
	t.Status = StatusApproved
	t.UpdatedAt = now
}

// CanComplete checks the Approved → Completed transition. Callable by
// seller, buyer, or an admin (isAdmin asserted by the service from the role
// table, never from request input).
func (t *TransferRequest) CanComplete(caller id.Account, isAdmin bool) error {
	if t.Status != StatusApproved {
		return dErrors.New(dErrors.CodeInvalidState, "transfer is not approved")
	}
	if caller != t.Seller && caller != t.Buyer && !isAdmin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the seller, buyer, or an admin may complete")
	}
	return nil
}

// ApplyCompletion commits the terminal state and releases the escrow claim.
// Returns the amount to pay out to the seller.
func (t *TransferRequest) ApplyCompletion(now time.Time) uint64 {
	amount := t.EscrowAmount
	t.EscrowAmount = 0
	t.Status = StatusCompleted
	t.UpdatedAt = now
	t.CompletedAt = now
	return amount
}

// CanCancel checks the Pending|EscrowFunded → Cancelled transition. Callable
// by seller, buyer, or an admin.
func (t *TransferRequest) CanCancel(caller id.Account, isAdmin bool) error {
	if t.Status != StatusPending && t.Status != StatusEscrowFunded {
		return dErrors.New(dErrors.CodeInvalidState, "transfer can no longer be cancelled")
	}
	if caller != t.Seller && caller != t.Buyer && !isAdmin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the seller, buyer, or an admin may cancel")
	}
	return nil
}

// ApplyCancellation commits the terminal state. Returns the amount to refund
// to the buyer, zero when the escrow was never funded.
func (t *TransferRequest) ApplyCancellation(reason string, now time.Time) uint64 {
	refund := t.EscrowAmount
	t.EscrowAmount = 0
	t.Status = StatusCancelled
	t.CancelReason = reason
	t.UpdatedAt = now
	return refund
}
