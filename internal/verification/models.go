package verification

import (
	"time"

	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

// Request is a pending or approved notarization request. Rejected requests
// are deleted outright, so a Request never carries a "rejected" state.
type Request struct {
	ID           id.RequestID
	LandID       id.LandID
	Requester    id.Account
	DocumentHash id.DocumentHash
	IsVerified   bool
	Notary       id.Account
	Signature    string
	RequestedAt  time.Time
	VerifiedAt   time.Time
}

// CanAdjudicate checks that the request is still open for a notary decision.
// Approved requests are settled; they can be neither re-approved nor
// rejected.
func (r *Request) CanAdjudicate() error {
	if r.IsVerified {
		return dErrors.New(dErrors.CodeInvalidState, "request is already verified")
	}
	return nil
}

// ApplyApproval marks the request verified and records who signed off.
// Call CanAdjudicate first.
func (r *Request) ApplyApproval(notary id.Account, signature string, now time.Time) {
	r.IsVerified = true
	r.Notary = notary
	r.Signature = signature
	r.VerifiedAt = now
}
