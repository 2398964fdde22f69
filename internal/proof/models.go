package proof

import (
	"time"

	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

// Proof is an ownership proof bound to one parcel. Unlike verification
// requests, proofs are never deleted: an invalidated proof keeps its hash and
// its parcel slot occupied forever.
type Proof struct {
	Hash        id.ProofHash
	Prover      id.Account
	LandID      id.LandID
	IsValid     bool
	Verifier    id.Account
	SubmittedAt time.Time
	// VerifiedAt is set when a verifier adjudicates the proof, for either
	// verdict. A zero value means the proof is still awaiting adjudication.
	VerifiedAt time.Time
}

// CanAdjudicate checks that the proof is still awaiting a verdict. Both
// verdicts are permanent, so any adjudicated proof is closed.
func (p *Proof) CanAdjudicate() error {
	if p.IsValid {
		return dErrors.New(dErrors.CodeInvalidState, "proof is already verified")
	}
	if !p.VerifiedAt.IsZero() {
		return dErrors.New(dErrors.CodeInvalidState, "proof was already invalidated")
	}
	return nil
}

// ApplyVerdict records the verifier's decision. Call CanAdjudicate first.
func (p *Proof) ApplyVerdict(verifier id.Account, valid bool, now time.Time) {
	p.IsValid = valid
	p.Verifier = verifier
	p.VerifiedAt = now
}
