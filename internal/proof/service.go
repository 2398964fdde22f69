// Package proof implements the ownership-proof workflow. Proof hashes are
// unique across the whole system, forever: submission burns the hash even if
// the proof is later ruled invalid. This is deliberately stricter than the
// verification workflow, where rejection frees the document hash.
package proof

import (
	"context"
	"errors"

	"landledger/internal/access"
	"landledger/internal/events"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/requestcontext"
)

type Service struct {
	store     Store
	auth      access.Authorizer
	publisher *events.Publisher
}

func NewService(store Store, auth access.Authorizer, publisher *events.Publisher) *Service {
	return &Service{store: store, auth: auth, publisher: publisher}
}

// SubmitProof stores a new, unverified proof for the parcel. Fails when the
// parcel already has any proof or when the hash was ever used, even for an
// unrelated parcel — a hash collision is a hard integrity violation, never
// an overwrite.
func (s *Service) SubmitProof(ctx context.Context, landID id.LandID, hash id.ProofHash) (id.ProofHash, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}
	if landID == "" || hash == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "land id and proof hash are required")
	}

	proof := &Proof{
		Hash:        hash,
		Prover:      actor,
		LandID:      landID,
		SubmittedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, proof); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.New(dErrors.CodeConflict, "proof hash or parcel slot already used")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store proof")
	}

	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionProofSubmitted,
		Actor:         actor,
		LandID:        landID,
		ProofHash:     hash,
		Timestamp:     proof.SubmittedAt,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return hash, nil
}

// VerifyProof records the verifier's verdict. The validation algorithm is
// external; the core only persists the boolean outcome. A positive verdict
// makes the proof permanently valid; a negative verdict leaves it invalid
// forever without deleting it. Caller must hold VERIFIER.
func (s *Service) VerifyProof(ctx context.Context, hash id.ProofHash, valid bool) error {
	actor := requestcontext.Actor(ctx)
	if err := access.Require(ctx, s.auth, actor, id.RoleVerifier); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	proof, err := s.store.Execute(ctx, hash,
		func(p *Proof) error { return p.CanAdjudicate() },
		func(p *Proof) { p.ApplyVerdict(actor, valid, now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "proof not found")
		}
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "proof store failure")
	}

	action := events.ActionProofVerified
	if !valid {
		action = events.ActionProofInvalidated
	}
	s.publisher.Emit(ctx, events.Event{
		Action:        action,
		Actor:         actor,
		LandID:        proof.LandID,
		ProofHash:     hash,
		Timestamp:     now,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// IsValid reports whether the proof exists and was ruled valid.
func (s *Service) IsValid(ctx context.Context, hash id.ProofHash) (bool, error) {
	proof, err := s.store.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "proof lookup failed")
	}
	return proof.IsValid, nil
}

// GetProof returns the proof record for a hash.
func (s *Service) GetProof(ctx context.Context, hash id.ProofHash) (*Proof, error) {
	proof, err := s.store.Find(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "proof not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "proof lookup failed")
	}
	return proof, nil
}
