// Package verification implements the notarization workflow: owners attach a
// document hash to a parcel, a notary approves or rejects it. Approval flips
// the parcel-level verified flag permanently; rejection deletes the request
// and frees its document hash for resubmission.
package verification

import (
	"context"
	"errors"

	"landledger/internal/access"
	"landledger/internal/events"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/platform/sequence"
	"landledger/pkg/requestcontext"
)

type Service struct {
	store      Store
	auth       access.Authorizer
	requestIDs *sequence.Sequence
	publisher  *events.Publisher
}

func NewService(store Store, auth access.Authorizer, requestIDs *sequence.Sequence, publisher *events.Publisher) *Service {
	return &Service{store: store, auth: auth, requestIDs: requestIDs, publisher: publisher}
}

// RequestVerification opens a notarization request for the parcel. Fails
// when the parcel is already verified or when the document hash is attached
// to any outstanding request, on any parcel.
func (s *Service) RequestVerification(ctx context.Context, landID id.LandID, documentHash id.DocumentHash) (id.RequestID, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}
	if landID == "" || documentHash == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "land id and document hash are required")
	}

	verified, err := s.store.IsLandVerified(ctx, landID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "verified flag lookup failed")
	}
	if verified {
		return 0, dErrors.New(dErrors.CodeInvalidState, "parcel is already verified")
	}

	request := &Request{
		ID:           id.RequestID(s.requestIDs.Next()),
		LandID:       landID,
		Requester:    actor,
		DocumentHash: documentHash,
		RequestedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, request); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.New(dErrors.CodeConflict, "document hash is attached to an outstanding request")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification request")
	}

	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionVerificationRequested,
		Actor:         actor,
		LandID:        landID,
		RequestID:     request.ID,
		DocumentHash:  documentHash,
		Timestamp:     request.RequestedAt,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return request.ID, nil
}

// ApproveVerification records the notary's approval and permanently marks
// the parcel verified. Caller must hold NOTARY.
func (s *Service) ApproveVerification(ctx context.Context, requestID id.RequestID, signature string) error {
	actor := requestcontext.Actor(ctx)
	if err := access.Require(ctx, s.auth, actor, id.RoleNotary); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	request, err := s.store.Execute(ctx, requestID,
		func(r *Request) error { return r.CanAdjudicate() },
		func(r *Request) { r.ApplyApproval(actor, signature, now) },
	)
	if err != nil {
		return wrapRequestErr(err)
	}
	if err := s.store.MarkLandVerified(ctx, request.LandID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark parcel verified")
	}

	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionLandVerified,
		Actor:         actor,
		LandID:        request.LandID,
		RequestID:     request.ID,
		Timestamp:     now,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// RejectVerification deletes the request and frees its document hash. A
// rejected request leaves no trace under its id; callers must not expect to
// query it afterward. Caller must hold NOTARY.
func (s *Service) RejectVerification(ctx context.Context, requestID id.RequestID, reason string) error {
	actor := requestcontext.Actor(ctx)
	if err := access.Require(ctx, s.auth, actor, id.RoleNotary); err != nil {
		return err
	}

	request, err := s.store.Find(ctx, requestID)
	if err != nil {
		return wrapRequestErr(err)
	}
	if err := request.CanAdjudicate(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, requestID); err != nil {
		return wrapRequestErr(err)
	}

	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionVerificationRejected,
		Actor:         actor,
		LandID:        request.LandID,
		RequestID:     request.ID,
		DocumentHash:  request.DocumentHash,
		Reason:        reason,
		Timestamp:     requestcontext.Now(ctx),
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// IsVerified reports the parcel-level verified flag. Idempotent,
// side-effect free.
func (s *Service) IsVerified(ctx context.Context, landID id.LandID) (bool, error) {
	return s.store.IsLandVerified(ctx, landID)
}

// GetRequest returns a request by id. Rejected requests are gone and report
// not found.
func (s *Service) GetRequest(ctx context.Context, requestID id.RequestID) (*Request, error) {
	request, err := s.store.Find(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	return request, nil
}

func wrapRequestErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "verification request not found")
	}
	if dErrors.HasCode(err, dErrors.CodeInvalidState) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "verification store failure")
}
