// Package ledger mints and tracks ownership certificates. A certificate is
// bound to exactly one parcel and one current owner; minting happens at most
// once per parcel and is irreversible.
package ledger

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
	store          Store
	auth           access.Authorizer
	certificateIDs *sequence.Sequence
	publisher      *events.Publisher
}

func NewService(store Store, auth access.Authorizer, certificateIDs *sequence.Sequence, publisher *events.Publisher) *Service {
	return &Service{store: store, auth: auth, certificateIDs: certificateIDs, publisher: publisher}
}

// Mint creates the certificate for a parcel. Caller must hold NOTARY (the
// privileged minting role); the metadata snapshot must carry a land id, a
// title, and a positive area. The caller is responsible for checking that
// the parcel is verified — the coordinator gates on that before delegating,
// and the certificate records the verified flag it is minted with.
func (s *Service) Mint(ctx context.Context, owner id.Account, uri string, metadata Metadata) (id.CertificateID, error) {
	actor := requestcontext.Actor(ctx)
	if err := access.Require(ctx, s.auth, actor, id.RoleNotary); err != nil {
		return 0, err
	}
	if owner.IsZero() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "certificate owner is required")
	}
	if err := metadata.Validate(); err != nil {
		return 0, err
	}

	certificate := &Certificate{
		ID:       id.CertificateID(s.certificateIDs.Next()),
		Owner:    owner,
		URI:      uri,
		Metadata: metadata,
		MintedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, certificate); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.New(dErrors.CodeConflict, "parcel already has a certificate")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate")
	}

	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionCertificateMinted,
		Actor:         actor,
		LandID:        metadata.LandID,
		CertificateID: certificate.ID,
		Grantee:       owner,
		Timestamp:     certificate.MintedAt,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return certificate.ID, nil
}

// TransferOwnership reassigns the certificate from one account to another.
// Not exposed over HTTP: only the escrow workflow calls it, after its own
// checks. The ownership precondition is still enforced here (defense in
// depth against a buggy caller).
func (s *Service) TransferOwnership(ctx context.Context, certificateID id.CertificateID, from, to id.Account) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "transfer target is required")
	}
	_, err := s.store.Execute(ctx, certificateID,
		func(c *Certificate) error { return c.CanTransfer(from) },
		func(c *Certificate) { c.ApplyTransfer(to) },
	)
	if err != nil {
		return wrapCertificateErr(err)
	}
	return nil
}

// Verify sets the certificate's embedded verified flag — a denormalized
// cache of the verification outcome for fast external reads. Caller must
// hold NOTARY.
func (s *Service) Verify(ctx context.Context, certificateID id.CertificateID) error {
	actor := requestcontext.Actor(ctx)
	if err := access.Require(ctx, s.auth, actor, id.RoleNotary); err != nil {
		return err
	}
	_, err := s.store.Execute(ctx, certificateID,
		func(*Certificate) error { return nil },
		func(c *Certificate) { c.IsVerified = true },
	)
	if err != nil {
		return wrapCertificateErr(err)
	}
	return nil
}

// OwnerOf returns the certificate's current owner.
func (s *Service) OwnerOf(ctx context.Context, certificateID id.CertificateID) (id.Account, error) {
	certificate, err := s.store.Find(ctx, certificateID)
	if err != nil {
		return id.ZeroAccount, wrapCertificateErr(err)
	}
	return certificate.Owner, nil
}

// MetadataOf returns the mint-time metadata snapshot.
func (s *Service) MetadataOf(ctx context.Context, certificateID id.CertificateID) (Metadata, error) {
	certificate, err := s.store.Find(ctx, certificateID)
	if err != nil {
		return Metadata{}, wrapCertificateErr(err)
	}
	return certificate.Metadata, nil
}

// Get returns the full certificate record.
func (s *Service) Get(ctx context.Context, certificateID id.CertificateID) (*Certificate, error) {
	certificate, err := s.store.Find(ctx, certificateID)
	if err != nil {
		return nil, wrapCertificateErr(err)
	}
	return certificate, nil
}

// CertificateIDOf returns the parcel's certificate id, zero when the parcel
// is not tokenized.
func (s *Service) CertificateIDOf(ctx context.Context, landID id.LandID) (id.CertificateID, error) {
	certificateID, err := s.store.CertificateIDByLand(ctx, landID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, nil
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "certificate index lookup failed")
	}
	return certificateID, nil
}

func wrapCertificateErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
}
