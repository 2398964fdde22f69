// Package registry coordinates the parcel pipeline across the subordinate
// components: registration, notarization, tokenization, and transfer. The
// coordinator enforces parcel-level ordering (Registered → Verified →
// Tokenized → Transferred) on top of each component's own checks, and owns
// the parcel read model.
package registry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"landledger/internal/access"
	"landledger/internal/escrow"
	"landledger/internal/events"
	"landledger/internal/ledger"
	"landledger/internal/proof"
	"landledger/internal/verification"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/requestcontext"
)

// Cache is the read-model cache the coordinator invalidates on mutation.
// Implemented by internal/registry/cache; a nil implementation is a no-op.
type Cache interface {
	Get(ctx context.Context, landID id.LandID) (*Parcel, bool)
	Set(ctx context.Context, parcel *Parcel)
	Invalidate(ctx context.Context, landID id.LandID)
}

type Coordinator struct {
	store        Store
	cache        Cache
	roles        *access.Service
	verification *verification.Service
	proofs       *proof.Service
	ledger       *ledger.Service
	escrow       *escrow.Service
	publisher    *events.Publisher
	tracer       trace.Tracer
}

type CoordinatorOption func(*Coordinator)

// WithCache attaches the parcel read cache.
func WithCache(c Cache) CoordinatorOption {
	return func(co *Coordinator) { co.cache = c }
}

func NewCoordinator(
	store Store,
	roles *access.Service,
	verificationSvc *verification.Service,
	proofSvc *proof.Service,
	ledgerSvc *ledger.Service,
	escrowSvc *escrow.Service,
	publisher *events.Publisher,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		store:        store,
		roles:        roles,
		verification: verificationSvc,
		proofs:       proofSvc,
		ledger:       ledgerSvc,
		escrow:       escrowSvc,
		publisher:    publisher,
		tracer:       otel.Tracer("landledger/registry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Component handles, for callers that need an operation the coordinator does
// not mediate (role administration, proof verdicts, escrow funding).

func (c *Coordinator) Access() *access.Service             { return c.roles }
func (c *Coordinator) Verification() *verification.Service { return c.verification }
func (c *Coordinator) Proofs() *proof.Service              { return c.proofs }
func (c *Coordinator) Ledger() *ledger.Service             { return c.ledger }
func (c *Coordinator) Escrow() *escrow.Service             { return c.escrow }

// RegisterLand creates the parcel with the caller as its first owner. The
// land id must be unused.
func (c *Coordinator) RegisterLand(ctx context.Context, metadata ledger.Metadata) (*Parcel, error) {
	ctx, span := c.tracer.Start(ctx, "registry.RegisterLand")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}
	if err := metadata.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	parcel := &Parcel{
		LandID:       metadata.LandID,
		Owner:        actor,
		Metadata:     metadata,
		Status:       StatusRegistered,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	if err := c.store.Create(ctx, parcel); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "parcel is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store parcel")
	}
	if c.cache != nil {
		c.cache.Set(ctx, parcel)
	}

	c.publisher.Emit(ctx, events.Event{
		Action:        events.ActionLandRegistered,
		Actor:         actor,
		LandID:        parcel.LandID,
		Timestamp:     now,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return parcel, nil
}

// RequestNotaryVerification opens a notarization request for the caller's
// parcel. Only the current owner may request.
func (c *Coordinator) RequestNotaryVerification(ctx context.Context, landID id.LandID, documentHash id.DocumentHash) (id.RequestID, error) {
	ctx, span := c.tracer.Start(ctx, "registry.RequestNotaryVerification")
	defer span.End()

	parcel, err := c.getParcel(ctx, landID)
	if err != nil {
		return 0, err
	}
	if requestcontext.Actor(ctx) != parcel.Owner {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "only the parcel owner may request verification")
	}
	return c.verification.RequestVerification(ctx, landID, documentHash)
}

// ApproveVerification records the notary's approval and advances the parcel
// to Verified.
func (c *Coordinator) ApproveVerification(ctx context.Context, requestID id.RequestID, signature string) error {
	ctx, span := c.tracer.Start(ctx, "registry.ApproveVerification")
	defer span.End()

	request, err := c.verification.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if err := c.verification.ApproveVerification(ctx, requestID, signature); err != nil {
		return err
	}
	return c.advance(ctx, request.LandID, StatusVerified, id.ZeroAccount)
}

// RejectVerification forwards the notary's rejection; the parcel stays where
// it is.
func (c *Coordinator) RejectVerification(ctx context.Context, requestID id.RequestID, reason string) error {
	ctx, span := c.tracer.Start(ctx, "registry.RejectVerification")
	defer span.End()

	return c.verification.RejectVerification(ctx, requestID, reason)
}

// CreateCertificate tokenizes a verified parcel: mints the certificate to the
// parcel's owner, marks it verified, and advances the parcel to Tokenized.
// Caller must hold the minting role, enforced by the asset ledger.
func (c *Coordinator) CreateCertificate(ctx context.Context, landID id.LandID, uri string) (id.CertificateID, error) {
	ctx, span := c.tracer.Start(ctx, "registry.CreateCertificate")
	defer span.End()

	parcel, err := c.getParcel(ctx, landID)
	if err != nil {
		return 0, err
	}
	if parcel.Status.Before(StatusVerified) {
		return 0, dErrors.New(dErrors.CodeInvalidState, "parcel is not verified")
	}
	if !parcel.CertificateID.IsZero() {
		return 0, dErrors.New(dErrors.CodeConflict, "parcel already has a certificate")
	}
	// The parcel status and the verification record advance together, but the
	// record is the source of truth: a parcel cannot tokenize without an
	// approved verification behind it.
	verified, err := c.verification.IsVerified(ctx, landID)
	if err != nil {
		return 0, err
	}
	if !verified {
		return 0, dErrors.New(dErrors.CodeInvalidState, "parcel has no approved verification")
	}

	certificateID, err := c.ledger.Mint(ctx, parcel.Owner, uri, parcel.Metadata)
	if err != nil {
		return 0, err
	}
	if err := c.ledger.Verify(ctx, certificateID); err != nil {
		return 0, err
	}

	_, err = c.store.Execute(ctx, landID,
		func(p *Parcel) error { return nil },
		func(p *Parcel) {
			p.CertificateID = certificateID
			p.Status = StatusTokenized
			p.UpdatedAt = requestcontext.Now(ctx)
		},
	)
	if err != nil {
		return 0, wrapParcelErr(err)
	}
	if c.cache != nil {
		c.cache.Invalidate(ctx, landID)
	}
	return certificateID, nil
}

// SubmitProof attaches an ownership proof to the caller's parcel.
func (c *Coordinator) SubmitProof(ctx context.Context, landID id.LandID, hash id.ProofHash) (id.ProofHash, error) {
	ctx, span := c.tracer.Start(ctx, "registry.SubmitProof")
	defer span.End()

	parcel, err := c.getParcel(ctx, landID)
	if err != nil {
		return "", err
	}
	if requestcontext.Actor(ctx) != parcel.Owner {
		return "", dErrors.New(dErrors.CodeUnauthorized, "only the parcel owner may submit a proof")
	}
	return c.proofs.SubmitProof(ctx, landID, hash)
}

// RequestTransfer opens an escrowed transfer of the parcel's certificate.
// The parcel must be tokenized; the seller/owner gate is enforced by the
// escrow component.
func (c *Coordinator) RequestTransfer(ctx context.Context, landID id.LandID, buyer id.Account, price uint64, notes string) (id.TransferID, error) {
	ctx, span := c.tracer.Start(ctx, "registry.RequestTransfer")
	defer span.End()

	parcel, err := c.getParcel(ctx, landID)
	if err != nil {
		return 0, err
	}
	if parcel.CertificateID.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvalidState, "parcel is not tokenized")
	}
	return c.escrow.RequestTransfer(ctx, parcel.CertificateID, buyer, price, notes)
}

// CompleteTransfer settles the escrowed transfer and moves the parcel read
// model to its new owner.
func (c *Coordinator) CompleteTransfer(ctx context.Context, transferID id.TransferID) error {
	ctx, span := c.tracer.Start(ctx, "registry.CompleteTransfer")
	defer span.End()

	if err := c.escrow.CompleteTransfer(ctx, transferID); err != nil {
		return err
	}
	transfer, err := c.escrow.Get(ctx, transferID)
	if err != nil {
		return err
	}
	certificate, err := c.ledger.Get(ctx, transfer.CertificateID)
	if err != nil {
		return err
	}
	return c.advance(ctx, certificate.Metadata.LandID, StatusTransferred, transfer.Buyer)
}

// GetParcel returns the parcel, served from the cache when warm.
func (c *Coordinator) GetParcel(ctx context.Context, landID id.LandID) (*Parcel, error) {
	ctx, span := c.tracer.Start(ctx, "registry.GetParcel")
	defer span.End()

	if c.cache != nil {
		if parcel, ok := c.cache.Get(ctx, landID); ok {
			return parcel, nil
		}
	}
	parcel, err := c.store.Find(ctx, landID)
	if err != nil {
		return nil, wrapParcelErr(err)
	}
	if c.cache != nil {
		c.cache.Set(ctx, parcel)
	}
	return parcel, nil
}

// ParcelsByOwner lists the parcels currently owned by the account.
func (c *Coordinator) ParcelsByOwner(ctx context.Context, owner id.Account) ([]*Parcel, error) {
	parcels, err := c.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "parcel list failed")
	}
	return parcels, nil
}

// TotalParcels reports how many parcels are registered.
func (c *Coordinator) TotalParcels(ctx context.Context) (uint64, error) {
	count, err := c.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "parcel count failed")
	}
	return count, nil
}

// getParcel is the authoritative (uncached) read used before mutations.
func (c *Coordinator) getParcel(ctx context.Context, landID id.LandID) (*Parcel, error) {
	parcel, err := c.store.Find(ctx, landID)
	if err != nil {
		return nil, wrapParcelErr(err)
	}
	return parcel, nil
}

// advance moves the parcel forward in the pipeline, optionally reassigning
// the owner, and drops the cache entry.
func (c *Coordinator) advance(ctx context.Context, landID id.LandID, status ParcelStatus, newOwner id.Account) error {
	now := requestcontext.Now(ctx)
	_, err := c.store.Execute(ctx, landID,
		func(p *Parcel) error {
			if status.Before(p.Status) {
				return dErrors.New(dErrors.CodeInvalidState, "parcel status cannot move backward")
			}
			return nil
		},
		func(p *Parcel) {
			p.Status = status
			if !newOwner.IsZero() {
				p.Owner = newOwner
			}
			p.UpdatedAt = now
		},
	)
	if err != nil {
		return wrapParcelErr(err)
	}
	if c.cache != nil {
		c.cache.Invalidate(ctx, landID)
	}
	return nil
}

func wrapParcelErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "parcel not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "parcel store failure")
}
