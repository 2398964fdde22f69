// Package escrow implements the transfer state machine: a certificate move
// financially coupled to a deposit held by the system.
//
// The reentrancy discipline, everywhere funds or certificates move out of
// the system: commit the internal state (status, escrow amount, active
// index, held balance) to its post-operation value first, then perform the
// external calls. A nested call arriving through an external callback
// observes the committed state and is rejected by the ordinary precondition
// checks. Funding inverts the order on purpose: the buyer is debited while
// the transfer is still Pending, because the pre-funding state offers a
// reentrant caller nothing — cancellation refunds zero and approval is
// rejected — whereas a committed-but-undebited EscrowFunded state would.
// If an external call still fails, the service compensates, and every
// compensation re-validates that the record is still in the state the
// operation committed: a nested mutation is never clobbered, only reported.
package escrow

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"landledger/internal/access"
	"landledger/internal/escrow/metrics"
	"landledger/internal/events"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/platform/sequence"
	"landledger/pkg/requestcontext"
)

// CertificateLedger is the slice of the asset ledger the escrow needs:
// ownership checks before opening a transfer and the certificate move on
// completion.
type CertificateLedger interface {
	OwnerOf(ctx context.Context, certificateID id.CertificateID) (id.Account, error)
	TransferOwnership(ctx context.Context, certificateID id.CertificateID, from, to id.Account) error
}

type Service struct {
	store       Store
	funds       FundsLedger
	certs       CertificateLedger
	auth        access.Authorizer
	transferIDs *sequence.Sequence
	publisher   *events.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics

	// held is the aggregate escrowed balance: the sum of EscrowAmount over
	// all EscrowFunded/Approved requests. Adjusted in the same commit step
	// as EscrowAmount itself.
	held atomic.Uint64
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches escrow metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger for compensation-path reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, funds FundsLedger, certs CertificateLedger, auth access.Authorizer, transferIDs *sequence.Sequence, publisher *events.Publisher, opts ...Option) *Service {
	s := &Service{
		store:       store,
		funds:       funds,
		certs:       certs,
		auth:        auth,
		transferIDs: transferIDs,
		publisher:   publisher,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestTransfer opens a Pending transfer for the certificate. Only the
// certificate's current owner may open one; the buyer must be a real,
// distinct identity and the price positive. At most one non-terminal
// transfer may reference a certificate at a time.
func (s *Service) RequestTransfer(ctx context.Context, certificateID id.CertificateID, buyer id.Account, price uint64, notes string) (id.TransferID, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}
	if buyer.IsZero() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "buyer is required")
	}
	if buyer == actor {
		return 0, dErrors.New(dErrors.CodeBadRequest, "buyer must differ from the seller")
	}
	if price == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "price must be positive")
	}

	owner, err := s.certs.OwnerOf(ctx, certificateID)
	if err != nil {
		return 0, err
	}
	if owner != actor {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "only the certificate owner may request a transfer")
	}

	now := requestcontext.Now(ctx)
	request := &TransferRequest{
		ID:            id.TransferID(s.transferIDs.Next()),
		CertificateID: certificateID,
		Seller:        actor,
		Buyer:         buyer,
		Price:         price,
		Status:        StatusPending,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, request); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.New(dErrors.CodeConflict, "certificate already has an active transfer")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store transfer request")
	}

	if s.metrics != nil {
		s.metrics.TransfersOpened.Inc()
	}
	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionTransferRequested,
		Actor:         actor,
		CertificateID: certificateID,
		TransferID:    request.ID,
		Counterparty:  buyer,
		Amount:        price,
		Timestamp:     now,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return request.ID, nil
}

// FundEscrow moves the transfer to EscrowFunded. Only the named buyer may
// fund, with exactly the price — no partial or excess funding. The buyer is
// debited while the transfer is still Pending: the debit window then holds
// no deposit a reentrant caller could cancel back out, and committing
// EscrowFunded only after the money is in means a funded status always has
// real funds behind it. If the transfer moved under the debit, the deposit
// is returned and the concurrent state stands.
func (s *Service) FundEscrow(ctx context.Context, transferID id.TransferID, amount uint64) error {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	current, err := s.store.Find(ctx, transferID)
	if err != nil {
		return wrapTransferErr(err)
	}
	if err := current.CanFund(actor, amount); err != nil {
		return err
	}

	if err := s.funds.Debit(ctx, current.Buyer, amount); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return dErrors.New(dErrors.CodeBadRequest, "buyer balance cannot cover the price")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "escrow debit failed")
	}

	request, err := s.store.Execute(ctx, transferID,
		func(t *TransferRequest) error { return t.CanFund(actor, amount) },
		func(t *TransferRequest) { t.ApplyFunding(now) },
	)
	if err != nil {
		// A call nested inside the debit moved the transfer. Its state
		// stands; the deposit goes back.
		if crErr := s.funds.Credit(ctx, current.Buyer, amount); crErr != nil {
			s.logger.Error("escrow deposit return failed",
				"transfer_id", transferID, "buyer", current.Buyer, "amount", amount, "error", crErr)
		}
		return wrapTransferErr(err)
	}
	s.addHeld(request.EscrowAmount)

	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionEscrowFunded,
		Actor:         actor,
		CertificateID: request.CertificateID,
		TransferID:    request.ID,
		Amount:        amount,
		Timestamp:     now,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// ApproveTransfer moves the transfer to Approved. Seller only; a pure
// status flip with no funds movement, reversible only by completion (there
// is no cancel from Approved).
func (s *Service) ApproveTransfer(ctx context.Context, transferID id.TransferID) error {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	request, err := s.store.Execute(ctx, transferID,
		func(t *TransferRequest) error { return t.CanApprove(actor) },
		func(t *TransferRequest) { t.ApplyApproval(now) },
	)
	if err != nil {
		return wrapTransferErr(err)
	}

	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionTransferApproved,
		Actor:         actor,
		CertificateID: request.CertificateID,
		TransferID:    request.ID,
		Timestamp:     now,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// CompleteTransfer settles an Approved transfer: the certificate moves from
// seller to buyer and the held deposit is released to the seller, as one
// atomic unit. Callable by seller, buyer, or an admin.
func (s *Service) CompleteTransfer(ctx context.Context, transferID id.TransferID) error {
	actor := requestcontext.Actor(ctx)
	isAdmin, err := s.auth.HasRole(ctx, id.RoleAdmin, actor)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	now := requestcontext.Now(ctx)

	// Re-check the certificate precondition before committing, so the
	// external move after the commit cannot fail on a stale owner.
	current, err := s.store.Find(ctx, transferID)
	if err != nil {
		return wrapTransferErr(err)
	}
	owner, err := s.certs.OwnerOf(ctx, current.CertificateID)
	if err != nil {
		return err
	}
	if current.Status == StatusApproved && owner != current.Seller {
		return dErrors.New(dErrors.CodeInvalidState, "seller no longer owns the certificate")
	}

	var payout uint64
	request, err := s.store.Execute(ctx, transferID,
		func(t *TransferRequest) error { return t.CanComplete(actor, isAdmin) },
		func(t *TransferRequest) { payout = t.ApplyCompletion(now) },
	)
	if err != nil {
		return wrapTransferErr(err)
	}
	s.subHeld(payout)

	// The compensation re-validates the committed state and lets the store
	// refuse reactivation when the certificate's active slot has moved on.
	// Held-balance bookkeeping follows the record: the claim is re-added
	// only when EscrowAmount is actually re-established.
	restore := func(cause error) error {
		if _, rbErr := s.store.Execute(ctx, transferID,
			func(t *TransferRequest) error { return stillIn(t, StatusCompleted) },
			func(t *TransferRequest) {
				t.Status = StatusApproved
				t.EscrowAmount = payout
				t.CompletedAt = time.Time{}
				t.UpdatedAt = now
			},
		); rbErr != nil {
			s.logger.Error("transfer completion rollback refused; deposit not re-held",
				"transfer_id", transferID, "amount", payout, "error", rbErr)
			return dErrors.Wrap(cause, dErrors.CodeInternal, "transfer completion failed")
		}
		s.addHeld(payout)
		return dErrors.Wrap(cause, dErrors.CodeInternal, "transfer completion failed; state restored")
	}

	if err := s.certs.TransferOwnership(ctx, request.CertificateID, request.Seller, request.Buyer); err != nil {
		return restore(err)
	}
	if err := s.funds.Credit(ctx, request.Seller, payout); err != nil {
		// Undo the certificate move before restoring escrow state.
		if mvErr := s.certs.TransferOwnership(ctx, request.CertificateID, request.Buyer, request.Seller); mvErr != nil {
			s.logger.Error("certificate rollback failed after credit failure",
				"transfer_id", transferID, "certificate_id", request.CertificateID, "error", mvErr)
		}
		return restore(err)
	}

	if s.metrics != nil {
		s.metrics.TransfersCompleted.Inc()
		s.metrics.HeldBalance.Set(float64(s.held.Load()))
	}
	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionTransferCompleted,
		Actor:         actor,
		CertificateID: request.CertificateID,
		TransferID:    request.ID,
		Counterparty:  request.Buyer,
		Amount:        payout,
		Timestamp:     now,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// CancelTransfer cancels a Pending or EscrowFunded transfer, refunding the
// buyer in full when funds were held. Callable by seller, buyer, or an
// admin. Cancellation from Approved or Completed is rejected.
func (s *Service) CancelTransfer(ctx context.Context, transferID id.TransferID, reason string) error {
	actor := requestcontext.Actor(ctx)
	isAdmin, err := s.auth.HasRole(ctx, id.RoleAdmin, actor)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	now := requestcontext.Now(ctx)

	var wasFunded bool
	var refund uint64
	request, err := s.store.Execute(ctx, transferID,
		func(t *TransferRequest) error { return t.CanCancel(actor, isAdmin) },
		func(t *TransferRequest) {
			wasFunded = t.Status == StatusEscrowFunded
			refund = t.ApplyCancellation(reason, now)
		},
	)
	if err != nil {
		return wrapTransferErr(err)
	}
	s.subHeld(refund)

	if wasFunded {
		if err := s.funds.Credit(ctx, request.Buyer, refund); err != nil {
			if _, rbErr := s.store.Execute(ctx, transferID,
				func(t *TransferRequest) error { return stillIn(t, StatusCancelled) },
				func(t *TransferRequest) {
					t.Status = StatusEscrowFunded
					t.EscrowAmount = refund
					t.CancelReason = ""
					t.UpdatedAt = now
				},
			); rbErr != nil {
				s.logger.Error("cancellation rollback refused; deposit not re-held",
					"transfer_id", transferID, "amount", refund, "error", rbErr)
				return dErrors.Wrap(err, dErrors.CodeInternal, "refund failed")
			}
			s.addHeld(refund)
			return dErrors.Wrap(err, dErrors.CodeInternal, "refund failed; transfer still funded")
		}
	}

	if s.metrics != nil {
		s.metrics.TransfersCancelled.Inc()
		s.metrics.HeldBalance.Set(float64(s.held.Load()))
	}
	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionTransferCancelled,
		Actor:         actor,
		CertificateID: request.CertificateID,
		TransferID:    request.ID,
		Counterparty:  request.Buyer,
		Amount:        refund,
		Reason:        reason,
		Timestamp:     now,
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// Get returns the transfer request by id.
func (s *Service) Get(ctx context.Context, transferID id.TransferID) (*TransferRequest, error) {
	request, err := s.store.Find(ctx, transferID)
	if err != nil {
		return nil, wrapTransferErr(err)
	}
	return request, nil
}

// ActiveTransferOf returns the id of the certificate's non-terminal
// transfer, zero when there is none.
func (s *Service) ActiveTransferOf(ctx context.Context, certificateID id.CertificateID) (id.TransferID, error) {
	return s.store.ActiveTransferID(ctx, certificateID)
}

// HeldBalance reports the aggregate amount the system currently holds. It
// equals the sum of EscrowAmount over all EscrowFunded/Approved requests.
func (s *Service) HeldBalance() uint64 {
	return s.held.Load()
}

func (s *Service) addHeld(amount uint64) {
	if amount == 0 {
		return
	}
	s.held.Add(amount)
	if s.metrics != nil {
		s.metrics.HeldBalance.Set(float64(s.held.Load()))
	}
}

func (s *Service) subHeld(amount uint64) {
	if amount == 0 {
		return
	}
	s.held.Add(^(amount - 1))
	if s.metrics != nil {
		s.metrics.HeldBalance.Set(float64(s.held.Load()))
	}
}

// stillIn guards a compensating rollback: the record must still be in the
// state the failed operation committed, otherwise a call nested inside the
// external effect has moved it and the rollback must not overwrite that.
func stillIn(t *TransferRequest, status Status) error {
	if t.Status != status {
		return sentinel.ErrInvalidState
	}
	return nil
}

func wrapTransferErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "transfer request not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "transfer store failure")
}
