// Package access implements role membership. It is the leaf dependency of
// every other module: verification gates on NOTARY, proofs on VERIFIER,
// escrow completion and cancellation accept ADMIN, and role administration
// itself requires ADMIN.
package access

import (
	"context"
	"fmt"

	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/requestcontext"

	"landledger/internal/events"
)

// Authorizer is the read-only surface other modules depend on. They never
// mutate the role table.
type Authorizer interface {
	HasRole(ctx context.Context, role id.Role, account id.Account) (bool, error)
}

// Require returns CodeUnauthorized unless the account holds the role. The
// account must be the authenticated caller identity, never a request
// parameter; passing anything else reopens the privilege-escalation hole
// this check exists to close.
func Require(ctx context.Context, auth Authorizer, account id.Account, role id.Role) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}
	held, err := auth.HasRole(ctx, role, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	if !held {
		return dErrors.New(dErrors.CodeUnauthorized, fmt.Sprintf("caller lacks %s role", role))
	}
	return nil
}

// Service manages role grants. Mutations are gated on the caller holding
// ADMIN; re-granting or re-revoking is a silent no-op with no event.
type Service struct {
	store     Store
	publisher *events.Publisher
}

func NewService(store Store, publisher *events.Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Bootstrap seeds the operator account with ADMIN, NOTARY, and VERIFIER.
// Called once at startup before any request is served; no caller check
// because there is no caller yet.
func (s *Service) Bootstrap(ctx context.Context, operator id.Account) error {
	if operator.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "operator account is required")
	}
	for _, role := range []id.Role{id.RoleAdmin, id.RoleNotary, id.RoleVerifier} {
		if _, err := s.store.Grant(ctx, role, operator); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "bootstrap grant failed")
		}
	}
	return nil
}

// Grant gives the account the role. Caller must hold ADMIN.
func (s *Service) Grant(ctx context.Context, role id.Role, account id.Account) error {
	actor := requestcontext.Actor(ctx)
	if err := Require(ctx, s.store, actor, id.RoleAdmin); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "account is required")
	}
	changed, err := s.store.Grant(ctx, role, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role")
	}
	if !changed {
		return nil
	}
	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionRoleGranted,
		Actor:         actor,
		Role:          role,
		Grantee:       account,
		Timestamp:     requestcontext.Now(ctx),
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// Revoke removes the role from the account. Caller must hold ADMIN.
func (s *Service) Revoke(ctx context.Context, role id.Role, account id.Account) error {
	actor := requestcontext.Actor(ctx)
	if err := Require(ctx, s.store, actor, id.RoleAdmin); err != nil {
		return err
	}
	changed, err := s.store.Revoke(ctx, role, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role")
	}
	if !changed {
		return nil
	}
	s.publisher.Emit(ctx, events.Event{
		Action:        events.ActionRoleRevoked,
		Actor:         actor,
		Role:          role,
		Grantee:       account,
		Timestamp:     requestcontext.Now(ctx),
		CorrelationID: requestcontext.RequestID(ctx),
	})
	return nil
}

// HasRole reports whether the account holds the role. Side-effect free and
// open to any caller.
func (s *Service) HasRole(ctx context.Context, role id.Role, account id.Account) (bool, error) {
	return s.store.HasRole(ctx, role, account)
}
