package access

import (
	"context"

	id "landledger/pkg/domain"
)

// Store owns the (role, account) → granted mapping. Grant and Revoke report
// whether they changed anything so the service can keep re-grants silent:
// no duplicate event, no error.
type Store interface {
	// Grant records the role for the account. Returns false when the account
	// already held the role.
	Grant(ctx context.Context, role id.Role, account id.Account) (bool, error)
	// Revoke removes the role from the account. Returns false when the
	// account did not hold the role.
	Revoke(ctx context.Context, role id.Role, account id.Account) (bool, error)
	// HasRole reports whether the account currently holds the role.
	HasRole(ctx context.Context, role id.Role, account id.Account) (bool, error)
}
