package registry

import (
	"context"

	id "landledger/pkg/domain"
)

// Store persists parcels. Create fails with sentinel.ErrConflict when the
// land id is taken; Find fails with sentinel.ErrNotFound. Execute runs
// validate then mutate on the live record under the store's lock and returns
// a copy of the mutated parcel.
type Store interface {
	Create(ctx context.Context, parcel *Parcel) error
	Find(ctx context.Context, landID id.LandID) (*Parcel, error)
	Execute(ctx context.Context, landID id.LandID, validate func(*Parcel) error, mutate func(*Parcel)) (*Parcel, error)
	ListByOwner(ctx context.Context, owner id.Account) ([]*Parcel, error)
	Count(ctx context.Context) (uint64, error)
}
