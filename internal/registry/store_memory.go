package registry

import (
	"context"
	"sort"
	"sync"

	id "landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	parcels map[id.LandID]*Parcel
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{parcels: make(map[id.LandID]*Parcel)}
}

func (s *InMemoryStore) Create(_ context.Context, parcel *Parcel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.parcels[parcel.LandID]; exists {
		return sentinel.ErrConflict
	}
	copied := *parcel
	s.parcels[parcel.LandID] = &copied
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, landID id.LandID) (*Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parcel, ok := s.parcels[landID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *parcel
	return &copied, nil
}

func (s *InMemoryStore) Execute(_ context.Context, landID id.LandID, validate func(*Parcel) error, mutate func(*Parcel)) (*Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parcel, ok := s.parcels[landID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(parcel); err != nil {
		return nil, err
	}
	mutate(parcel)
	copied := *parcel
	return &copied, nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner id.Account) ([]*Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Parcel
	for _, parcel := range s.parcels {
		if parcel.Owner == owner {
			copied := *parcel
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LandID < out[j].LandID })
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.parcels)), nil
}
