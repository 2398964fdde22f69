package access

import (
	"context"
	"sync"

	id "landledger/pkg/domain"
)

type roleKey struct {
	role    id.Role
	account id.Account
}

// InMemoryStore keeps role grants in a mutex-guarded map.
type InMemoryStore struct {
	mu     sync.RWMutex
	grants map[roleKey]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{grants: make(map[roleKey]bool)}
}

func (s *InMemoryStore) Grant(_ context.Context, role id.Role, account id.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := roleKey{role: role, account: account}
	if s.grants[key] {
		return false, nil
	}
	s.grants[key] = true
	return true, nil
}

func (s *InMemoryStore) Revoke(_ context.Context, role id.Role, account id.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := roleKey{role: role, account: account}
	if !s.grants[key] {
		return false, nil
	}
	delete(s.grants, key)
	return true, nil
}

func (s *InMemoryStore) HasRole(_ context.Context, role id.Role, account id.Account) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grants[roleKey{role: role, account: account}], nil
}
