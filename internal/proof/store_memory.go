package proof

import (
	"context"
	"sync"

	id "landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	proofs    map[id.ProofHash]*Proof
	landIndex map[id.LandID]id.ProofHash
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		proofs:    make(map[id.ProofHash]*Proof),
		landIndex: make(map[id.LandID]id.ProofHash),
	}
}

func (s *InMemoryStore) Create(_ context.Context, proof *Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, used := s.proofs[proof.Hash]; used {
		return sentinel.ErrConflict
	}
	if _, taken := s.landIndex[proof.LandID]; taken {
		return sentinel.ErrConflict
	}
	copied := *proof
	s.proofs[proof.Hash] = &copied
	s.landIndex[proof.LandID] = proof.Hash
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, hash id.ProofHash) (*Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proof, ok := s.proofs[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *proof
	return &copied, nil
}

func (s *InMemoryStore) FindByLand(_ context.Context, landID id.LandID) (*Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.landIndex[landID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.proofs[hash]
	return &copied, nil
}

func (s *InMemoryStore) Execute(_ context.Context, hash id.ProofHash, validate func(*Proof) error, mutate func(*Proof)) (*Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proof, ok := s.proofs[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(proof); err != nil {
		return nil, err
	}
	mutate(proof)
	copied := *proof
	return &copied, nil
}
