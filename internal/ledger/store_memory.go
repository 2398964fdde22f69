package ledger

import (
	"context"
	"sync"

	id "landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu           sync.RWMutex
	certificates map[id.CertificateID]*Certificate
	landIndex    map[id.LandID]id.CertificateID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		certificates: make(map[id.CertificateID]*Certificate),
		landIndex:    make(map[id.LandID]id.CertificateID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, certificate *Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.landIndex[certificate.Metadata.LandID]; taken {
		return sentinel.ErrConflict
	}
	copied := *certificate
	s.certificates[certificate.ID] = &copied
	s.landIndex[certificate.Metadata.LandID] = certificate.ID
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, certificateID id.CertificateID) (*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certificate, ok := s.certificates[certificateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *certificate
	return &copied, nil
}

func (s *InMemoryStore) CertificateIDByLand(_ context.Context, landID id.LandID) (id.CertificateID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certificateID, ok := s.landIndex[landID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return certificateID, nil
}

func (s *InMemoryStore) Execute(_ context.Context, certificateID id.CertificateID, validate func(*Certificate) error, mutate func(*Certificate)) (*Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	certificate, ok := s.certificates[certificateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(certificate); err != nil {
		return nil, err
	}
	mutate(certificate)
	copied := *certificate
	return &copied, nil
}
