package escrow

import (
	"context"
	"sync"

	id "landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu          sync.RWMutex
	requests    map[id.TransferID]*TransferRequest
	activeIndex map[id.CertificateID]id.TransferID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests:    make(map[id.TransferID]*TransferRequest),
		activeIndex: make(map[id.CertificateID]id.TransferID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, request *TransferRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.activeIndex[request.CertificateID]; taken {
		return sentinel.ErrConflict
	}
	copied := *request
	s.requests[request.ID] = &copied
	s.activeIndex[request.CertificateID] = request.ID
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, transferID id.TransferID) (*TransferRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[transferID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (s *InMemoryStore) Execute(_ context.Context, transferID id.TransferID, validate func(*TransferRequest) error, mutate func(*TransferRequest)) (*TransferRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[transferID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(request); err != nil {
		return nil, err
	}

	// Mutate a scratch copy so the index reconciliation below can reject the
	// transition without leaving a half-applied record behind.
	updated := *request
	mutate(&updated)

	// Reconcile the active index with the post-mutation status in the same
	// critical section, so no caller ever observes a terminal request still
	// holding the certificate's active slot. Re-activating (a compensating
	// rollback out of a terminal status) must not steal the slot from a
	// request created in the meantime.
	if updated.Status.Terminal() {
		if s.activeIndex[updated.CertificateID] == transferID {
			delete(s.activeIndex, updated.CertificateID)
		}
	} else {
		if holder, taken := s.activeIndex[updated.CertificateID]; taken && holder != transferID {
			return nil, sentinel.ErrConflict
		}
		s.activeIndex[updated.CertificateID] = transferID
	}

	*request = updated
	copied := updated
	return &copied, nil
}

func (s *InMemoryStore) ActiveTransferID(_ context.Context, certificateID id.CertificateID) (id.TransferID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeIndex[certificateID], nil
}

func (s *InMemoryStore) SumEscrow(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for _, request := range s.requests {
		total += request.EscrowAmount
	}
	return total, nil
}
