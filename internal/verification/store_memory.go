package verification

import (
	"context"
	"sync"

	id "landledger/pkg/domain"
	"landledger/pkg/platform/sentinel"
)

// InMemoryStore keeps requests, the outstanding hash index, and verified
// parcels in mutex-guarded maps.
type InMemoryStore struct {
	mu            sync.RWMutex
	requests      map[id.RequestID]*Request
	hashIndex     map[id.DocumentHash]id.RequestID
	verifiedLands map[id.LandID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests:      make(map[id.RequestID]*Request),
		hashIndex:     make(map[id.DocumentHash]id.RequestID),
		verifiedLands: make(map[id.LandID]bool),
	}
}

func (s *InMemoryStore) Create(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.hashIndex[request.DocumentHash]; taken {
		return sentinel.ErrConflict
	}
	copied := *request
	s.requests[request.ID] = &copied
	s.hashIndex[request.DocumentHash] = request.ID
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, requestID id.RequestID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (s *InMemoryStore) Execute(_ context.Context, requestID id.RequestID, validate func(*Request) error, mutate func(*Request)) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(request); err != nil {
		return nil, err
	}
	mutate(request)
	copied := *request
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.hashIndex, request.DocumentHash)
	delete(s.requests, requestID)
	return nil
}

func (s *InMemoryStore) MarkLandVerified(_ context.Context, landID id.LandID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifiedLands[landID] = true
	return nil
}

func (s *InMemoryStore) IsLandVerified(_ context.Context, landID id.LandID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verifiedLands[landID], nil
}
