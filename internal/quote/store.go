package quote

import (
	"context"
	"sync"

	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
)

// Store persists quotes. Interface-driven so tests run against memory.
type Store interface {
	Create(ctx context.Context, quote *Quote) error
	FindByID(ctx context.Context, quoteID id.QuoteID) (*Quote, error)
	FindByWorkflow(ctx context.Context, workflowID id.WorkflowID) (*Quote, error)
	Update(ctx context.Context, quote *Quote) error
}

// MemoryStore is the in-memory quote store.
type MemoryStore struct {
	mu     sync.RWMutex
	quotes map[id.QuoteID]*Quote
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{quotes: make(map[id.QuoteID]*Quote)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, quote *Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quotes[quote.ID]; exists {
		return sentinel.ErrDuplicate
	}
	s.quotes[quote.ID] = quote.Clone()
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, quoteID id.QuoteID) (*Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quote, ok := s.quotes[quoteID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return quote.Clone(), nil
}

func (s *MemoryStore) FindByWorkflow(ctx context.Context, workflowID id.WorkflowID) (*Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, quote := range s.quotes {
		if quote.WorkflowID == workflowID {
			return quote.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(ctx context.Context, quote *Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quotes[quote.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.quotes[quote.ID] = quote.Clone()
	return nil
}
