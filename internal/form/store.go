package form

import (
	"context"
	"sync"
	"time"

	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
)

// Store persists form instances and their submissions.
type Store interface {
	Create(ctx context.Context, instance *Instance) error
	FindByID(ctx context.Context, instanceID id.FormInstanceID) (*Instance, error)
	ListByWorkflow(ctx context.Context, workflowID id.WorkflowID) ([]*Instance, error)
	Update(ctx context.Context, instance *Instance) error
	AddSubmission(ctx context.Context, submission *Submission) error
	// CountSubmissions returns prior submissions for the workflow and type,
	// used to assign submission versions.
	CountSubmissions(ctx context.Context, workflowID id.WorkflowID, formType Type) (int, error)
}

// RevocationList is the fast-path deny list consulted at submission time.
// Entries carry a TTL at least as long as the token lifetime, after which
// the instance's own expiry makes the entry redundant.
type RevocationList interface {
	Revoke(ctx context.Context, instanceID id.FormInstanceID, ttl time.Duration) error
	IsRevoked(ctx context.Context, instanceID id.FormInstanceID) (bool, error)
}

// MemoryStore is the in-memory form store.
type MemoryStore struct {
	mu          sync.RWMutex
	instances   map[id.FormInstanceID]*Instance
	submissions []*Submission
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: make(map[id.FormInstanceID]*Instance)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context, instance *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[instance.ID]; exists {
		return sentinel.ErrDuplicate
	}
	s.instances[instance.ID] = instance.Clone()
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, instanceID id.FormInstanceID) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instance, ok := s.instances[instanceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return instance.Clone(), nil
}

func (s *MemoryStore) ListByWorkflow(ctx context.Context, workflowID id.WorkflowID) ([]*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Instance
	for _, instance := range s.instances {
		if instance.WorkflowID == workflowID {
			out = append(out, instance.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, instance *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[instance.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.instances[instance.ID] = instance.Clone()
	return nil
}

func (s *MemoryStore) AddSubmission(ctx context.Context, submission *Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *submission
	s.submissions = append(s.submissions, &cp)
	return nil
}

func (s *MemoryStore) CountSubmissions(ctx context.Context, workflowID id.WorkflowID, formType Type) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, submission := range s.submissions {
		if submission.WorkflowID == workflowID && submission.Type == formType {
			count++
		}
	}
	return count, nil
}

// MemoryRevocationList is the revocation list used when Redis is not
// configured. TTLs are honored lazily on read.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	revoked map[id.FormInstanceID]time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: make(map[id.FormInstanceID]time.Time)}
}

var _ RevocationList = (*MemoryRevocationList)(nil)

func (l *MemoryRevocationList) Revoke(ctx context.Context, instanceID id.FormInstanceID, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[instanceID] = time.Now().Add(ttl)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(ctx context.Context, instanceID id.FormInstanceID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	expiry, ok := l.revoked[instanceID]
	return ok && time.Now().Before(expiry), nil
}
