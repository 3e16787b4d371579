package fsattr

import "sync"

// MemoryService keeps attributes in memory and applies a Policy the way a
// platform would. It is safe for concurrent use.
type MemoryService struct {
	policy *Policy
	mu     sync.RWMutex
	paths  map[string]AttributeSet
}

var _ Service = new(MemoryService)

// NewMemoryService creates a service that knows the given directories
func NewMemoryService(p *Policy, dirs ...string) *MemoryService {
	m := &MemoryService{
		policy: p,
		paths:  make(map[string]AttributeSet),
	}
	for _, d := range dirs {
		m.paths[d] = p.Effective(0)
	}
	return m
}

func (m *MemoryService) Get(path string) (AttributeSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.paths[path]
	if !ok {
		return 0, ErrNotFound
	}
	return a, nil
}

func (m *MemoryService) Set(path string, attrs AttributeSet) error {
	if err := m.policy.Validate(attrs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.paths[path]; !ok {
		return ErrNotFound
	}
	m.paths[path] = m.policy.Effective(attrs)
	return nil
}
