package documents

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in process memory, in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	maxResults  int
}

type memoryCollection struct {
	order []string
	docs  map[string]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection), maxResults: DefaultMaxResults}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return withID(doc, id), nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields Record) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		c = &memoryCollection{docs: make(map[string]Record)}
		s.collections[collection] = c
	}
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = withID(fields, id)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = effectiveLimit(limit, s.maxResults)
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	var out []Record
	for _, id := range c.order {
		doc := c.docs[id]
		if !matches(doc, filters) {
			continue
		}
		out = append(out, withID(doc, id))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
