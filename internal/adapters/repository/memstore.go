package repository

import (
	"context"
	"fmt"
	"sync"
)

// memCollection keeps documents plus their insertion order.
type memCollection struct {
	docs  map[string]Document
	order []string
}

// MemoryStore is an in-process Store. Documents are deep-copied on the way
// in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	newID       IDFunc
	closed      bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryIDFunc overrides identifier allocation.
func WithMemoryIDFunc(fn IDFunc) MemoryOption {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]*memCollection),
		newID:       NewUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]Document)}
		s.collections[name] = c
	}
	return c
}

// ReadDocument implements Store.
func (s *MemoryStore) ReadDocument(ctx context.Context, collection, id string) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := validate(collection, id); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		return nil, false, nil
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, false, nil
	}
	return cloneDocument(doc), true, nil
}

// QueryDocuments implements Store.
func (s *MemoryStore) QueryDocuments(ctx context.Context, collection string, filter Filter) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidRequest)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		return []Snapshot{}, nil
	}
	out := make([]Snapshot, 0, len(c.order))
	for _, id := range c.order {
		doc := c.docs[id]
		if filter.Matches(doc) {
			out = append(out, Snapshot{ID: id, Data: cloneDocument(doc)})
		}
	}
	return out, nil
}

// WriteDocument implements Store.
func (s *MemoryStore) WriteDocument(ctx context.Context, collection, id string, fields Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	c := s.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = cloneDocument(fields)
	if c.docs[id] == nil {
		c.docs[id] = Document{}
	}
	return nil
}

// PartialUpdateDocument implements Store.
func (s *MemoryStore) PartialUpdateDocument(ctx context.Context, collection, id string, fields Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	doc, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	c.docs[id] = mergeDocument(doc, fields)
	return nil
}

// NewID implements Store.
func (s *MemoryStore) NewID(string) string {
	return s.newID()
}

// Close implements Store. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of documents in collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.docs)
	}
	return 0
}
