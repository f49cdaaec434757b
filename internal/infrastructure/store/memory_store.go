package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process. It backs tests, local runs and
// the CLI when no database is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]fields // collection -> id -> document
	feed *Feed
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]fields),
		feed: NewFeed(),
	}
}

func (s *MemoryStore) Feed() *Feed {
	return s.feed
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := checkPath(collection, id); err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Collection: collection, ID: id}
	if doc, ok := s.docs[collection][id]; ok {
		snap.Exists = true
		snap.Data = doc.raw()
	}
	return snap, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	doc, err := encodeFields(data)
	if err != nil {
		return err
	}
	s.put(collection, id, doc)
	return nil
}

func (s *MemoryStore) Merge(ctx context.Context, collection, id string, data any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	patch, err := encodeFields(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]fields)
	}
	s.docs[collection][id] = s.docs[collection][id].merge(patch)
	s.mu.Unlock()

	s.feed.Publish(collection, id)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data any) (string, error) {
	doc, err := encodeFields(data)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	if err := checkPath(collection, id); err != nil {
		return "", err
	}
	s.put(collection, id, doc)
	return id, nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	_, ok := s.docs[collection][id]
	delete(s.docs[collection], id)
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.feed.Publish(collection, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, Snapshot{
			Collection: collection,
			ID:         id,
			Exists:     true,
			Data:       s.docs[collection][id].raw(),
		})
	}
	return out, nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	all, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	return applyQuery(all, q)
}

func (s *MemoryStore) put(collection, id string, doc fields) {
	s.mu.Lock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]fields)
	}
	s.docs[collection][id] = doc
	s.mu.Unlock()

	s.feed.Publish(collection, id)
}
