package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront-sync/internal/infrastructure/store"
)

// MockDocumentStore wraps an in-memory store, recording writes and
// optionally failing them.
type MockDocumentStore struct {
	*store.MemoryStore

	mu sync.RWMutex

	// For tracking calls in tests
	SetCalls    []WriteCall
	MergeCalls  []WriteCall
	AddCalls    []WriteCall
	DeleteCalls []WriteCall

	GetErr    error
	SetErr    error
	MergeErr  error
	AddErr    error
	DeleteErr error
	QueryErr  error

	// MergeCallback runs before a merge is applied; a non-nil error aborts it.
	MergeCallback func(ctx context.Context, collection, id string, data any) error
}

// WriteCall records parameters passed to a write method
type WriteCall struct {
	Collection string
	ID         string
	Data       any
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{MemoryStore: store.NewMemoryStore()}
}

func (m *MockDocumentStore) Get(ctx context.Context, collection, id string) (store.Snapshot, error) {
	m.mu.RLock()
	err := m.GetErr
	m.mu.RUnlock()
	if err != nil {
		return store.Snapshot{}, err
	}
	return m.MemoryStore.Get(ctx, collection, id)
}

func (m *MockDocumentStore) Set(ctx context.Context, collection, id string, data any) error {
	m.mu.Lock()
	m.SetCalls = append(m.SetCalls, WriteCall{Collection: collection, ID: id, Data: data})
	err := m.SetErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.MemoryStore.Set(ctx, collection, id, data)
}

func (m *MockDocumentStore) Merge(ctx context.Context, collection, id string, data any) error {
	m.mu.Lock()
	m.MergeCalls = append(m.MergeCalls, WriteCall{Collection: collection, ID: id, Data: data})
	err := m.MergeErr
	callback := m.MergeCallback
	m.mu.Unlock()

	if callback != nil {
		if err := callback(ctx, collection, id, data); err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}
	return m.MemoryStore.Merge(ctx, collection, id, data)
}

func (m *MockDocumentStore) Add(ctx context.Context, collection string, data any) (string, error) {
	m.mu.Lock()
	m.AddCalls = append(m.AddCalls, WriteCall{Collection: collection, Data: data})
	err := m.AddErr
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	return m.MemoryStore.Add(ctx, collection, data)
}

func (m *MockDocumentStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, WriteCall{Collection: collection, ID: id})
	err := m.DeleteErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.MemoryStore.Delete(ctx, collection, id)
}

func (m *MockDocumentStore) Query(ctx context.Context, collection string, q store.Query) ([]store.Snapshot, error) {
	m.mu.RLock()
	err := m.QueryErr
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return m.MemoryStore.Query(ctx, collection, q)
}

// SetError changes an injected error while the store is in use.
func (m *MockDocumentStore) SetError(target *error, err error) {
	m.mu.Lock()
	*target = err
	m.mu.Unlock()
}

// Merges returns a copy of the recorded merge calls.
func (m *MockDocumentStore) Merges() []WriteCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]WriteCall(nil), m.MergeCalls...)
}

// Adds returns a copy of the recorded add calls.
func (m *MockDocumentStore) Adds() []WriteCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]WriteCall(nil), m.AddCalls...)
}

// Reset clears recorded calls and injected errors
func (m *MockDocumentStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls = nil
	m.MergeCalls = nil
	m.AddCalls = nil
	m.DeleteCalls = nil
	m.GetErr, m.SetErr, m.MergeErr, m.AddErr, m.DeleteErr, m.QueryErr = nil, nil, nil, nil, nil, nil
	m.MergeCallback = nil
}
