package testutil

import (
	"context"
	"sync"

	"agourmet/ms_dte_bridge/internal/core/emission"
	"agourmet/ms_dte_bridge/internal/core/order"
)

// MockStore is an in-memory emission.Store. GetFunc and PutFunc override
// the map when set.
type MockStore struct {
	GetFunc func(ctx context.Context, orderID, namespace string) (*emission.Record, error)
	PutFunc func(ctx context.Context, orderID, namespace string, rec emission.Record) error

	mu      sync.Mutex
	records map[string]emission.Record
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{records: make(map[string]emission.Record)}
}

func (m *MockStore) Get(ctx context.Context, orderID, namespace string) (*emission.Record, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, orderID, namespace)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[namespace+"/"+orderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MockStore) Put(ctx context.Context, orderID, namespace string, rec emission.Record) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, orderID, namespace, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]emission.Record)
	}
	m.records[namespace+"/"+orderID] = rec
	return nil
}

// Len returns the number of stored records.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// MockOrderSource is a mock implementation of order.Source for testing.
type MockOrderSource struct {
	GetOrderFunc func(ctx context.Context, orderID int64) (*order.Order, error)
}

// GetOrder calls the mock function if set, otherwise returns order.ErrNotFound.
func (m *MockOrderSource) GetOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, orderID)
	}
	return nil, order.ErrNotFound
}

var (
	_ emission.Store = (*MockStore)(nil)
	_ order.Source   = (*MockOrderSource)(nil)
)
