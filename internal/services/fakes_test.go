package services

import (
	"context"
	"sync"

	"finsight/internal/store"
)

type mockStore struct {
	InsertFunc func(ctx context.Context, rec store.Record) (string, error)
	QueryFunc  func(ctx context.Context, q store.Query) ([]store.Record, error)

	mu      sync.Mutex
	queries int
}

func (m *mockStore) Insert(ctx context.Context, rec store.Record) (string, error) {
	return m.InsertFunc(ctx, rec)
}

func (m *mockStore) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	m.mu.Lock()
	m.queries++
	m.mu.Unlock()
	return m.QueryFunc(ctx, q)
}

func (m *mockStore) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

type mockPublisher struct {
	PublishFunc func(ctx context.Context, id, userID string, version int64) error
	calls       int
}

func (m *mockPublisher) PublishTransactionSync(ctx context.Context, id, userID string, version int64) error {
	m.calls++
	if m.PublishFunc == nil {
		return nil
	}
	return m.PublishFunc(ctx, id, userID, version)
}
