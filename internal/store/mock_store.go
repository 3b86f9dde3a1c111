package store

import (
	"context"
	"sync"

	"github.com/TheMichaelB/enpass/internal/models"
)

// MockItem is an item held by MockStore.
type MockItem struct {
	ID     uint32
	Title  string
	UUID   string
	Key    []byte
	Fields []FieldRow
}

// MockStore provides a mock implementation for testing.
type MockStore struct {
	mu    sync.RWMutex
	items []MockItem

	// Errors returned by the matching operations when set.
	KeyErr   error
	PingErr  error
	QueryErr error

	appliedKey    string
	appliedParams CipherParams
	keyed         bool
	closeCalls    int
}

// NewMockStore creates a mock store holding items.
func NewMockStore(items ...MockItem) *MockStore {
	return &MockStore{items: items}
}

// ApplyKey records the key.
func (m *MockStore) ApplyKey(ctx context.Context, pageKeyHex string, params CipherParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.KeyErr != nil {
		return m.KeyErr
	}
	m.appliedKey = pageKeyHex
	m.appliedParams = params
	m.keyed = true
	return nil
}

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// ListItems returns every item in insertion order.
func (m *MockStore) ListItems(ctx context.Context) ([]ItemRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	var rows []ItemRow
	for _, item := range m.items {
		rows = append(rows, ItemRow{ID: int64(item.ID), Title: item.Title})
	}
	return rows, nil
}

// ItemDetails returns a copy of the item's uuid and key.
func (m *MockStore) ItemDetails(ctx context.Context, id uint32) (*DetailsRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	for _, item := range m.items {
		if item.ID == id {
			return &DetailsRow{UUID: item.UUID, Key: append([]byte(nil), item.Key...)}, nil
		}
	}
	return nil, &models.ItemNotFoundError{ID: id}
}

// Credentials pairs username and password fields the way the SQL join does.
func (m *MockStore) Credentials(ctx context.Context, itemUUID string) ([]CredentialRow, error) {
	fields, err := m.Fields(ctx, itemUUID)
	if err != nil {
		return nil, err
	}

	var rows []CredentialRow
	for _, user := range fields {
		if user.Type != models.FieldUsername {
			continue
		}
		for _, pass := range fields {
			if pass.Type == models.FieldPassword {
				rows = append(rows, CredentialRow{Username: user.Value, Password: pass.Value})
			}
		}
	}
	return rows, nil
}

// Fields returns the item's fields in insertion order.
func (m *MockStore) Fields(ctx context.Context, itemUUID string) ([]FieldRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	var rows []FieldRow
	for _, item := range m.items {
		if item.UUID == itemUUID {
			rows = append(rows, item.Fields...)
		}
	}
	return rows, nil
}

// Close counts calls.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	m.keyed = false
	return nil
}

// Helper methods for testing

// AppliedKey returns the last key and params passed to ApplyKey.
func (m *MockStore) AppliedKey() (string, CipherParams) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appliedKey, m.appliedParams
}

// Keyed reports whether ApplyKey succeeded and Close has not run since.
func (m *MockStore) Keyed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keyed
}

// CloseCalls returns how many times Close ran.
func (m *MockStore) CloseCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closeCalls
}
