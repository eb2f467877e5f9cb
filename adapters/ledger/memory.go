package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ANAVHEOBA/dumzfun/ports"
)

// MemoryStore is an in-process LedgerBlobStore for tests and local runs.
// Writes start pending and confirm after ConfirmAfter further polls,
// mimicking the ledger's asynchronous settlement.
type MemoryStore struct {
	mu           sync.Mutex
	blobs        map[string][]byte
	polls        map[string]int
	ConfirmAfter int
}

// NewMemoryStore creates a ledger fake that confirms on the first poll.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		polls: make(map[string]int),
	}
}

var _ ports.LedgerBlobStore = (*MemoryStore)(nil)

func (m *MemoryStore) Store(ctx context.Context, blob []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txID := uuid.New().String()
	m.blobs[txID] = append([]byte(nil), blob...)
	return txID, nil
}

func (m *MemoryStore) Get(ctx context.Context, txID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, ok := m.blobs[txID]
	if !ok {
		return nil, fmt.Errorf("ledger get: %w", ports.ErrNotFound)
	}
	return append([]byte(nil), blob...), nil
}

func (m *MemoryStore) Status(ctx context.Context, txID string) (ports.TxStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[txID]; !ok {
		return "", fmt.Errorf("ledger status: %w", ports.ErrNotFound)
	}

	m.polls[txID]++
	if m.polls[txID] > m.ConfirmAfter {
		return ports.TxConfirmed, nil
	}
	return ports.TxPending, nil
}
