package memstore

import (
	"context"
	"sync"

	"landportal/pkg/logger"
)

type txKey struct{}

// TxManager runs transactions against a Store by snapshotting its rows and
// restoring them when fn fails. Transactions are serialized; nested calls
// join the outer transaction.
type TxManager struct {
	store *Store
	mu    sync.Mutex
}

// NewTxManager creates a transaction manager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			m.store.restore(snap)
			panic(p)
		}
		if err != nil {
			m.store.restore(snap)
			logger.Debug(ctx, "memstore transaction rolled back", "error", err)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, struct{}{}))
}

// ReadOnly implements tx.ReadOnlyManager.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// InTransaction reports whether ctx carries a memstore transaction.
func InTransaction(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}
