// Package storage provides the unit-of-work runners that give every
// operation its all-or-nothing boundary. Services open exactly one unit of
// work per request; stores pick the transaction out of the context.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	txcontext "geoasistencia/pkg/platform/tx"
)

// PostgresRunner owns the connection pool. It is constructed once in main and
// injected wherever a transaction boundary is needed - never reached for as
// ambient global state.
type PostgresRunner struct {
	db *sql.DB
}

func NewPostgresRunner(db *sql.DB) *PostgresRunner {
	return &PostgresRunner{db: db}
}

// RunInTx executes fn inside a transaction. The transaction rides the
// context so every store call inside fn lands in it. fn returning an error
// rolls everything back; otherwise the transaction commits.
func (r *PostgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Snapshotter is implemented by in-memory stores that can capture and restore
// their full state, giving the memory runner real rollback semantics.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any)
}

// MemoryRunner serializes transactions with a coarse lock and rolls back by
// restoring store snapshots. It mirrors the postgres runner closely enough
// that service tests exercise genuine all-or-nothing behavior.
type MemoryRunner struct {
	mu     sync.Mutex
	stores []Snapshotter
}

func NewMemoryRunner(stores ...Snapshotter) *MemoryRunner {
	return &MemoryRunner{stores: stores}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]any, len(r.stores))
	for i, store := range r.stores {
		snapshots[i] = store.Snapshot()
	}

	if err := fn(ctx); err != nil {
		for i, store := range r.stores {
			store.Restore(snapshots[i])
		}
		return err
	}
	return nil
}
