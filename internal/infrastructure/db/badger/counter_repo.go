package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	counterDir = "counter"
	counterKey = "deposit_counter"
)

type counterRepository struct {
	store *badgerhold.Store
}

// NewCounterRepository opens the global DepositCounter singleton store.
func NewCounterRepository(baseDir string, logger badger.Logger) (domain.CounterRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, counterDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open counter store: %s", err)
	}
	return &counterRepository{store}, nil
}

type counterData struct {
	Total       uint64
	LastUpdated time.Time
}

// Increment bumps the counter by one inside a badger transaction so
// concurrent deposit notifications never lose an increment to a
// read-modify-write race.
func (r *counterRepository) Increment(ctx context.Context, at time.Time) (uint64, error) {
	var newCount uint64
	err := r.store.Badger().Update(func(txn *badger.Txn) error {
		var data counterData
		getErr := r.store.TxGet(txn, counterKey, &data)
		if getErr != nil && !errors.Is(getErr, badgerhold.ErrNotFound) {
			return getErr
		}
		data.Total++
		data.LastUpdated = at
		newCount = data.Total
		if errors.Is(getErr, badgerhold.ErrNotFound) {
			return r.store.TxInsert(txn, counterKey, data)
		}
		return r.store.TxUpdate(txn, counterKey, data)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment deposit counter: %w", err)
	}
	return newCount, nil
}

func (r *counterRepository) Get(ctx context.Context) (*domain.DepositCounter, error) {
	var data counterData
	err := r.store.Get(counterKey, &data)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return &domain.DepositCounter{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.DepositCounter{Total: data.Total, LastUpdated: data.LastUpdated}, nil
}

func (r *counterRepository) Close() {
	// nolint:all
	r.store.Close()
}
