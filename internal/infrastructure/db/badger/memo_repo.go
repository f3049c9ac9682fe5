package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const memoDir = "memo"

type memoRepository struct {
	store *badgerhold.Store
}

// NewMemoRepository opens the opaque encrypted-memo store, keyed by the
// owning swap's TransactionId since each swap carries at most one memo.
func NewMemoRepository(baseDir string, logger badger.Logger) (domain.MemoRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, memoDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open memo store: %s", err)
	}
	return &memoRepository{store}, nil
}

func (r *memoRepository) Store(ctx context.Context, memo domain.EncryptedMemo) error {
	err := r.store.Upsert(memo.TransactionId, memo)
	if err != nil {
		return fmt.Errorf("failed to store memo: %w", err)
	}
	return nil
}

func (r *memoRepository) Get(ctx context.Context, transactionId string) (*domain.EncryptedMemo, error) {
	var memo domain.EncryptedMemo
	err := r.store.Get(transactionId, &memo)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("memo for %s not found", transactionId)
	}
	if err != nil {
		return nil, err
	}
	return &memo, nil
}

func (r *memoRepository) Close() {
	// nolint:all
	r.store.Close()
}
