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

const recoveryDir = "recovery"

type recoveryRepository struct {
	store *badgerhold.Store
}

// NewRecoveryRepository opens the Recovery Ledger's per-swap bookkeeping store.
func NewRecoveryRepository(baseDir string, logger badger.Logger) (domain.RecoveryRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, recoveryDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open recovery store: %s", err)
	}
	return &recoveryRepository{store}, nil
}

type recoveryData struct {
	TransactionId        string
	DepositCountAtCreate uint64
	RecoveryKeyHash      [32]byte
	RecoveryAvailable    bool
}

func (d recoveryData) toRecord() domain.RecoveryRecord {
	return domain.RecoveryRecord{
		TransactionId:        d.TransactionId,
		DepositCountAtCreate: d.DepositCountAtCreate,
		RecoveryKeyHash:      d.RecoveryKeyHash,
		RecoveryAvailable:    d.RecoveryAvailable,
	}
}

func (r *recoveryRepository) Open(ctx context.Context, transactionId string, depositCountAtCreate uint64, keyHash [32]byte) error {
	data := recoveryData{
		TransactionId:        transactionId,
		DepositCountAtCreate: depositCountAtCreate,
		RecoveryKeyHash:      keyHash,
	}
	err := r.store.Insert(transactionId, data)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("recovery record %s already exists", transactionId)
	}
	return err
}

func (r *recoveryRepository) Get(ctx context.Context, transactionId string) (*domain.RecoveryRecord, error) {
	var data recoveryData
	err := r.store.Get(transactionId, &data)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("recovery record %s not found", transactionId)
	}
	if err != nil {
		return nil, err
	}
	rec := data.toRecord()
	return &rec, nil
}

func (r *recoveryRepository) MarkAvailable(ctx context.Context, transactionId string) error {
	var data recoveryData
	if err := r.store.Get(transactionId, &data); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("recovery record %s not found", transactionId)
		}
		return err
	}
	if data.RecoveryAvailable {
		return nil
	}
	data.RecoveryAvailable = true
	return r.store.Update(transactionId, data)
}

func (r *recoveryRepository) Close() {
	// nolint:all
	r.store.Close()
}
