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

const walletDir = "wallet"

type walletRepository struct {
	store *badgerhold.Store
}

// NewWalletRepository opens the Intermediate Wallet Pool's badger store.
func NewWalletRepository(baseDir string, logger badger.Logger) (domain.WalletRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, walletDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet store: %s", err)
	}
	return &walletRepository{store}, nil
}

type walletData struct {
	WalletId        string
	PublicKey       string
	EncryptedSecret []byte
	CreatedAt       time.Time
	UsedAt          *time.Time
	Active          bool
	ObservedBalance uint64
}

func toWalletData(w domain.IntermediateWallet) walletData {
	return walletData{
		WalletId:        w.WalletId,
		PublicKey:       w.PublicKey,
		EncryptedSecret: w.EncryptedSecret,
		CreatedAt:       w.CreatedAt,
		UsedAt:          w.UsedAt,
		Active:          w.Active,
		ObservedBalance: w.ObservedBalance,
	}
}

func (d walletData) toWallet() domain.IntermediateWallet {
	return domain.IntermediateWallet{
		WalletId:        d.WalletId,
		PublicKey:       d.PublicKey,
		EncryptedSecret: d.EncryptedSecret,
		CreatedAt:       d.CreatedAt,
		UsedAt:          d.UsedAt,
		Active:          d.Active,
		ObservedBalance: d.ObservedBalance,
	}
}

func (r *walletRepository) Add(ctx context.Context, w domain.IntermediateWallet) error {
	data := toWalletData(w)
	var err error
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		err = r.store.TxInsert(tx, w.WalletId, data)
	} else {
		err = r.store.Insert(w.WalletId, data)
	}
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("wallet %s already exists", w.WalletId)
	}
	return err
}

func (r *walletRepository) Get(ctx context.Context, walletId string) (*domain.IntermediateWallet, error) {
	var data walletData
	var err error
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		err = r.store.TxGet(tx, walletId, &data)
	} else {
		err = r.store.Get(walletId, &data)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("wallet %s not found", walletId)
	}
	if err != nil {
		return nil, err
	}
	w := data.toWallet()
	return &w, nil
}

// Available lists every wallet currently marked Active and unused. The
// Coordinator does not read from it; it allocates fresh wallets through the
// Vault.
func (r *walletRepository) Available(ctx context.Context, limit int) ([]domain.IntermediateWallet, error) {
	query := badgerhold.Where("Active").Eq(true).And("UsedAt").IsNil()
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []walletData
	if err := r.store.Find(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to list available wallets: %w", err)
	}
	wallets := make([]domain.IntermediateWallet, 0, len(rows))
	for _, row := range rows {
		wallets = append(wallets, row.toWallet())
	}
	return wallets, nil
}

func (r *walletRepository) MarkUsed(ctx context.Context, walletId string, at time.Time) error {
	w, err := r.Get(ctx, walletId)
	if err != nil {
		return err
	}
	w.UsedAt = &at
	w.Active = false
	data := toWalletData(*w)
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		return r.store.TxUpdate(tx, walletId, data)
	}
	return r.store.Update(walletId, data)
}

func (r *walletRepository) SetObservedBalance(ctx context.Context, walletId string, lamports uint64) error {
	w, err := r.Get(ctx, walletId)
	if err != nil {
		return err
	}
	w.ObservedBalance = lamports
	data := toWalletData(*w)
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		return r.store.TxUpdate(tx, walletId, data)
	}
	return r.store.Update(walletId, data)
}

func (r *walletRepository) Close() {
	// nolint:all
	r.store.Close()
}
