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

const swapDir = "swap"

type swapRepository struct {
	store *badgerhold.Store
}

// NewSwapRepository opens the Mixing Coordinator's swap-record store.
func NewSwapRepository(baseDir string, logger badger.Logger) (domain.SwapRepository, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, swapDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open swap store: %s", err)
	}
	return &swapRepository{store}, nil
}

type swapData struct {
	TransactionId        string
	SourceAddr           string
	DestAddr             string
	Amount               uint64
	IntermediateWalletId string
	SourceSig            string
	Status               domain.SwapStatus
	Steps                []domain.SwapStep
	RelayerFee           uint64
	FinalSig             string
	CreatedAt            time.Time
	CompletedAt          *time.Time
	Error                string
}

func toSwapData(s domain.Swap) swapData {
	return swapData{
		TransactionId:        s.TransactionId,
		SourceAddr:           s.SourceAddr,
		DestAddr:             s.DestAddr,
		Amount:               s.Amount,
		IntermediateWalletId: s.IntermediateWalletId,
		SourceSig:            s.SourceSig,
		Status:               s.Status,
		Steps:                s.Steps,
		RelayerFee:           s.RelayerFee,
		FinalSig:             s.FinalSig,
		CreatedAt:            s.CreatedAt,
		CompletedAt:          s.CompletedAt,
		Error:                s.Error,
	}
}

func (d swapData) toSwap() domain.Swap {
	return domain.Swap{
		TransactionId:         d.TransactionId,
		SourceAddr:            d.SourceAddr,
		DestAddr:              d.DestAddr,
		Amount:                d.Amount,
		IntermediateWalletId:  d.IntermediateWalletId,
		SourceSig:             d.SourceSig,
		Status:                d.Status,
		Steps:                 d.Steps,
		RelayerFee:            d.RelayerFee,
		FinalSig:              d.FinalSig,
		CreatedAt:             d.CreatedAt,
		CompletedAt:           d.CompletedAt,
		Error:                 d.Error,
	}
}

func (r *swapRepository) Create(ctx context.Context, s domain.Swap) error {
	data := toSwapData(s)
	var err error
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		err = r.store.TxInsert(tx, s.TransactionId, data)
	} else {
		err = r.store.Insert(s.TransactionId, data)
	}
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("swap %s already exists", s.TransactionId)
	}
	return err
}

func (r *swapRepository) Get(ctx context.Context, transactionId string) (*domain.Swap, error) {
	var data swapData
	var err error
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		err = r.store.TxGet(tx, transactionId, &data)
	} else {
		err = r.store.Get(transactionId, &data)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("swap %s not found", transactionId)
	}
	if err != nil {
		return nil, err
	}
	swap := data.toSwap()
	return &swap, nil
}

func (r *swapRepository) GetAll(ctx context.Context) ([]domain.Swap, error) {
	var rows []swapData
	if err := r.store.Find(&rows, nil); err != nil {
		return nil, fmt.Errorf("failed to get all swaps: %w", err)
	}
	swaps := make([]domain.Swap, 0, len(rows))
	for _, row := range rows {
		swaps = append(swaps, row.toSwap())
	}
	return swaps, nil
}

func (r *swapRepository) ListByStatus(ctx context.Context, status domain.SwapStatus, limit int) ([]domain.Swap, error) {
	query := badgerhold.Where("Status").Eq(status)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []swapData
	if err := r.store.Find(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to list swaps by status: %w", err)
	}
	swaps := make([]domain.Swap, 0, len(rows))
	for _, row := range rows {
		swaps = append(swaps, row.toSwap())
	}
	return swaps, nil
}

func (r *swapRepository) AppendStep(ctx context.Context, transactionId string, step domain.SwapStep) error {
	s, err := r.Get(ctx, transactionId)
	if err != nil {
		return err
	}
	s.Steps = append(s.Steps, step)
	data := toSwapData(*s)
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		return r.store.TxUpdate(tx, transactionId, data)
	}
	return r.store.Update(transactionId, data)
}

// TransitionStatus performs a conditional "WHERE status = from" update so
// two goroutines racing on the same swap can never both succeed, per the
// atomic status-transition requirement: the loser observes StatusConflict.
func (r *swapRepository) TransitionStatus(ctx context.Context, transactionId string, from, to domain.SwapStatus) error {
	s, err := r.Get(ctx, transactionId)
	if err != nil {
		return err
	}
	if s.Status != from {
		return domain.NewError(domain.KindStatusConflict, fmt.Sprintf("swap %s: expected status %s, found %s", transactionId, from, s.Status), nil)
	}
	s.Status = to
	data := toSwapData(*s)
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		return r.store.TxUpdate(tx, transactionId, data)
	}
	return r.store.Update(transactionId, data)
}

func (r *swapRepository) SetError(ctx context.Context, transactionId string, errMsg string) error {
	s, err := r.Get(ctx, transactionId)
	if err != nil {
		return err
	}
	s.Error = errMsg
	data := toSwapData(*s)
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		return r.store.TxUpdate(tx, transactionId, data)
	}
	return r.store.Update(transactionId, data)
}

func (r *swapRepository) SetFinalSig(ctx context.Context, transactionId string, sig string, completedAt time.Time) error {
	s, err := r.Get(ctx, transactionId)
	if err != nil {
		return err
	}
	s.FinalSig = sig
	s.CompletedAt = &completedAt
	data := toSwapData(*s)
	if tx, ok := ctx.Value("tx").(*badger.Txn); ok {
		return r.store.TxUpdate(tx, transactionId, data)
	}
	return r.store.Update(transactionId, data)
}

func (r *swapRepository) Close() {
	// nolint:all
	r.store.Close()
}
