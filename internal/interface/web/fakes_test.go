package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
)

// The fakes below are a minimal, package-local subset of the ones in
// internal/core/application's test suite; they can't be shared across
// packages since they live in _test.go files, so the handful the Control
// Surface tests need are duplicated here rather than exported from
// application for tests alone to import.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{now: start} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeRandom struct{}

func (fakeRandom) Float64() float64                               { return 0.5 }
func (fakeRandom) UniformFloat(lo, hi float64) float64             { return (lo + hi) / 2 }
func (fakeRandom) UniformDuration(lo, hi time.Duration) time.Duration { return lo }
func (fakeRandom) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return 0
}
func (fakeRandom) Shuffle(n int, swap func(i, j int)) {}

type fakeRPC struct {
	mu       sync.Mutex
	balances map[string]uint64
}

func newFakeRPC() *fakeRPC { return &fakeRPC{balances: map[string]uint64{}} }

func (f *fakeRPC) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[pubkey], nil
}
func (f *fakeRPC) GetRecentBlockhash(ctx context.Context) (string, error) { return "hash", nil }
func (f *fakeRPC) GetTransaction(ctx context.Context, signature string) (bool, error) {
	return true, nil
}
func (f *fakeRPC) SubmitAndConfirm(ctx context.Context, signed ports.SignedTransaction) (string, error) {
	return "sig", nil
}

type fakeScheduler struct{}

func (fakeScheduler) Start() {}
func (fakeScheduler) Stop()  {}
func (fakeScheduler) SchedulePeriodic(interval time.Duration, task func()) error { return nil }

// -- minimal in-memory repositories, mirroring application's test doubles --

type memWalletRepo struct {
	mu   sync.Mutex
	rows map[string]domain.IntermediateWallet
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{rows: map[string]domain.IntermediateWallet{}}
}
func (r *memWalletRepo) Add(ctx context.Context, wallet domain.IntermediateWallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[wallet.WalletId] = wallet
	return nil
}
func (r *memWalletRepo) Get(ctx context.Context, walletId string) (*domain.IntermediateWallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[walletId]
	if !ok {
		return nil, fmt.Errorf("wallet %s not found", walletId)
	}
	return &w, nil
}
func (r *memWalletRepo) Available(ctx context.Context, limit int) ([]domain.IntermediateWallet, error) {
	return nil, nil
}
func (r *memWalletRepo) MarkUsed(ctx context.Context, walletId string, usedAt time.Time) error {
	return nil
}
func (r *memWalletRepo) SetObservedBalance(ctx context.Context, walletId string, lamports uint64) error {
	return nil
}
func (r *memWalletRepo) Close() {}

type memSwapRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Swap
}

func newMemSwapRepo() *memSwapRepo { return &memSwapRepo{rows: map[string]domain.Swap{}} }

func (r *memSwapRepo) Create(ctx context.Context, swap domain.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[swap.TransactionId] = swap
	return nil
}
func (r *memSwapRepo) Get(ctx context.Context, transactionId string) (*domain.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[transactionId]
	if !ok {
		return nil, fmt.Errorf("swap %s not found", transactionId)
	}
	return &s, nil
}
func (r *memSwapRepo) GetAll(ctx context.Context) ([]domain.Swap, error) { return nil, nil }
func (r *memSwapRepo) ListByStatus(ctx context.Context, status domain.SwapStatus, limit int) ([]domain.Swap, error) {
	return nil, nil
}
func (r *memSwapRepo) AppendStep(ctx context.Context, transactionId string, step domain.SwapStep) error {
	return nil
}
func (r *memSwapRepo) TransitionStatus(ctx context.Context, transactionId string, from, to domain.SwapStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[transactionId]
	if !ok {
		return fmt.Errorf("swap %s not found", transactionId)
	}
	if s.Status != from {
		return domain.NewError(domain.KindStatusConflict, "status conflict", nil)
	}
	s.Status = to
	r.rows[transactionId] = s
	return nil
}
func (r *memSwapRepo) SetError(ctx context.Context, transactionId string, errMsg string) error {
	return nil
}
func (r *memSwapRepo) SetFinalSig(ctx context.Context, transactionId string, sig string, completedAt time.Time) error {
	return nil
}
func (r *memSwapRepo) Close() {}

type memWindowRepo struct{}

func (memWindowRepo) UpsertAndIncrement(ctx context.Context, windowId string, start, end time.Time, amount uint64) error {
	return nil
}
func (memWindowRepo) Get(ctx context.Context, windowId string) (*domain.MixingWindow, error) {
	return nil, fmt.Errorf("not found")
}
func (memWindowRepo) Close() {}

type memRecoveryRepo struct {
	mu   sync.Mutex
	rows map[string]domain.RecoveryRecord
}

func newMemRecoveryRepo() *memRecoveryRepo {
	return &memRecoveryRepo{rows: map[string]domain.RecoveryRecord{}}
}
func (r *memRecoveryRepo) Open(ctx context.Context, transactionId string, depositCountAtCreate uint64, keyHash [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[transactionId] = domain.RecoveryRecord{TransactionId: transactionId, DepositCountAtCreate: depositCountAtCreate, RecoveryKeyHash: keyHash}
	return nil
}
func (r *memRecoveryRepo) Get(ctx context.Context, transactionId string) (*domain.RecoveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[transactionId]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return &rec, nil
}
func (r *memRecoveryRepo) MarkAvailable(ctx context.Context, transactionId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[transactionId]
	if !ok {
		return fmt.Errorf("not found")
	}
	rec.RecoveryAvailable = true
	r.rows[transactionId] = rec
	return nil
}
func (r *memRecoveryRepo) Close() {}

type memCounterRepo struct {
	mu    sync.Mutex
	total uint64
}

func (r *memCounterRepo) Increment(ctx context.Context, at time.Time) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	return r.total, nil
}
func (r *memCounterRepo) Get(ctx context.Context) (*domain.DepositCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.DepositCounter{Total: r.total}, nil
}
func (r *memCounterRepo) Close() {}

type memMemoRepo struct {
	mu   sync.Mutex
	rows map[string]domain.EncryptedMemo
}

func newMemMemoRepo() *memMemoRepo { return &memMemoRepo{rows: map[string]domain.EncryptedMemo{}} }

func (r *memMemoRepo) Store(ctx context.Context, memo domain.EncryptedMemo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[memo.TransactionId] = memo
	return nil
}
func (r *memMemoRepo) Get(ctx context.Context, transactionId string) (*domain.EncryptedMemo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[transactionId]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return &m, nil
}
func (r *memMemoRepo) Close() {}

type memRepoManager struct {
	wallets  *memWalletRepo
	swaps    *memSwapRepo
	windows  memWindowRepo
	recovery *memRecoveryRepo
	counter  *memCounterRepo
	memos    *memMemoRepo
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		wallets:  newMemWalletRepo(),
		swaps:    newMemSwapRepo(),
		recovery: newMemRecoveryRepo(),
		counter:  &memCounterRepo{},
		memos:    newMemMemoRepo(),
	}
}

func (m *memRepoManager) Wallets() domain.WalletRepository   { return m.wallets }
func (m *memRepoManager) Swaps() domain.SwapRepository       { return m.swaps }
func (m *memRepoManager) Windows() domain.WindowRepository   { return m.windows }
func (m *memRepoManager) Recovery() domain.RecoveryRepository { return m.recovery }
func (m *memRepoManager) Counter() domain.CounterRepository  { return m.counter }
func (m *memRepoManager) Memos() domain.MemoRepository       { return m.memos }
func (m *memRepoManager) Close()                             {}

var _ ports.RPCClient = (*fakeRPC)(nil)
var _ ports.Clock = (*fakeClock)(nil)
var _ ports.RandomSource = fakeRandom{}
var _ ports.SchedulerService = fakeScheduler{}
