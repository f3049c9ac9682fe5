package application

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ArkLabsHQ/sol-relayer/internal/core/domain"
	"github.com/ArkLabsHQ/sol-relayer/internal/core/ports"
	"github.com/ArkLabsHQ/sol-relayer/internal/infrastructure/vaultcrypto"
)

// testEnvelope builds a vaultcrypto.Envelope under a fixed all-zero master
// key, so every envelope built in a test can open what another one sealed.
// Ciphertexts still differ between calls because each Seal draws a fresh
// random nonce.
func testEnvelope(t *testing.T) *vaultcrypto.Envelope {
	t.Helper()
	env, err := vaultcrypto.NewEnvelope(make([]byte, 32))
	if err != nil {
		t.Fatalf("testEnvelope: %v", err)
	}
	return env
}

// fakeClock is a manually advanced ports.Clock, mirroring the teacher's
// scheduler tests' preference for deterministic time over wall-clock sleeps.
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

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeRandom wraps math/rand with a fixed seed so split plans, hop counts,
// and jitter are reproducible across test runs without weakening the
// production CSPRNG path (internal/infrastructure/random/csprng.go).
type fakeRandom struct {
	r *rand.Rand
}

func newFakeRandom(seed int64) *fakeRandom {
	return &fakeRandom{r: rand.New(rand.NewSource(seed))}
}

func (f *fakeRandom) Float64() float64 { return f.r.Float64() }

func (f *fakeRandom) UniformFloat(lo, hi float64) float64 {
	return lo + f.r.Float64()*(hi-lo)
}

func (f *fakeRandom) UniformDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(f.r.Int63n(int64(hi-lo)))
}

func (f *fakeRandom) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return f.r.Intn(n)
}

func (f *fakeRandom) Shuffle(n int, swap func(i, j int)) {
	f.r.Shuffle(n, swap)
}

// fakeRPC is an in-memory ledger simulating ports.RPCClient: balances live in
// a plain map keyed by pubkey, and SubmitAndConfirm parses the Vault's wire
// format (fee payer + blockhash + "|addr:lamports" recipients) well enough
// to debit the sender and credit every recipient, so multi-hop Coordinator
// runs exercise a realistic balance trail instead of a stubbed no-op.
type fakeRPC struct {
	mu           sync.Mutex
	balances     map[string]uint64
	confirmedSig map[string]bool
	submitErr    error
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{balances: map[string]uint64{}, confirmedSig: map[string]bool{}}
}

func (f *fakeRPC) credit(pubkey string, lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[pubkey] += lamports
}

func (f *fakeRPC) confirm(sig string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmedSig[sig] = true
}

func (f *fakeRPC) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[pubkey], nil
}

func (f *fakeRPC) GetRecentBlockhash(ctx context.Context) (string, error) {
	return fakeBlockhash, nil
}

func (f *fakeRPC) GetTransaction(ctx context.Context, signature string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmedSig[signature], nil
}

const fakeBlockhash = "fakeblockhash"

func (f *fakeRPC) SubmitAndConfirm(ctx context.Context, signed ports.SignedTransaction) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}

	const sigLen = ed25519.SignatureSize
	if len(signed.Raw) < sigLen {
		return "", fmt.Errorf("fakeRPC: malformed transaction")
	}
	msg := string(signed.Raw[sigLen:])

	feePayerAndHash := msg
	rest := ""
	if idx := strings.Index(msg, "|"); idx != -1 {
		feePayerAndHash = msg[:idx]
		rest = msg[idx+1:]
	}
	feePayer := strings.TrimSuffix(feePayerAndHash, fakeBlockhash)

	var total uint64
	recipients := map[string]uint64{}
	if rest != "" {
		for _, part := range strings.Split(rest, "|") {
			kv := strings.SplitN(part, ":", 2)
			if len(kv) != 2 {
				continue
			}
			amt, err := strconv.ParseUint(kv[1], 10, 64)
			if err != nil {
				continue
			}
			recipients[kv[0]] += amt
			total += amt
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[feePayer] < total {
		return "", fmt.Errorf("fakeRPC: %s has insufficient balance for %d lamports", feePayer, total)
	}
	f.balances[feePayer] -= total
	for addr, amt := range recipients {
		f.balances[addr] += amt
	}

	sig := fmt.Sprintf("sig-%d", len(f.confirmedSig)+1)
	f.confirmedSig[sig] = true
	return sig, nil
}

// -- in-memory domain repositories --

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
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.IntermediateWallet
	for _, w := range r.rows {
		if w.Active && w.UsedAt == nil {
			out = append(out, w)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memWalletRepo) MarkUsed(ctx context.Context, walletId string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[walletId]
	if !ok {
		return fmt.Errorf("wallet %s not found", walletId)
	}
	w.Active = false
	w.UsedAt = &usedAt
	r.rows[walletId] = w
	return nil
}

func (r *memWalletRepo) SetObservedBalance(ctx context.Context, walletId string, lamports uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[walletId]
	if !ok {
		return fmt.Errorf("wallet %s not found", walletId)
	}
	w.ObservedBalance = lamports
	r.rows[walletId] = w
	return nil
}

func (r *memWalletRepo) Close() {}

type memSwapRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Swap
}

func newMemSwapRepo() *memSwapRepo {
	return &memSwapRepo{rows: map[string]domain.Swap{}}
}

func (r *memSwapRepo) Create(ctx context.Context, swap domain.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[swap.TransactionId]; exists {
		return fmt.Errorf("swap %s already exists", swap.TransactionId)
	}
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

func (r *memSwapRepo) GetAll(ctx context.Context) ([]domain.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Swap, 0, len(r.rows))
	for _, s := range r.rows {
		out = append(out, s)
	}
	return out, nil
}

func (r *memSwapRepo) ListByStatus(ctx context.Context, status domain.SwapStatus, limit int) ([]domain.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Swap
	for _, s := range r.rows {
		if s.Status == status {
			out = append(out, s)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memSwapRepo) AppendStep(ctx context.Context, transactionId string, step domain.SwapStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[transactionId]
	if !ok {
		return fmt.Errorf("swap %s not found", transactionId)
	}
	s.Steps = append(s.Steps, step)
	r.rows[transactionId] = s
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
		return domain.NewError(domain.KindStatusConflict, fmt.Sprintf("swap %s is %s, not %s", transactionId, s.Status, from), nil)
	}
	s.Status = to
	r.rows[transactionId] = s
	return nil
}

func (r *memSwapRepo) SetError(ctx context.Context, transactionId string, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[transactionId]
	if !ok {
		return fmt.Errorf("swap %s not found", transactionId)
	}
	s.Error = errMsg
	r.rows[transactionId] = s
	return nil
}

func (r *memSwapRepo) SetFinalSig(ctx context.Context, transactionId string, sig string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[transactionId]
	if !ok {
		return fmt.Errorf("swap %s not found", transactionId)
	}
	s.FinalSig = sig
	s.CompletedAt = &completedAt
	r.rows[transactionId] = s
	return nil
}

func (r *memSwapRepo) Close() {}

type memWindowRepo struct {
	mu   sync.Mutex
	rows map[string]domain.MixingWindow
}

func newMemWindowRepo() *memWindowRepo {
	return &memWindowRepo{rows: map[string]domain.MixingWindow{}}
}

func (r *memWindowRepo) UpsertAndIncrement(ctx context.Context, windowId string, start, end time.Time, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[windowId]
	if !ok {
		w = domain.MixingWindow{WindowId: windowId, Start: start, End: end}
	}
	w.TotalAmount += amount
	w.TxCount++
	r.rows[windowId] = w
	return nil
}

func (r *memWindowRepo) Get(ctx context.Context, windowId string) (*domain.MixingWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[windowId]
	if !ok {
		return nil, fmt.Errorf("window %s not found", windowId)
	}
	return &w, nil
}

func (r *memWindowRepo) Close() {}

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
	r.rows[transactionId] = domain.RecoveryRecord{
		TransactionId:        transactionId,
		DepositCountAtCreate: depositCountAtCreate,
		RecoveryKeyHash:      keyHash,
	}
	return nil
}

func (r *memRecoveryRepo) Get(ctx context.Context, transactionId string) (*domain.RecoveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[transactionId]
	if !ok {
		return nil, fmt.Errorf("recovery record %s not found", transactionId)
	}
	return &rec, nil
}

func (r *memRecoveryRepo) MarkAvailable(ctx context.Context, transactionId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[transactionId]
	if !ok {
		return fmt.Errorf("recovery record %s not found", transactionId)
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

func newMemCounterRepo() *memCounterRepo { return &memCounterRepo{} }

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

func newMemMemoRepo() *memMemoRepo {
	return &memMemoRepo{rows: map[string]domain.EncryptedMemo{}}
}

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
		return nil, fmt.Errorf("memo %s not found", transactionId)
	}
	return &m, nil
}

func (r *memMemoRepo) Close() {}

// memRepoManager satisfies ports.RepoManager with the in-memory repos above.
type memRepoManager struct {
	wallets  *memWalletRepo
	swaps    *memSwapRepo
	windows  *memWindowRepo
	recovery *memRecoveryRepo
	counter  *memCounterRepo
	memos    *memMemoRepo
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		wallets:  newMemWalletRepo(),
		swaps:    newMemSwapRepo(),
		windows:  newMemWindowRepo(),
		recovery: newMemRecoveryRepo(),
		counter:  newMemCounterRepo(),
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

// fakeScheduler never actually fires on a timer; Tick is invoked directly by
// tests instead of waiting on gocron, matching how the teacher's scheduler
// test drives time manually rather than sleeping for real intervals.
type fakeScheduler struct {
	task func()
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}
func (s *fakeScheduler) SchedulePeriodic(interval time.Duration, task func()) error {
	s.task = task
	return nil
}
